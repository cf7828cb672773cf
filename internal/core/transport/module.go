package transport

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/multierr"
)

// Runner 可由 Manager 启停的传输
type Runner interface {
	// Name 传输名
	Name() string

	// Start 注册到中间件并启动收发协程
	Start(ctx context.Context) error

	// Close 停止收发协程并关闭链路
	Close() error
}

// Manager 传输管理器
type Manager struct {
	runners []Runner
	started []Runner
}

// NewManager 创建传输管理器，忽略 nil
func NewManager(runners ...Runner) *Manager {
	m := &Manager{}
	for _, r := range runners {
		if r != nil {
			m.runners = append(m.runners, r)
		}
	}
	logger.Debug("创建传输管理器", "count", len(m.runners))
	return m
}

// Runners 返回全部传输
func (m *Manager) Runners() []Runner {
	return m.runners
}

// Start 依次启动全部传输
//
// 任一失败时关闭已启动的传输并返回错误。
func (m *Manager) Start(ctx context.Context) error {
	for _, r := range m.runners {
		if err := r.Start(ctx); err != nil {
			closeErr := m.Close()
			return multierr.Append(fmt.Errorf("start %s: %w", r.Name(), err), closeErr)
		}
		m.started = append(m.started, r)
		logger.Info("传输已启动", "transport", r.Name())
	}
	return nil
}

// Close 关闭全部已启动的传输
func (m *Manager) Close() error {
	var errs error
	for i := len(m.started) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, m.started[i].Close())
	}
	m.started = nil
	return errs
}

// ============================================================================
//                              Fx 模块
// ============================================================================

// ManagerInput Fx 输入
type ManagerInput struct {
	fx.In

	Runners []Runner `group:"r2p_transports"`
}

// ProvideManager 从 group 收集传输
func ProvideManager(in ManagerInput) *Manager {
	return NewManager(in.Runners...)
}

// Module 返回 Fx 模块
//
// 具体传输以 group:"r2p_transports" 提供 Runner。
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvideManager),
		fx.Invoke(registerLifecycle),
	)
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return m.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return m.Close()
		},
	})
}

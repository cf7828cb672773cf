package r2p

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-r2p/config"
	"github.com/dep2p/go-r2p/internal/core/eventbus"
	"github.com/dep2p/go-r2p/internal/core/introspect"
	"github.com/dep2p/go-r2p/internal/core/metrics"
	"github.com/dep2p/go-r2p/internal/core/middleware"
	"github.com/dep2p/go-r2p/internal/core/transport"
	"github.com/dep2p/go-r2p/pkg/lib/log"
)

var logger = log.Logger("r2p")

// State 运行时状态
type State int

const (
	// StateIdle 已创建未启动
	StateIdle State = iota
	// StateRunning 运行中
	StateRunning
	// StateBoot 已停止应用节点，处于引导模式
	StateBoot
	// StateClosed 已关闭
	StateClosed
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateBoot:
		return "boot"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DefaultCloseTimeout Close 等待生命周期钩子的时长
const DefaultCloseTimeout = 10 * time.Second

// Runtime 一个 R2P 模块的运行时
type Runtime struct {
	app *fx.App

	cfg        *config.Config
	mw         *middleware.Middleware
	transports *transport.Manager
	metrics    *metrics.Observer
	gatherer   prometheus.Gatherer
	introspect *introspect.Server

	mu    sync.Mutex
	state State
}

// New 创建运行时，不启动
func New(opts ...Option) (*Runtime, error) {
	o := newOptions()
	if err := o.apply(opts...); err != nil {
		return nil, err
	}

	rt := &Runtime{}
	app, err := buildFxApp(o, rt)
	if err != nil {
		return nil, err
	}
	rt.app = app
	return rt, nil
}

// Start 创建并启动运行时
func Start(ctx context.Context, opts ...Option) (*Runtime, error) {
	rt, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := rt.Start(ctx); err != nil {
		return nil, err
	}
	return rt, nil
}

// Start 初始化中间件并启动全部传输
func (rt *Runtime) Start(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	switch rt.state {
	case StateClosed:
		return ErrClosed
	case StateIdle:
	default:
		return ErrAlreadyStarted
	}
	if err := rt.app.Start(ctx); err != nil {
		return fmt.Errorf("start runtime: %w", err)
	}
	rt.state = StateRunning
	logger.Info("R2P 运行时已启动", "module", rt.mw.ModuleName(), "transports", len(rt.transports.Runners()))
	return nil
}

// Stop 执行停止流程并进入引导模式
//
// 通知所有传输、请求并等待应用节点确认停止。ctx 到期时返回错误，状态不变。
func (rt *Runtime) Stop(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	switch rt.state {
	case StateRunning:
	case StateBoot:
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return ErrNotStarted
	}
	if err := rt.mw.Stop(ctx); err != nil {
		return err
	}
	rt.state = StateBoot
	logger.Info("R2P 运行时进入引导模式", "module", rt.mw.ModuleName())
	return nil
}

// Close 关闭传输与后台协程，可重复调用
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.state == StateClosed {
		return nil
	}
	wasStarted := rt.state != StateIdle
	rt.state = StateClosed
	if !wasStarted {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultCloseTimeout)
	defer cancel()
	if err := rt.app.Stop(ctx); err != nil {
		return fmt.Errorf("stop runtime: %w", err)
	}
	logger.Info("R2P 运行时已关闭", "module", rt.mw.ModuleName())
	return nil
}

// State 返回当前状态
func (rt *Runtime) State() State {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.state
}

// Name 返回模块名
func (rt *Runtime) Name() string {
	return rt.mw.ModuleName()
}

// Config 返回生效的配置
func (rt *Runtime) Config() *config.Config {
	return rt.cfg
}

// Middleware 返回中间件
func (rt *Runtime) Middleware() *middleware.Middleware {
	return rt.mw
}

// Transports 返回已装配的传输
func (rt *Runtime) Transports() []transport.Runner {
	return rt.transports.Runners()
}

// Events 返回事件总线
func (rt *Runtime) Events() *eventbus.Bus {
	return rt.mw.Events()
}

// Metrics 返回指标观察者，未启用时为 nil
func (rt *Runtime) Metrics() *metrics.Observer {
	return rt.metrics
}

// Gatherer 返回指标注册表，未启用时为 nil
func (rt *Runtime) Gatherer() prometheus.Gatherer {
	return rt.gatherer
}

// IntrospectAddr 返回自省服务地址，未启用时为空
func (rt *Runtime) IntrospectAddr() string {
	if rt.introspect == nil {
		return ""
	}
	return rt.introspect.Addr()
}

// NewNode 创建应用节点
func (rt *Runtime) NewNode(name string) (*middleware.Node, error) {
	if st := rt.State(); st != StateRunning {
		return nil, fmt.Errorf("%w: %s", ErrNotStarted, st)
	}
	return rt.mw.NewNode(name)
}

// NetworkState 返回本模块信息与端点列表
func (rt *Runtime) NetworkState() (middleware.ModuleInfo, []middleware.Endpoint) {
	return rt.mw.NetworkState()
}

// Reboot 通知所有传输后重启本模块
func (rt *Runtime) Reboot() {
	for _, tr := range rt.mw.Transports() {
		if err := tr.NotifyReboot(); err != nil {
			logger.Debug("重启通知失败", "transport", tr.Name(), "error", err)
		}
	}
	rt.mw.Reboot()
}

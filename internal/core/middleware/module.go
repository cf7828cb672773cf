package middleware

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-r2p/internal/core/eventbus"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	// Config 中间件配置，缺省使用 DefaultConfig
	Config *Config `optional:"true"`

	// Clock 时钟（可选，测试注入 mock）
	Clock clock.Clock `optional:"true"`

	// Observer 主题观察者（可选，通常由 metrics 模块提供）
	Observer pubsub.Observer `optional:"true"`

	// Board 板级支持（可选）
	Board Board `optional:"true"`

	// BootHandler 引导处理器（可选）
	BootHandler BootHandler `optional:"true"`

	// EventBus 事件总线（可选）
	EventBus *eventbus.Bus `optional:"true"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	Middleware *Middleware
}

// ProvideServices 提供模块服务
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	cfg := DefaultConfig()
	if input.Config != nil {
		cfg = *input.Config
	}

	mw, err := New(cfg,
		WithClock(input.Clock),
		WithObserver(input.Observer),
		WithBoard(input.Board),
		WithBootHandler(input.BootHandler),
		WithEventBus(input.EventBus),
	)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{Middleware: mw}, nil
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("middleware",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

type lifecycleInput struct {
	fx.In

	LC         fx.Lifecycle
	Middleware *Middleware
}

// registerLifecycle 注册生命周期
//
// OnStart 初始化中间件；OnStop 只停止后台协程，进入引导模式需显式调用 Stop。
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return input.Middleware.Initialize(ctx)
		},
		OnStop: func(_ context.Context) error {
			return input.Middleware.Close()
		},
	})
}

// ============================================================================
//                              模块元信息
// ============================================================================

// 模块元信息常量
const (
	Version     = "1.0.0"
	Name        = "middleware"
	Description = "中间件控制面，管理主题表、节点、传输与管理协议"
)

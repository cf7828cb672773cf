package r2p

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-r2p/config"
	"github.com/dep2p/go-r2p/internal/core/eventbus"
	"github.com/dep2p/go-r2p/internal/core/introspect"
	"github.com/dep2p/go-r2p/internal/core/metrics"
	"github.com/dep2p/go-r2p/internal/core/middleware"
	"github.com/dep2p/go-r2p/internal/core/transport"
	"github.com/dep2p/go-r2p/internal/core/transport/debug"
	"github.com/dep2p/go-r2p/internal/core/transport/rtcan"
	"github.com/dep2p/go-r2p/internal/core/transport/tcp"
	"github.com/dep2p/go-r2p/pkg/lib/log"
)

var fxLogger = log.Logger("r2p/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序决定生命周期钩子顺序：中间件先初始化，传输后启动；
// 停止时传输先关闭。
func buildFxApp(o *options, rt *Runtime) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	cfg := o.config
	if err := config.ValidateAll(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := config.ValidateCompatibility(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.RTCAN.Enable && o.canDriver == nil {
		return nil, ErrNoCANDriver
	}

	mwCfg := middlewareConfig(cfg)
	modules := []fx.Option{
		fx.Supply(cfg),
		fx.Supply(&mwCfg),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 可选注入
	// ════════════════════════════════════════════════════════════════════════
	if o.clock != nil {
		modules = append(modules, fx.Provide(func() clock.Clock { return o.clock }))
	}
	if o.board != nil {
		modules = append(modules, fx.Provide(func() middleware.Board { return o.board }))
	}
	if o.bootHandler != nil {
		modules = append(modules, fx.Provide(func() middleware.BootHandler { return o.bootHandler }))
	}
	if o.registry != nil {
		modules = append(modules, fx.Supply(o.registry))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 指标与中间件
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		eventbus.Module(),
		metrics.Module(metricsConfig(cfg)),
		middleware.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 4. 传输（条件加载）
	// ════════════════════════════════════════════════════════════════════════
	if cfg.Debug.Enable {
		modules = append(modules, debug.Module(debugConfig(cfg)))
	}
	if cfg.TCP.Enable {
		modules = append(modules, tcp.Module(tcpConfig(cfg)))
	}
	if cfg.RTCAN.Enable {
		modules = append(modules,
			fx.Provide(func() rtcan.Driver { return o.canDriver }),
			rtcan.Module(rtcanConfig(cfg)),
		)
	}
	modules = append(modules, transport.Module())
	if addr := cfg.Metrics.ListenAddr; addr != "" {
		modules = append(modules, introspect.Module(addr))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 5. 用户扩展与组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, o.userFxOptions...)
	modules = append(modules, fx.Invoke(injectRuntime(rt)))

	// ════════════════════════════════════════════════════════════════════════
	// 6. Fx 配置
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	fxLogger.Debug("Fx 应用已构建", "module", cfg.Module.Name,
		"debug", cfg.Debug.Enable, "tcp", cfg.TCP.Enable, "rtcan", cfg.RTCAN.Enable)
	return app, nil
}

// runtimeInjectParams Runtime 组件注入参数
type runtimeInjectParams struct {
	fx.In

	Config     *config.Config
	Middleware *middleware.Middleware
	Transports *transport.Manager
	Metrics    *metrics.Observer   `optional:"true"`
	Gatherer   prometheus.Gatherer `optional:"true"`
	Introspect *introspect.Server  `optional:"true"`
}

func injectRuntime(rt *Runtime) func(runtimeInjectParams) {
	return func(p runtimeInjectParams) {
		rt.cfg = p.Config
		rt.mw = p.Middleware
		rt.transports = p.Transports
		rt.metrics = p.Metrics
		rt.gatherer = p.Gatherer
		rt.introspect = p.Introspect
	}
}

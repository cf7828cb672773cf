package introspect

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-r2p/internal/core/metrics"
	"github.com/dep2p/go-r2p/internal/core/middleware"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Middleware *middleware.Middleware
	Metrics    *metrics.Observer   `optional:"true"`
	Gatherer   prometheus.Gatherer `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Server *Server
}

// ProvideServer 返回提供自省服务的构造函数
func ProvideServer(addr string) func(ModuleInput) ModuleOutput {
	return func(in ModuleInput) ModuleOutput {
		return ModuleOutput{Server: New(Config{
			Addr:       addr,
			Middleware: in.Middleware,
			Metrics:    in.Metrics,
			Gatherer:   in.Gatherer,
		})}
	}
}

// Module 返回 introspect fx 模块
func Module(addr string) fx.Option {
	return fx.Module(Name,
		fx.Provide(ProvideServer(addr)),
		fx.Invoke(func(lc fx.Lifecycle, s *Server) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return s.Start(ctx)
				},
				OnStop: func(context.Context) error {
					return s.Stop()
				},
			})
		}),
	)
}

// 模块元信息常量
const (
	Version     = "1.0.0"
	Name        = "introspect"
	Description = "本地自省 HTTP 服务，提供诊断报告与 Prometheus 指标"
)

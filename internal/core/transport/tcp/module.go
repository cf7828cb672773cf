package tcp

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-r2p/internal/core/middleware"
	"github.com/dep2p/go-r2p/internal/core/transport"
)

// Module 返回 Fx 模块
//
// 以 group:"r2p_transports" 提供 TCP 传输，生命周期由 transport.Manager 管理。
func Module(cfg Config) fx.Option {
	return fx.Module("transport/tcp",
		fx.Provide(
			fx.Annotate(
				func(mw *middleware.Middleware) *Transport {
					return New(mw, cfg)
				},
				fx.As(new(transport.Runner)),
				fx.ResultTags(`group:"r2p_transports"`),
			),
		),
	)
}

// 模块元信息常量
const (
	Version     = "1.0.0"
	Name        = "transport/tcp"
	Description = "基于 yamux 多路复用的 TCP 点对点传输"
)

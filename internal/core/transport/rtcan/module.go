package rtcan

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-r2p/internal/core/middleware"
	"github.com/dep2p/go-r2p/internal/core/transport"
)

// Module 返回 Fx 模块
//
// Driver 由外部提供，例如 VirtualBus 的端口或硬件驱动。
func Module(cfg Config) fx.Option {
	return fx.Module("transport/rtcan",
		fx.Provide(
			fx.Annotate(
				func(mw *middleware.Middleware, drv Driver) *Transport {
					return New(mw, cfg, drv)
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
	Name        = "transport/rtcan"
	Description = "CAN 总线广播传输，支持进程内虚拟总线"
)

package debug

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-r2p/internal/core/middleware"
	"github.com/dep2p/go-r2p/internal/core/transport"
)

// Config 调试传输配置
type Config struct {
	// Name 传输名
	Name string

	// Network 拨号网络，如 "tcp"、"unix"
	Network string

	// Address 拨号地址
	Address string
}

// Module 返回 Fx 模块
//
// 以 group:"r2p_transports" 提供一个启动时拨号的调试传输。
func Module(cfg Config) fx.Option {
	return fx.Module("transport/debug",
		fx.Provide(
			fx.Annotate(
				func(mw *middleware.Middleware) *Transport {
					name := cfg.Name
					if name == "" {
						name = "debug"
					}
					return Dial(mw, name, cfg.Network, cfg.Address)
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
	Name        = "transport/debug"
	Description = "十六进制文本调试传输，适用于串口与 TCP 控制台"
)

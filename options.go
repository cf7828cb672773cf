package r2p

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-r2p/config"
	"github.com/dep2p/go-r2p/internal/core/middleware"
	"github.com/dep2p/go-r2p/internal/core/transport/rtcan"
	"github.com/dep2p/go-r2p/pkg/lib/log"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	config *config.Config

	clock       clock.Clock
	board       middleware.Board
	bootHandler middleware.BootHandler
	canDriver   rtcan.Driver
	registry    *prometheus.Registry

	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{config: config.NewConfig()}
}

func (o *options) apply(opts ...Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 使用完整配置替换默认配置
//
// 应放在其他选项之前，后续选项在其基础上修改。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("config is nil")
		}
		o.config = config.CloneConfig(cfg)
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithPreset 应用预设
func WithPreset(name string) Option {
	return func(o *options) error {
		return config.ApplyPreset(o.config, name)
	}
}

// WithModuleName 设置模块名
func WithModuleName(name string) Option {
	return func(o *options) error {
		o.config.Module.Name = name
		return nil
	}
}

// WithBridgeMode 开关桥接模式
func WithBridgeMode(enable bool) Option {
	return func(o *options) error {
		o.config.Module.BridgeMode = enable
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              传输
// ════════════════════════════════════════════════════════════════════════════

// WithTCPListen 启用 TCP 传输并监听 addr
func WithTCPListen(addr string) Option {
	return func(o *options) error {
		o.config.TCP.Enable = true
		o.config.TCP.Listen, o.config.TCP.Dial = addr, ""
		return nil
	}
}

// WithTCPDial 启用 TCP 传输并拨号 addr
func WithTCPDial(addr string) Option {
	return func(o *options) error {
		o.config.TCP.Enable = true
		o.config.TCP.Dial, o.config.TCP.Listen = addr, ""
		return nil
	}
}

// WithDebug 启用调试传输
func WithDebug(network, addr string) Option {
	return func(o *options) error {
		o.config.Debug = config.DebugConfig{Enable: true, Network: network, Address: addr}
		return nil
	}
}

// WithRTCAN 启用 RTCAN 传输
func WithRTCAN(nodeID uint8, drv rtcan.Driver) Option {
	return func(o *options) error {
		if drv == nil {
			return ErrNoCANDriver
		}
		o.config.RTCAN.Enable = true
		o.config.RTCAN.NodeID = nodeID
		o.canDriver = drv
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              运行环境
// ════════════════════════════════════════════════════════════════════════════

// WithClock 注入时钟，测试用
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		o.clock = clk
		return nil
	}
}

// WithBoard 设置板级支持
func WithBoard(b middleware.Board) Option {
	return func(o *options) error {
		o.board = b
		return nil
	}
}

// WithBootHandler 设置引导处理器
func WithBootHandler(h middleware.BootHandler) Option {
	return func(o *options) error {
		o.bootHandler = h
		return nil
	}
}

// WithMetrics 开关指标
func WithMetrics(enable bool) Option {
	return func(o *options) error {
		o.config.Metrics.Enable = enable
		return nil
	}
}

// WithRegistry 指定 Prometheus 注册表
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) error {
		o.registry = reg
		return nil
	}
}

// WithLogLevel 设置日志级别
//
// 立即作用于全局日志级别。
func WithLogLevel(level string) Option {
	return func(o *options) error {
		lv, err := log.ParseLevel(level)
		if err != nil {
			return err
		}
		o.config.Log.Level = level
		log.SetLevel(lv)
		return nil
	}
}

// WithFxOption 追加自定义 Fx 选项
func WithFxOption(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}

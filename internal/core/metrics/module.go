package metrics

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-r2p/internal/core/middleware"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
)

// Config 指标配置
type Config struct {
	// Enabled 是否启用指标收集
	Enabled bool

	// Namespace 指标名前缀
	Namespace string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Namespace: "r2p",
	}
}

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Clock    clock.Clock          `optional:"true"`
	Registry *prometheus.Registry `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Observer pubsub.Observer
	Metrics  *Observer
	Registry prometheus.Gatherer
}

// ProvideServices 创建观察者并注册到 Registry
//
// 未提供 Registry 时创建独立的注册表。
func ProvideServices(cfg Config) func(ModuleInput) (ModuleOutput, error) {
	return func(input ModuleInput) (ModuleOutput, error) {
		reg := input.Registry
		if reg == nil {
			reg = prometheus.NewRegistry()
		}
		if cfg.Namespace == "" {
			cfg.Namespace = DefaultConfig().Namespace
		}
		obs := NewObserver(cfg.Namespace, input.Clock)
		if err := reg.Register(obs); err != nil {
			return ModuleOutput{}, err
		}
		return ModuleOutput{Observer: obs, Metrics: obs, Registry: reg}, nil
	}
}

// registerPool 把内存池采集器挂到注册表
func registerPool(cfg Config) func(mw *middleware.Middleware, g prometheus.Gatherer) error {
	return func(mw *middleware.Middleware, g prometheus.Gatherer) error {
		reg, ok := g.(prometheus.Registerer)
		if !ok {
			return nil
		}
		ns := cfg.Namespace
		if ns == "" {
			ns = DefaultConfig().Namespace
		}
		return reg.Register(NewPoolCollector(ns, mw))
	}
}

// Module 返回 Fx 模块
//
// 未启用时返回空模块，中间件使用默认的空观察者。
func Module(cfg Config) fx.Option {
	if !cfg.Enabled {
		return fx.Options()
	}
	return fx.Module("metrics",
		fx.Provide(ProvideServices(cfg)),
		fx.Invoke(registerPool(cfg)),
	)
}

// 模块元信息常量
const (
	Version     = "1.0.0"
	Name        = "metrics"
	Description = "主题投递、丢弃与内存池指标"
)

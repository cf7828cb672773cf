package middleware

import (
	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-r2p/internal/core/eventbus"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
)

// Option 中间件选项
type Option func(*Middleware)

// WithClock 设置时钟
func WithClock(clk clock.Clock) Option {
	return func(mw *Middleware) {
		if clk != nil {
			mw.clk = clk
		}
	}
}

// WithObserver 设置主题观察者
func WithObserver(o pubsub.Observer) Option {
	return func(mw *Middleware) {
		if o != nil {
			mw.observer = o
		}
	}
}

// WithBoard 设置板级支持
func WithBoard(b Board) Option {
	return func(mw *Middleware) {
		if b != nil {
			mw.board = b
		}
	}
}

// WithBootHandler 设置引导消息处理器
func WithBootHandler(h BootHandler) Option {
	return func(mw *Middleware) {
		if h != nil {
			mw.bootHandler = h
		}
	}
}

// WithEventBus 设置事件总线，缺省创建私有总线
func WithEventBus(b *eventbus.Bus) Option {
	return func(mw *Middleware) {
		if b != nil {
			mw.bus = b
		}
	}
}

package r2p

import (
	"github.com/dep2p/go-r2p/internal/core/eventbus"
)

// 中间件事件
type (
	// EvtTransportAdded 传输已注册
	EvtTransportAdded = eventbus.EvtTransportAdded
	// EvtRemotePublisher 建立了远程发布者
	EvtRemotePublisher = eventbus.EvtRemotePublisher
	// EvtRemoteSubscriber 建立了远程订阅者
	EvtRemoteSubscriber = eventbus.EvtRemoteSubscriber
	// EvtModuleStopped 模块进入引导模式
	EvtModuleStopped = eventbus.EvtModuleStopped
	// EvtRebootRequested 收到重启请求
	EvtRebootRequested = eventbus.EvtRebootRequested
)

// SubscribeEvent 订阅事件类型 E
//
// buffer 为 0 时使用默认缓冲区。缓冲区满时事件被丢弃。
func SubscribeEvent[E any](rt *Runtime, buffer int) (*eventbus.Subscription[E], error) {
	if rt.mw == nil {
		return nil, ErrNotStarted
	}
	return eventbus.Subscribe[E](rt.Events(), eventbus.BufSize(buffer))
}

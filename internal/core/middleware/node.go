package middleware

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-r2p/internal/core/list"
	"github.com/dep2p/go-r2p/internal/core/osal"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
	"github.com/dep2p/go-r2p/pkg/types"
)

// 保留事件位：停止请求与纯唤醒
const (
	stopBit = osal.EventBits - 1
	wakeBit = osal.EventBits - 2
)

// MaxSubscribers 单个节点的订阅者上限
const MaxSubscribers = wakeBit

// Node 节点
//
// 节点由一个应用协程独占，持有自己的发布者、订阅者和多位事件。
// 第 i 个订阅者占用第 i 个事件位，Spin 在事件上等待并派发回调。
type Node struct {
	mw       *Middleware
	name     string
	internal bool
	event    *osal.SpinEvent

	publishers  list.List[pubsub.LocalPublisher]
	subscribers list.List[pubsub.LocalSubscriber]
	numSubs     atomic.Uint32

	stopped  atomic.Bool
	registry list.Link[Node]
}

var _ pubsub.Notifier = (*Node)(nil)

func newNode(mw *Middleware, name string, internal bool) (*Node, error) {
	if err := types.ValidateName(types.NameNode, name); err != nil {
		return nil, err
	}
	n := &Node{
		mw:       mw,
		name:     name,
		internal: internal,
		event:    osal.NewSpinEvent(mw.clk),
	}
	n.publishers.Init(mw.lock)
	n.subscribers.Init(mw.lock)
	n.registry.Init(n)
	return n, nil
}

// Name 返回节点名
func (n *Node) Name() string {
	return n.name
}

// Advertise 注册发布者
//
// size 必须与主题已登记的负载大小一致。
func (n *Node) Advertise(pub *pubsub.LocalPublisher, topic string, size int, timeout time.Duration) error {
	if err := n.mw.AdvertiseLocal(pub, topic, size, timeout); err != nil {
		return err
	}
	n.publishers.Link(pub.NodeLink())
	return nil
}

// Subscribe 注册订阅者
//
// 订阅者获得下一个空闲事件位；超过 MaxSubscribers 返回 ErrTooManySubscribers。
func (n *Node) Subscribe(sub *pubsub.LocalSubscriber, topic string, size int) error {
	if _, err := n.mw.TouchTopic(topic, size); err != nil {
		return err
	}

	index := n.numSubs.Load()
	if index >= MaxSubscribers {
		return fmt.Errorf("%w: %s has %d", ErrTooManySubscribers, n.name, index)
	}
	if bound := sub.Topic(); bound != nil {
		panic("middleware: subscriber already bound to topic " + bound.Name())
	}
	// 链入主题前挂到节点
	sub.Attach(n, uint(index))
	if err := n.mw.SubscribeLocal(sub, topic, size); err != nil {
		return err
	}
	n.numSubs.Add(1)
	n.subscribers.Link(sub.NodeLink())
	return nil
}

// Notify 置位订阅者事件，实现 pubsub.Notifier
func (n *Node) Notify(index uint) {
	n.event.Signal(index)
}

// RequestStop 请求节点停止
//
// 节点在下一次 Spin 中确认。
func (n *Node) RequestStop() {
	n.event.Signal(stopBit)
}

// wake 唤醒阻塞在 Spin 中的协程
func (n *Node) wake() {
	n.event.Signal(wakeBit)
}

// Stopped 节点是否已确认停止
func (n *Node) Stopped() bool {
	return n.stopped.Load()
}

// Spin 等待订阅者事件并派发
//
// 超时返回 false；否则按事件位顺序把每个就绪订阅者的队列取空
// （Fetch、回调、Release），返回 true。
func (n *Node) Spin(timeout time.Duration) bool {
	mask := n.event.Wait(timeout)
	if mask == 0 {
		return false
	}

	if mask.Has(stopBit) {
		if n.stopped.CompareAndSwap(false, true) {
			n.mw.ConfirmStop(n)
		}
		mask &^= 1 << stopBit
	}
	mask &^= 1 << wakeBit

	subs := n.readySubscribers(mask)
	for _, sub := range subs {
		n.drain(sub)
	}
	return true
}

// readySubscribers 按事件位顺序返回就绪的订阅者
func (n *Node) readySubscribers(mask osal.EventMask) []*pubsub.LocalSubscriber {
	var ready [MaxSubscribers]*pubsub.LocalSubscriber
	count := 0

	n.mw.lock.Acquire()
	n.subscribers.ForEachUnsafe(func(sub *pubsub.LocalSubscriber) bool {
		if idx := sub.EventIndex(); mask.Has(idx) {
			ready[idx] = sub
			count++
		}
		return true
	})
	n.mw.lock.Release()

	out := make([]*pubsub.LocalSubscriber, 0, count)
	for _, sub := range ready {
		if sub != nil {
			out = append(out, sub)
		}
	}
	return out
}

func (n *Node) drain(sub *pubsub.LocalSubscriber) {
	cb := sub.Callback()
	for msg, _, ok := sub.Fetch(); ok; msg, _, ok = sub.Fetch() {
		if cb != nil {
			cb(msg)
		}
		sub.Release(msg)
	}
}

// Publishers 返回节点发布者快照
func (n *Node) Publishers() []*pubsub.LocalPublisher {
	n.mw.lock.Acquire()
	defer n.mw.lock.Release()

	var out []*pubsub.LocalPublisher
	n.publishers.ForEachUnsafe(func(p *pubsub.LocalPublisher) bool {
		out = append(out, p)
		return true
	})
	return out
}

// Subscribers 返回节点订阅者快照
func (n *Node) Subscribers() []*pubsub.LocalSubscriber {
	n.mw.lock.Acquire()
	defer n.mw.lock.Release()

	var out []*pubsub.LocalSubscriber
	n.subscribers.ForEachUnsafe(func(s *pubsub.LocalSubscriber) bool {
		out = append(out, s)
		return true
	})
	return out
}

package r2p

import (
	"fmt"
	"time"

	"github.com/dep2p/go-r2p/internal/core/message"
	"github.com/dep2p/go-r2p/internal/core/middleware"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
)

// ════════════════════════════════════════════════════════════════════════════
//                              类型化发布者
// ════════════════════════════════════════════════════════════════════════════

// Publisher 定长消息类型 M 的发布者
type Publisher[M any] struct {
	pub *pubsub.LocalPublisher
}

// Advertise 在节点上注册 M 类型主题的发布者
//
// 负载大小取 M 的编码大小，M 必须只含定长字段。
func Advertise[M any](n *middleware.Node, topic string, timeout time.Duration) (*Publisher[M], error) {
	size := message.SizeOf[M]()
	if size <= 0 {
		return nil, fmt.Errorf("%w: %T", ErrUnsizedType, *new(M))
	}
	pub := pubsub.NewLocalPublisher()
	if err := n.Advertise(pub, topic, size, timeout); err != nil {
		return nil, err
	}
	return &Publisher[M]{pub: pub}, nil
}

// Publish 编码并发布
//
// 内存池耗尽返回 ErrPoolExhausted。
func (p *Publisher[M]) Publish(v *M) error {
	msg, ok := p.pub.Alloc()
	if !ok {
		return fmt.Errorf("%w: %s", ErrPoolExhausted, p.pub.Topic().Name())
	}
	if err := message.Encode(msg, v); err != nil {
		p.pub.Topic().Free(msg)
		return err
	}
	p.pub.Publish(msg)
	return nil
}

// Topic 返回主题
func (p *Publisher[M]) Topic() *pubsub.Topic {
	return p.pub.Topic()
}

// Raw 返回底层发布者
func (p *Publisher[M]) Raw() *pubsub.LocalPublisher {
	return p.pub
}

// ════════════════════════════════════════════════════════════════════════════
//                              类型化订阅者
// ════════════════════════════════════════════════════════════════════════════

// Subscriber 定长消息类型 M 的订阅者
type Subscriber[M any] struct {
	sub *pubsub.LocalSubscriber
}

// Subscribe 在节点上注册 M 类型主题的订阅者
//
// cb 在节点 Spin 的协程中调用，解码失败的消息被跳过。
func Subscribe[M any](n *middleware.Node, topic string, queueLength int, cb func(*M)) (*Subscriber[M], error) {
	size := message.SizeOf[M]()
	if size <= 0 {
		return nil, fmt.Errorf("%w: %T", ErrUnsizedType, *new(M))
	}
	sub := pubsub.NewLocalSubscriber(queueLength, func(msg *message.Message) bool {
		var v M
		if err := message.Decode(msg, &v); err != nil {
			logger.Debug("解码失败", "topic", topic, "error", err)
			return false
		}
		cb(&v)
		return true
	})
	if err := n.Subscribe(sub, topic, size); err != nil {
		return nil, err
	}
	return &Subscriber[M]{sub: sub}, nil
}

// Topic 返回主题
func (s *Subscriber[M]) Topic() *pubsub.Topic {
	return s.sub.Topic()
}

// Raw 返回底层订阅者
func (s *Subscriber[M]) Raw() *pubsub.LocalSubscriber {
	return s.sub
}

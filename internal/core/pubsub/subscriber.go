package pubsub

import (
	"time"

	"github.com/dep2p/go-r2p/internal/core/list"
	"github.com/dep2p/go-r2p/internal/core/message"
	"github.com/dep2p/go-r2p/internal/core/queue"
)

// Subscriber 订阅者能力接口
//
// 实现只有 LocalSubscriber 与 RemoteSubscriber 两种。
type Subscriber interface {
	// Topic 返回绑定的主题，未绑定时为 nil
	Topic() *Topic

	// QueueLength 返回队列容量
	QueueLength() int

	// Fetch 取出队首消息及其时间戳
	Fetch() (*message.Message, time.Time, bool)

	// Release 归还一个引用
	Release(msg *message.Message) bool

	bind(t *Topic)
	notify(msg *message.Message, ts time.Time) bool
}

// Notifier 本地订阅者有新消息时唤醒所属节点
type Notifier interface {
	Notify(index uint)
}

// Callback 订阅回调
//
// 由节点的 Spin 循环调用，返回值仅作提示。
type Callback func(msg *message.Message) bool

// LocalSubscriber 本地订阅者
type LocalSubscriber struct {
	topic       *Topic
	queue       *queue.ArrayQueue[*message.Message]
	queueLength int
	callback    Callback

	notifier   Notifier
	eventIndex uint

	topicLink list.Link[LocalSubscriber]
	nodeLink  list.Link[LocalSubscriber]
}

var _ Subscriber = (*LocalSubscriber)(nil)

// NewLocalSubscriber 创建本地订阅者
//
// queueLength 决定订阅者队列容量，也是订阅时为主题内存池增加的块数。
func NewLocalSubscriber(queueLength int, cb Callback) *LocalSubscriber {
	if queueLength <= 0 {
		panic("pubsub: queue length must be positive")
	}
	s := &LocalSubscriber{
		queueLength: queueLength,
		callback:    cb,
	}
	s.topicLink.Init(s)
	s.nodeLink.Init(s)
	return s
}

func (s *LocalSubscriber) bind(t *Topic) {
	if s.topic != nil {
		panic("pubsub: subscriber already bound to topic " + s.topic.name)
	}
	s.topic = t
	s.queue = queue.NewArrayQueue[*message.Message](t.lock, s.queueLength)
}

func (s *LocalSubscriber) mustTopic() *Topic {
	if s.topic == nil {
		panic("pubsub: subscriber not bound")
	}
	return s.topic
}

// Attach 关联所属节点和事件位
func (s *LocalSubscriber) Attach(n Notifier, index uint) {
	if s.notifier != nil {
		panic("pubsub: subscriber already attached to a node")
	}
	s.notifier = n
	s.eventIndex = index
}

// Topic 返回绑定的主题
func (s *LocalSubscriber) Topic() *Topic {
	return s.topic
}

// QueueLength 返回队列容量
func (s *LocalSubscriber) QueueLength() int {
	return s.queueLength
}

// EventIndex 返回事件位序号
func (s *LocalSubscriber) EventIndex() uint {
	return s.eventIndex
}

// Callback 返回订阅回调
func (s *LocalSubscriber) Callback() Callback {
	return s.callback
}

// NodeLink 返回节点订阅者列表使用的链表节点
func (s *LocalSubscriber) NodeLink() *list.Link[LocalSubscriber] {
	return &s.nodeLink
}

// Pending 返回队列中等待处理的消息数
func (s *LocalSubscriber) Pending() int {
	if s.queue == nil {
		return 0
	}
	return s.queue.Count()
}

func (s *LocalSubscriber) notify(msg *message.Message, _ time.Time) bool {
	if !s.queue.Post(msg) {
		return false
	}
	if s.notifier != nil {
		s.notifier.Notify(s.eventIndex)
	}
	return true
}

// Fetch 取出队首消息
//
// 本地投递不记录入队时间，时间戳为取出时刻。
func (s *LocalSubscriber) Fetch() (*message.Message, time.Time, bool) {
	t := s.mustTopic()
	msg, ok := s.queue.Fetch()
	if !ok {
		return nil, time.Time{}, false
	}
	return msg, t.Now(), true
}

// Release 归还一个引用
func (s *LocalSubscriber) Release(msg *message.Message) bool {
	return s.mustTopic().Release(msg)
}

package pubsub

import (
	"time"

	"github.com/dep2p/go-r2p/internal/core/list"
	"github.com/dep2p/go-r2p/internal/core/message"
	"github.com/dep2p/go-r2p/internal/core/queue"
)

// Transport 远程句柄所属的传输
type Transport interface {
	message.Source

	// Wake 远程订阅者有待发送的消息
	//
	// 在投递路径上同步调用，不可阻塞。
	Wake(sub *RemoteSubscriber)
}

// Patcher 转发前改写副本的传输
//
// 桥接模式下 Topic.Forward 为每个目标传输复制消息后调用。
type Patcher interface {
	PatchForward(t *Topic, msg *message.Message)
}

// Entry 远程订阅者队列项
type Entry struct {
	Msg       *message.Message
	Timestamp time.Time
}

// ============================================================================
//                              RemotePublisher
// ============================================================================

// RemotePublisher 远程发布者
//
// 代表经由某个传输可达的对端发布者，传输的接收路径用它把收到的消息
// 注入本地主题。
type RemotePublisher struct {
	basePublisher
	transport Transport
	rawParams []byte

	transportLink list.Link[RemotePublisher]
}

var _ Publisher = (*RemotePublisher)(nil)

// NewRemotePublisher 创建远程发布者
//
// rawParams 为传输相关的路由参数，会被复制保存。
func NewRemotePublisher(tr Transport, rawParams []byte) *RemotePublisher {
	p := &RemotePublisher{
		transport: tr,
		rawParams: append([]byte(nil), rawParams...),
	}
	p.transportLink.Init(p)
	return p
}

// Transport 返回所属传输
func (p *RemotePublisher) Transport() Transport {
	return p.transport
}

// RawParams 返回路由参数
func (p *RemotePublisher) RawParams() []byte {
	return p.rawParams
}

// TransportLink 返回传输发布者列表使用的链表节点
func (p *RemotePublisher) TransportLink() *list.Link[RemotePublisher] {
	return &p.transportLink
}

// Inject 注入一条从传输收到的消息
//
// 消息来源标记为本传输。bridge 为 true 时同时转发到其他传输，
// forward 选择为每个目标复制私有副本。
func (p *RemotePublisher) Inject(msg *message.Message, ts time.Time, bridge, forward bool) bool {
	t := p.mustTopic()
	msg.SetSource(p.transport)
	if !bridge {
		return p.publishAt(msg, ts, true, false)
	}
	if !forward {
		return p.publishAt(msg, ts, true, true)
	}

	msg.Acquire()
	ok := t.NotifyLocals(msg, ts)
	ok = t.Forward(msg, ts) && ok
	t.Release(msg)
	return ok
}

// ============================================================================
//                              RemoteSubscriber
// ============================================================================

// RemoteSubscriber 远程订阅者
//
// 代表经由某个传输可达的对端订阅者。消息入队后通过 Transport.Wake
// 通知传输的发送循环，发送循环 Fetch、发送、Release。
type RemoteSubscriber struct {
	topic       *Topic
	transport   Transport
	queue       *queue.ArrayQueue[Entry]
	queueLength int
	rawParams   []byte

	topicLink     list.Link[RemoteSubscriber]
	transportLink list.Link[RemoteSubscriber]
	pendingLink   list.Link[RemoteSubscriber]
}

var _ Subscriber = (*RemoteSubscriber)(nil)

// NewRemoteSubscriber 创建远程订阅者
func NewRemoteSubscriber(tr Transport, queueLength int, rawParams []byte) *RemoteSubscriber {
	if queueLength <= 0 {
		panic("pubsub: queue length must be positive")
	}
	s := &RemoteSubscriber{
		transport:   tr,
		queueLength: queueLength,
		rawParams:   append([]byte(nil), rawParams...),
	}
	s.topicLink.Init(s)
	s.transportLink.Init(s)
	s.pendingLink.Init(s)
	return s
}

func (s *RemoteSubscriber) bind(t *Topic) {
	if s.topic != nil {
		panic("pubsub: subscriber already bound to topic " + s.topic.name)
	}
	s.topic = t
	s.queue = queue.NewArrayQueue[Entry](t.lock, s.queueLength)
}

func (s *RemoteSubscriber) mustTopic() *Topic {
	if s.topic == nil {
		panic("pubsub: subscriber not bound")
	}
	return s.topic
}

// Topic 返回绑定的主题
func (s *RemoteSubscriber) Topic() *Topic {
	return s.topic
}

// Transport 返回所属传输
func (s *RemoteSubscriber) Transport() Transport {
	return s.transport
}

// QueueLength 返回队列容量
func (s *RemoteSubscriber) QueueLength() int {
	return s.queueLength
}

// RawParams 返回路由参数
func (s *RemoteSubscriber) RawParams() []byte {
	return s.rawParams
}

// SetRawParams 更新路由参数，必须在订阅前调用
func (s *RemoteSubscriber) SetRawParams(raw []byte) {
	s.rawParams = append(s.rawParams[:0], raw...)
}

// TransportLink 返回传输订阅者列表使用的链表节点
func (s *RemoteSubscriber) TransportLink() *list.Link[RemoteSubscriber] {
	return &s.transportLink
}

// PendingLink 返回传输待发送队列使用的链表节点
func (s *RemoteSubscriber) PendingLink() *list.Link[RemoteSubscriber] {
	return &s.pendingLink
}

// Pending 返回队列中等待发送的消息数
func (s *RemoteSubscriber) Pending() int {
	if s.queue == nil {
		return 0
	}
	return s.queue.Count()
}

func (s *RemoteSubscriber) notify(msg *message.Message, ts time.Time) bool {
	if !s.queue.Post(Entry{Msg: msg, Timestamp: ts}) {
		return false
	}
	s.transport.Wake(s)
	return true
}

// Fetch 取出队首消息及其入队时间戳
func (s *RemoteSubscriber) Fetch() (*message.Message, time.Time, bool) {
	s.mustTopic()
	e, ok := s.queue.Fetch()
	if !ok {
		return nil, time.Time{}, false
	}
	return e.Msg, e.Timestamp, true
}

// Release 归还一个引用
func (s *RemoteSubscriber) Release(msg *message.Message) bool {
	return s.mustTopic().Release(msg)
}

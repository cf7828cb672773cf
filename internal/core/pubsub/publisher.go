package pubsub

import (
	"time"

	"github.com/dep2p/go-r2p/internal/core/list"
	"github.com/dep2p/go-r2p/internal/core/message"
)

// Publisher 发布者能力接口
//
// 实现只有 LocalPublisher 与 RemotePublisher 两种。
type Publisher interface {
	// Topic 返回绑定的主题，未绑定时为 nil
	Topic() *Topic

	// Alloc 从主题内存池分配消息
	Alloc() (*message.Message, bool)

	// Publish 同时投递给本地与远程订阅者
	Publish(msg *message.Message) bool

	// PublishLocally 只投递给本地订阅者
	PublishLocally(msg *message.Message) bool

	// PublishRemotely 只投递给远程订阅者
	PublishRemotely(msg *message.Message) bool

	bind(t *Topic)
}

// basePublisher 发布者公共实现
type basePublisher struct {
	topic *Topic
}

func (p *basePublisher) bind(t *Topic) {
	if p.topic != nil {
		panic("pubsub: publisher already bound to topic " + p.topic.name)
	}
	p.topic = t
}

func (p *basePublisher) mustTopic() *Topic {
	if p.topic == nil {
		panic("pubsub: publisher not bound")
	}
	return p.topic
}

// Topic 返回绑定的主题
func (p *basePublisher) Topic() *Topic {
	return p.topic
}

// Alloc 从主题内存池分配消息
func (p *basePublisher) Alloc() (*message.Message, bool) {
	return p.mustTopic().Alloc()
}

// Publish 投递给本地与远程订阅者
//
// 发布者在投递期间持有一个引用，投递结束后归还。返回值是两条投递路径
// 结果的与，两条路径都总是成功，因此 Publish 总是返回 true。
func (p *basePublisher) Publish(msg *message.Message) bool {
	t := p.mustTopic()
	msg.Acquire()
	ts := t.Now()
	ok := t.NotifyLocals(msg, ts)
	ok = t.NotifyRemotes(msg, ts) && ok
	t.Release(msg)
	return ok
}

// PublishLocally 只投递给本地订阅者
func (p *basePublisher) PublishLocally(msg *message.Message) bool {
	t := p.mustTopic()
	msg.Acquire()
	ok := t.NotifyLocals(msg, t.Now())
	t.Release(msg)
	return ok
}

// PublishRemotely 只投递给远程订阅者
func (p *basePublisher) PublishRemotely(msg *message.Message) bool {
	t := p.mustTopic()
	msg.Acquire()
	ok := t.NotifyRemotes(msg, t.Now())
	t.Release(msg)
	return ok
}

// publishAt 以指定时间戳投递
func (p *basePublisher) publishAt(msg *message.Message, ts time.Time, local, remote bool) bool {
	t := p.mustTopic()
	msg.Acquire()
	ok := true
	if local {
		ok = t.NotifyLocals(msg, ts) && ok
	}
	if remote {
		ok = t.NotifyRemotes(msg, ts) && ok
	}
	t.Release(msg)
	return ok
}

// ============================================================================
//                              LocalPublisher
// ============================================================================

// LocalPublisher 本地发布者
//
// 由节点持有，Node.Advertise 完成绑定。
type LocalPublisher struct {
	basePublisher
	nodeLink list.Link[LocalPublisher]
}

var _ Publisher = (*LocalPublisher)(nil)

// NewLocalPublisher 创建本地发布者
func NewLocalPublisher() *LocalPublisher {
	p := &LocalPublisher{}
	p.nodeLink.Init(p)
	return p
}

// NodeLink 返回节点发布者列表使用的链表节点
func (p *LocalPublisher) NodeLink() *list.Link[LocalPublisher] {
	return &p.nodeLink
}

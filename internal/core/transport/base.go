package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/dep2p/go-r2p/internal/core/list"
	"github.com/dep2p/go-r2p/internal/core/message"
	"github.com/dep2p/go-r2p/internal/core/middleware"
	"github.com/dep2p/go-r2p/internal/core/osal"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
	"github.com/dep2p/go-r2p/pkg/lib/log"
)

var logger = log.Logger("core/transport")

// Driver 具体链路
//
// Send* 方法由中间件控制面同步调用，实现需自行串行化写操作。
type Driver interface {
	// SendAdvertisement 发送通告
	SendAdvertisement(t *pubsub.Topic) error

	// SendSubscriptionRequest 发送订阅请求
	SendSubscriptionRequest(t *pubsub.Topic, queueLength int) error

	// SendSubscriptionResponse 发送订阅响应，sub 为刚建立的远程订阅者
	SendSubscriptionResponse(t *pubsub.Topic, sub *pubsub.RemoteSubscriber) error

	// SendStop 发送停止命令
	SendStop() error

	// SendReboot 发送重启命令
	SendReboot() error

	// SendBootload 发送引导命令
	SendBootload() error
}

// EndpointFactory 自定义远程端点的创建
//
// Driver 可选实现，用于在创建端点时分配链路相关的路由参数。
type EndpointFactory interface {
	CreatePublisher(t *pubsub.Topic, rawParams []byte) (*pubsub.RemotePublisher, error)
	CreateSubscriber(t *pubsub.Topic, queueLength int, rawParams []byte) (*pubsub.RemoteSubscriber, error)
}

// RoutePatcher 改写桥接副本的路由参数
//
// Driver 可选实现。桥接模式下其他传输收到的消息复制到本传输前调用，
// msg 是本传输独占的副本。
type RoutePatcher interface {
	PatchRoute(t *pubsub.Topic, msg *message.Message)
}

// Base 传输公共实现
type Base struct {
	name   string
	mw     *middleware.Middleware
	lock   *osal.SysLock
	driver Driver

	pubsMu     sync.Mutex
	publishers list.List[pubsub.RemotePublisher]

	subsMu      sync.Mutex
	subscribers list.List[pubsub.RemoteSubscriber]

	pending    list.Queue[pubsub.RemoteSubscriber]
	pendingSem *osal.Semaphore

	mgmtPub *pubsub.RemotePublisher
	mgmtSub *pubsub.RemoteSubscriber
}

var (
	_ middleware.Transport = (*Base)(nil)
	_ pubsub.Patcher       = (*Base)(nil)
)

// NewBase 创建传输公共部分
func NewBase(name string, mw *middleware.Middleware, driver Driver) *Base {
	b := &Base{
		name:       name,
		mw:         mw,
		lock:       mw.Lock(),
		driver:     driver,
		pendingSem: osal.NewSemaphore(mw.Clock(), 0),
	}
	b.publishers.Init(b.lock)
	b.subscribers.Init(b.lock)
	b.pending.Init(b.lock)
	return b
}

// Name 返回传输名
func (b *Base) Name() string {
	return b.name
}

// Middleware 返回所属中间件
func (b *Base) Middleware() *middleware.Middleware {
	return b.mw
}

// Register 注册到中间件并建立管理主题端点
func (b *Base) Register() error {
	if err := b.mw.AddTransport(b); err != nil {
		return err
	}

	mgmt := b.mw.MgmtTopic()
	if mgmt == nil {
		return middleware.ErrNotInitialized
	}
	pub, err := b.TouchPublisher(mgmt, nil)
	if err != nil {
		return fmt.Errorf("touch management publisher: %w", err)
	}
	sub, err := b.TouchSubscriber(mgmt, b.mw.Config().MgmtQueueLength, nil)
	if err != nil {
		return fmt.Errorf("touch management subscriber: %w", err)
	}
	b.mgmtPub, b.mgmtSub = pub, sub
	logger.Debug("传输已注册", "transport", b.name)
	return nil
}

// NewRemotePublisher 创建属于本传输的远程发布者
func (b *Base) NewRemotePublisher(rawParams []byte) *pubsub.RemotePublisher {
	return pubsub.NewRemotePublisher(b, rawParams)
}

// NewRemoteSubscriber 创建属于本传输的远程订阅者
func (b *Base) NewRemoteSubscriber(queueLength int, rawParams []byte) *pubsub.RemoteSubscriber {
	return pubsub.NewRemoteSubscriber(b, queueLength, rawParams)
}

// ============================================================================
//                              middleware.Transport
// ============================================================================

// NotifyAdvertisement 实现 middleware.Transport
func (b *Base) NotifyAdvertisement(t *pubsub.Topic) error {
	return b.driver.SendAdvertisement(t)
}

// NotifySubscription 实现 middleware.Transport
func (b *Base) NotifySubscription(t *pubsub.Topic) error {
	return b.driver.SendSubscriptionRequest(t, max(t.MaxQueueLength(), 1))
}

// NotifyStop 实现 middleware.Transport
func (b *Base) NotifyStop() error {
	return b.driver.SendStop()
}

// NotifyReboot 实现 middleware.Transport
func (b *Base) NotifyReboot() error {
	return b.driver.SendReboot()
}

// NotifyBootload 实现 middleware.Transport
func (b *Base) NotifyBootload() error {
	return b.driver.SendBootload()
}

// SendSubscriptionResponse 实现 middleware.Transport
func (b *Base) SendSubscriptionResponse(t *pubsub.Topic) error {
	sub := b.FindSubscriber(t.Name())
	if sub == nil {
		return fmt.Errorf("%w: %s", ErrNoSubscriber, t.Name())
	}
	return b.driver.SendSubscriptionResponse(t, sub)
}

// PatchForward 实现 pubsub.Patcher，交给 Driver 改写副本
func (b *Base) PatchForward(t *pubsub.Topic, msg *message.Message) {
	if p, ok := b.driver.(RoutePatcher); ok {
		p.PatchRoute(t, msg)
	}
}

// TouchPublisher 查找或创建主题的远程发布者
//
// 对同一主题幂等，已存在时 rawParams 被忽略。
func (b *Base) TouchPublisher(t *pubsub.Topic, rawParams []byte) (*pubsub.RemotePublisher, error) {
	b.pubsMu.Lock()
	defer b.pubsMu.Unlock()

	if pub := b.FindPublisher(t.Name()); pub != nil {
		return pub, nil
	}

	var pub *pubsub.RemotePublisher
	if f, ok := b.driver.(EndpointFactory); ok {
		var err error
		if pub, err = f.CreatePublisher(t, rawParams); err != nil {
			return nil, err
		}
	} else {
		pub = b.NewRemotePublisher(rawParams)
	}

	if err := b.mw.AdvertiseRemote(pub, t.Name(), t.PayloadSize(), osal.Infinite); err != nil {
		return nil, err
	}
	b.publishers.Link(pub.TransportLink())
	logger.Debug("创建远程发布者", "transport", b.name, "topic", t.Name())
	return pub, nil
}

// TouchSubscriber 查找或创建主题的远程订阅者
//
// 新建时主题内存池按 queueLength 扩容。
func (b *Base) TouchSubscriber(t *pubsub.Topic, queueLength int, rawParams []byte) (*pubsub.RemoteSubscriber, error) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	if sub := b.FindSubscriber(t.Name()); sub != nil {
		return sub, nil
	}

	var sub *pubsub.RemoteSubscriber
	if f, ok := b.driver.(EndpointFactory); ok {
		var err error
		if sub, err = f.CreateSubscriber(t, queueLength, rawParams); err != nil {
			return nil, err
		}
	} else {
		sub = b.NewRemoteSubscriber(queueLength, rawParams)
	}

	if err := b.mw.SubscribeRemote(sub, t.Name(), t.PayloadSize()); err != nil {
		return nil, err
	}
	b.subscribers.Link(sub.TransportLink())
	logger.Debug("创建远程订阅者", "transport", b.name, "topic", t.Name(), "queue", queueLength)
	return sub, nil
}

// FindPublisher 按主题名查找远程发布者
func (b *Base) FindPublisher(topic string) *pubsub.RemotePublisher {
	return list.FindFirstBy(&b.publishers, func(p *pubsub.RemotePublisher, name string) bool {
		return p.Topic().Name() == name
	}, topic)
}

// FindSubscriber 按主题名查找远程订阅者
func (b *Base) FindSubscriber(topic string) *pubsub.RemoteSubscriber {
	return list.FindFirstBy(&b.subscribers, func(s *pubsub.RemoteSubscriber, name string) bool {
		return s.Topic().Name() == name
	}, topic)
}

// Publishers 返回远程发布者快照
func (b *Base) Publishers() []*pubsub.RemotePublisher {
	b.lock.Acquire()
	defer b.lock.Release()

	var out []*pubsub.RemotePublisher
	b.publishers.ForEachUnsafe(func(p *pubsub.RemotePublisher) bool {
		out = append(out, p)
		return true
	})
	return out
}

// Subscribers 返回远程订阅者快照
func (b *Base) Subscribers() []*pubsub.RemoteSubscriber {
	b.lock.Acquire()
	defer b.lock.Release()

	var out []*pubsub.RemoteSubscriber
	b.subscribers.ForEachUnsafe(func(s *pubsub.RemoteSubscriber) bool {
		out = append(out, s)
		return true
	})
	return out
}

// ============================================================================
//                              接收路径
// ============================================================================

// InjectMgmt 把解码后的控制帧注入管理主题
//
// 桥接模式下同时以私有副本转发给其他传输。
func (b *Base) InjectMgmt(m *middleware.MgmtMsg) error {
	if b.mgmtPub == nil {
		return middleware.ErrNotInitialized
	}
	msg, ok := b.mgmtPub.Alloc()
	if !ok {
		return fmt.Errorf("%w: %s", ErrPoolExhausted, middleware.MgmtTopicName)
	}
	if err := m.MarshalTo(msg.Payload()); err != nil {
		b.mgmtPub.Topic().Free(msg)
		return err
	}
	b.mgmtPub.Inject(msg, b.mw.Clock().Now(), b.mw.BridgeMode(), true)
	return nil
}

// InjectData 把收到的负载交给主题的远程发布者
//
// 桥接模式下同时投递给其他传输的远程订阅者。
func (b *Base) InjectData(topic string, payload []byte, ts time.Time) error {
	pub := b.FindPublisher(topic)
	if pub == nil {
		return fmt.Errorf("%w: %s", ErrNoPublisher, topic)
	}
	t := pub.Topic()
	if len(payload) != t.PayloadSize() {
		return fmt.Errorf("%w: %s expects %d, got %d", ErrPayloadSize, topic, t.PayloadSize(), len(payload))
	}

	msg, ok := pub.Alloc()
	if !ok {
		return fmt.Errorf("%w: %s", ErrPoolExhausted, topic)
	}
	copy(msg.Payload(), payload)
	if ts.IsZero() {
		ts = b.mw.Clock().Now()
	}
	// 以数据帧到达的管理消息同样按副本转发，由各传输改写路由参数
	pub.Inject(msg, ts, b.mw.BridgeMode(), t == b.mw.MgmtTopic())
	return nil
}

// ============================================================================
//                              发送路径
// ============================================================================

// Wake 实现 pubsub.Transport：把订阅者挂到待发送队列
func (b *Base) Wake(sub *pubsub.RemoteSubscriber) {
	b.lock.Acquire()
	if !sub.PendingLink().IsLinked() {
		b.pending.PostUnsafe(sub.PendingLink())
	}
	b.lock.Release()
	b.pendingSem.Signal()
}

// nextPending 取出下一个待发送订阅者
func (b *Base) nextPending() *pubsub.RemoteSubscriber {
	return b.pending.Fetch()
}

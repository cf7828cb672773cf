package pubsub

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-r2p/internal/core/list"
	"github.com/dep2p/go-r2p/internal/core/message"
	"github.com/dep2p/go-r2p/internal/core/osal"
	"github.com/dep2p/go-r2p/internal/core/pool"
	"github.com/dep2p/go-r2p/pkg/types"
)

// MessagePool 主题消息池
type MessagePool = pool.Pool[message.Message, *message.Message]

// Topic 主题
//
// 主题把名称、负载大小与内存池、订阅者集合、发布者计数绑定在一起，
// 是消息路由的中心。同名主题在中间件中只创建一次，生命周期与进程相同。
type Topic struct {
	name string
	size int

	lock     *osal.SysLock
	clk      clock.Clock
	observer Observer
	pool     *MessagePool

	publishTimeout time.Duration
	localSubs      list.List[LocalSubscriber]
	remoteSubs     list.List[RemoteSubscriber]
	numLocalPubs   int
	numRemotePubs  int
	maxQueueLength int

	registry list.Link[Topic]
}

var _ message.Releaser = (*Topic)(nil)

// NewTopic 创建主题
//
// 新建主题的内存池为空，由订阅者按队列长度扩容。
func NewTopic(lock *osal.SysLock, clk clock.Clock, name string, size int) (*Topic, error) {
	if lock == nil {
		return nil, fmt.Errorf("%w: nil SysLock", ErrInvalidTopic)
	}
	if err := types.ValidateName(types.NameTopic, name); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTopic, err)
	}
	if err := types.ValidatePayloadSize(size); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTopic, err)
	}
	if clk == nil {
		clk = clock.New()
	}

	t := &Topic{
		name:           name,
		size:           size,
		lock:           lock,
		clk:            clk,
		observer:       NopObserver{},
		pool:           pool.New[message.Message](lock),
		publishTimeout: osal.Infinite,
	}
	t.localSubs.Init(lock)
	t.remoteSubs.Init(lock)
	t.registry.Init(t)
	return t, nil
}

// Name 返回主题名
func (t *Topic) Name() string {
	return t.name
}

// PayloadSize 返回负载字节数
func (t *Topic) PayloadSize() int {
	return t.size
}

// Now 返回主题时钟的当前时间
func (t *Topic) Now() time.Time {
	return t.clk.Now()
}

// Lock 返回保护该主题的 SysLock
func (t *Topic) Lock() *osal.SysLock {
	return t.lock
}

// SetObserver 设置观察者，必须在主题投入使用前调用
func (t *Topic) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	t.observer = o
}

// RegistryLink 返回中间件主题表使用的链表节点
func (t *Topic) RegistryLink() *list.Link[Topic] {
	return &t.registry
}

// PublishTimeout 返回所有发布者中最小的发布超时
func (t *Topic) PublishTimeout() time.Duration {
	t.lock.Acquire()
	defer t.lock.Release()
	return t.publishTimeout
}

// MaxQueueLength 返回订阅者请求过的最大队列长度
func (t *Topic) MaxQueueLength() int {
	t.lock.Acquire()
	defer t.lock.Release()
	return t.maxQueueLength
}

// FreeCount 返回内存池中的空闲块数量
func (t *Topic) FreeCount() int {
	return t.pool.FreeCount()
}

// ============================================================================
//                              内存池
// ============================================================================

// Grow 为内存池增加 n 个块
func (t *Topic) Grow(n int) {
	if n <= 0 {
		return
	}
	t.pool.Grow(message.NewArena(t.lock, n, t.size))
}

// ExtendPool 把外部提供的块装入内存池
func (t *Topic) ExtendPool(blocks []message.Message) error {
	for i := range blocks {
		if blocks[i].Size() != t.size {
			return fmt.Errorf("%w: %d != %d", ErrBlockSizeMismatch, blocks[i].Size(), t.size)
		}
	}
	t.pool.Grow(blocks)
	return nil
}

// AllocUnsafe 分配一条消息，要求调用方持有 SysLock
func (t *Topic) AllocUnsafe() (*message.Message, bool) {
	msg := t.pool.AllocUnsafe()
	if msg == nil {
		return nil, false
	}
	msg.ResetUnsafe()
	return msg, true
}

// Alloc 分配一条消息
//
// 内存池耗尽时返回 false，不阻塞。
func (t *Topic) Alloc() (*message.Message, bool) {
	t.lock.Acquire()
	msg, ok := t.AllocUnsafe()
	t.lock.Release()

	if !ok {
		t.observer.OnAllocFail(t.name)
	}
	return msg, ok
}

// ReleaseUnsafe 归还一个引用，归零时放回内存池
func (t *Topic) ReleaseUnsafe(msg *message.Message) bool {
	if msg.ReleaseUnsafe() {
		return true
	}
	t.pool.FreeUnsafe(msg)
	return false
}

// Release 归还一个引用，归零时放回内存池
//
// 递减与回收在同一个临界区内完成。
func (t *Topic) Release(msg *message.Message) bool {
	t.lock.Acquire()
	defer t.lock.Release()
	return t.ReleaseUnsafe(msg)
}

// Free 直接把未发布的消息放回内存池
func (t *Topic) Free(msg *message.Message) {
	t.pool.Free(msg)
}

// ============================================================================
//                              投递
// ============================================================================

// NotifyLocals 投递给全部本地订阅者
//
// 每个订阅者入队前获取一个引用，入队失败立即归还。总是返回 true。
func (t *Topic) NotifyLocals(msg *message.Message, ts time.Time) bool {
	it := t.localSubs.Begin()
	for sub, ok := it.Next(); ok; sub, ok = it.Next() {
		msg.Acquire()
		if sub.notify(msg, ts) {
			t.observer.OnDeliver(t.name, false)
			continue
		}
		t.Release(msg)
		t.observer.OnDrop(t.name, false)
	}
	return true
}

// NotifyRemotes 投递给全部远程订阅者
//
// 跳过所属传输与消息来源相同的远程订阅者。总是返回 true。
func (t *Topic) NotifyRemotes(msg *message.Message, ts time.Time) bool {
	src := msg.Source()
	it := t.remoteSubs.Begin()
	for sub, ok := it.Next(); ok; sub, ok = it.Next() {
		if src != nil && sub.transport == src {
			continue
		}
		msg.Acquire()
		if sub.notify(msg, ts) {
			t.observer.OnDeliver(t.name, true)
			continue
		}
		t.Release(msg)
		t.observer.OnDrop(t.name, true)
	}
	return true
}

// Forward 为每个目标传输复制一份私有消息后投递
//
// 桥接模式下使用：目标传输可能需要在发送前改写负载中的路由字段，
// 因此不能共享同一块。无法分配副本的目标单独丢弃。总是返回 true。
func (t *Topic) Forward(msg *message.Message, ts time.Time) bool {
	src := msg.Source()
	it := t.remoteSubs.Begin()
	for sub, ok := it.Next(); ok; sub, ok = it.Next() {
		if src != nil && sub.transport == src {
			continue
		}

		cp, ok := t.Alloc()
		if !ok {
			t.observer.OnDrop(t.name, true)
			continue
		}
		message.Copy(cp, msg)
		cp.SetSource(src)
		if p, ok := sub.transport.(Patcher); ok {
			p.PatchForward(t, cp)
		}

		cp.Acquire()
		if sub.notify(cp, ts) {
			t.observer.OnDeliver(t.name, true)
			continue
		}
		t.Release(cp)
		t.observer.OnDrop(t.name, true)
	}
	return true
}

// ============================================================================
//                              注册
// ============================================================================

// Advertise 注册发布者
//
// 绑定句柄，把主题发布超时降到各发布者中的最小值，并累加对应计数。
func (t *Topic) Advertise(pub Publisher, timeout time.Duration) {
	pub.bind(t)

	t.lock.Acquire()
	defer t.lock.Release()

	t.publishTimeout = osal.MinTimeout(t.publishTimeout, timeout)
	switch pub.(type) {
	case *LocalPublisher:
		t.numLocalPubs++
	case *RemotePublisher:
		t.numRemotePubs++
	}
}

// Subscribe 注册订阅者
//
// 绑定句柄并链入对应列表，更新最大队列长度。
func (t *Topic) Subscribe(sub Subscriber, queueLength int) {
	sub.bind(t)

	t.lock.Acquire()
	defer t.lock.Release()

	switch s := sub.(type) {
	case *LocalSubscriber:
		t.localSubs.LinkUnsafe(&s.topicLink)
	case *RemoteSubscriber:
		t.remoteSubs.LinkUnsafe(&s.topicLink)
	}
	t.maxQueueLength = max(t.maxQueueLength, queueLength)
}

// ============================================================================
//                              查询
// ============================================================================

// HasLocalPublishers 是否有本地发布者
func (t *Topic) HasLocalPublishers() bool {
	t.lock.Acquire()
	defer t.lock.Release()
	return t.numLocalPubs > 0
}

// HasRemotePublishers 是否有远程发布者
func (t *Topic) HasRemotePublishers() bool {
	t.lock.Acquire()
	defer t.lock.Release()
	return t.numRemotePubs > 0
}

// HasLocalSubscribers 是否有本地订阅者
func (t *Topic) HasLocalSubscribers() bool {
	return !t.localSubs.IsEmpty()
}

// HasRemoteSubscribers 是否有远程订阅者
func (t *Topic) HasRemoteSubscribers() bool {
	return !t.remoteSubs.IsEmpty()
}

// IsAwaitingAdvertisements 有本地订阅者但还没有任何发布者
func (t *Topic) IsAwaitingAdvertisements() bool {
	t.lock.Acquire()
	defer t.lock.Release()
	return !t.localSubs.IsEmptyUnsafe() && t.numLocalPubs == 0 && t.numRemotePubs == 0
}

// IsAwaitingSubscriptions 有本地发布者但还没有任何订阅者
func (t *Topic) IsAwaitingSubscriptions() bool {
	t.lock.Acquire()
	defer t.lock.Release()
	return t.numLocalPubs > 0 && t.localSubs.IsEmptyUnsafe() && t.remoteSubs.IsEmptyUnsafe()
}

// String 返回主题描述
func (t *Topic) String() string {
	return fmt.Sprintf("%s[%d]", t.name, t.size)
}

package middleware

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-r2p/internal/core/eventbus"
	"github.com/dep2p/go-r2p/internal/core/list"
	"github.com/dep2p/go-r2p/internal/core/osal"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
	"github.com/dep2p/go-r2p/pkg/lib/log"
)

var logger = log.Logger("core/middleware")

// Middleware 中间件根对象
//
// 显式构造、按引用传递，不存在包级单例。Initialize 之后方可使用，
// 正常运行期间不销毁，只能通过 Stop 切换到引导模式。
type Middleware struct {
	cfg         Config
	clk         clock.Clock
	lock        *osal.SysLock
	observer    pubsub.Observer
	board       Board
	bootHandler BootHandler
	bus         *eventbus.Bus
	events      *emitters

	// 主题表：创建由 topicsMu 串行化，链表本身受 SysLock 保护
	topicsMu   sync.Mutex
	topics     list.List[pubsub.Topic]
	topicCache *lru.Cache[string, *pubsub.Topic]

	nodesMu sync.Mutex
	nodes   list.List[Node]
	running atomic.Int32

	transportsMu sync.RWMutex
	transports   []Transport

	mgmtTopic *pubsub.Topic
	mgmtNode  *Node
	mgmtPub   *pubsub.LocalPublisher
	mgmtSub   *pubsub.LocalSubscriber
	bootTopic *pubsub.Topic
	bootNode  *Node
	bootPub   *pubsub.LocalPublisher
	bootSub   *pubsub.LocalSubscriber

	limiter *rate.Limiter
	cursor  int

	initialized atomic.Bool
	stopping    atomic.Bool
	stopped     atomic.Bool
	stopMu      sync.Mutex

	loopMu     sync.Mutex
	loopCancel context.CancelFunc
	loopDone   chan struct{}
	loopNode   *Node
}

// New 创建中间件
func New(cfg Config, opts ...Option) (*Middleware, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cache, err := lru.New[string, *pubsub.Topic](cfg.TopicCacheSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	mw := &Middleware{
		cfg:         cfg,
		clk:         clock.New(),
		lock:        osal.NewSysLock(),
		observer:    pubsub.NopObserver{},
		board:       logBoard{},
		bootHandler: NackBootHandler{},
		topicCache:  cache,
		limiter:     rate.NewLimiter(rate.Every(cfg.AnnounceInterval), cfg.AnnounceBurst),
	}
	for _, opt := range opts {
		opt(mw)
	}
	if mw.bus == nil {
		mw.bus = eventbus.NewBus()
	}
	if mw.events, err = newEmitters(mw.bus); err != nil {
		return nil, err
	}
	mw.topics.Init(mw.lock)
	mw.nodes.Init(mw.lock)
	return mw, nil
}

// Initialize 注册常驻主题并启动管理协程
func (mw *Middleware) Initialize(ctx context.Context) error {
	if !mw.initialized.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}

	if err := mw.setupMgmt(); err != nil {
		mw.initialized.Store(false)
		return err
	}
	if err := mw.setupBoot(); err != nil {
		mw.initialized.Store(false)
		return err
	}

	mw.startLoop(ctx, mw.mgmtNode, mw.runMgmt)
	logger.Info("中间件已初始化", "module", mw.cfg.ModuleName, "bridge", mw.cfg.BridgeMode)
	return nil
}

func (mw *Middleware) setupMgmt() error {
	node, err := mw.newNode(MgmtNodeName, true)
	if err != nil {
		return err
	}
	mw.mgmtNode = node
	if mw.mgmtTopic, err = mw.TouchTopic(MgmtTopicName, MgmtMsgSize); err != nil {
		return err
	}
	mw.mgmtPub = pubsub.NewLocalPublisher()
	mw.mgmtSub = pubsub.NewLocalSubscriber(mw.cfg.MgmtQueueLength, mw.handleMgmt)

	if err := node.Advertise(mw.mgmtPub, MgmtTopicName, MgmtMsgSize, osal.Infinite); err != nil {
		return fmt.Errorf("advertise management topic: %w", err)
	}
	if err := node.Subscribe(mw.mgmtSub, MgmtTopicName, MgmtMsgSize); err != nil {
		return fmt.Errorf("subscribe management topic: %w", err)
	}
	return nil
}

func (mw *Middleware) setupBoot() error {
	node, err := mw.newNode(BootNodeName, true)
	if err != nil {
		return err
	}
	mw.bootNode = node
	if mw.bootTopic, err = mw.TouchTopic(BootTopicName, BootMsgSize); err != nil {
		return err
	}
	mw.bootPub = pubsub.NewLocalPublisher()
	mw.bootSub = pubsub.NewLocalSubscriber(mw.cfg.BootQueueLength, mw.handleBoot)

	if err := node.Advertise(mw.bootPub, BootTopicName, BootMsgSize, osal.Infinite); err != nil {
		return fmt.Errorf("advertise boot topic: %w", err)
	}
	if err := node.Subscribe(mw.bootSub, BootTopicName, BootMsgSize); err != nil {
		return fmt.Errorf("subscribe boot topic: %w", err)
	}
	return nil
}

// ============================================================================
//                              访问器
// ============================================================================

// Config 返回配置
func (mw *Middleware) Config() Config {
	return mw.cfg
}

// ModuleName 返回模块名
func (mw *Middleware) ModuleName() string {
	return mw.cfg.ModuleName
}

// BridgeMode 是否为桥接模式
func (mw *Middleware) BridgeMode() bool {
	return mw.cfg.BridgeMode
}

// Clock 返回时钟
func (mw *Middleware) Clock() clock.Clock {
	return mw.clk
}

// Lock 返回 SysLock
func (mw *Middleware) Lock() *osal.SysLock {
	return mw.lock
}

// MgmtTopic 返回管理主题
func (mw *Middleware) MgmtTopic() *pubsub.Topic {
	return mw.mgmtTopic
}

// BootTopic 返回引导主题
func (mw *Middleware) BootTopic() *pubsub.Topic {
	return mw.bootTopic
}

// IsStopped 是否已完成停止
func (mw *Middleware) IsStopped() bool {
	return mw.stopped.Load()
}

// isInternal 是否为常驻主题
func (mw *Middleware) isInternal(t *pubsub.Topic) bool {
	return t == mw.mgmtTopic || t == mw.bootTopic
}

// ============================================================================
//                              主题表
// ============================================================================

// FindTopic 按名称查找主题
func (mw *Middleware) FindTopic(name string) *pubsub.Topic {
	if t, ok := mw.topicCache.Get(name); ok {
		return t
	}
	t := list.FindFirstBy(&mw.topics, func(t *pubsub.Topic, name string) bool {
		return t.Name() == name
	}, name)
	if t != nil {
		mw.topicCache.Add(name, t)
	}
	return t
}

// Topics 返回全部主题的快照
func (mw *Middleware) Topics() []*pubsub.Topic {
	mw.lock.Acquire()
	defer mw.lock.Release()

	var out []*pubsub.Topic
	mw.topics.ForEachUnsafe(func(t *pubsub.Topic) bool {
		out = append(out, t)
		return true
	})
	return out
}

// TouchTopic 查找或创建主题
//
// 同名主题已存在但负载大小不同时返回 ErrPayloadSizeMismatch。
func (mw *Middleware) TouchTopic(name string, size int) (*pubsub.Topic, error) {
	mw.topicsMu.Lock()
	defer mw.topicsMu.Unlock()

	if t := mw.FindTopic(name); t != nil {
		if t.PayloadSize() != size {
			return nil, fmt.Errorf("%w: topic %q is %d bytes, got %d",
				ErrPayloadSizeMismatch, name, t.PayloadSize(), size)
		}
		return t, nil
	}

	t, err := pubsub.NewTopic(mw.lock, mw.clk, name, size)
	if err != nil {
		return nil, err
	}
	t.SetObserver(mw.observer)
	mw.topics.Link(t.RegistryLink())
	mw.topicCache.Add(name, t)
	logger.Debug("创建主题", "topic", name, "size", size)
	return t, nil
}

// ============================================================================
//                              传输表
// ============================================================================

// AddTransport 注册传输
func (mw *Middleware) AddTransport(tr Transport) error {
	mw.transportsMu.Lock()
	defer mw.transportsMu.Unlock()

	for _, existing := range mw.transports {
		if existing.Name() == tr.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateTransport, tr.Name())
		}
	}
	mw.transports = append(mw.transports, tr)
	logger.Info("注册传输", "transport", tr.Name())
	emit(mw.events.transportAdded, eventbus.EvtTransportAdded{Transport: tr.Name()})
	return nil
}

// Transports 返回传输表快照
func (mw *Middleware) Transports() []Transport {
	mw.transportsMu.RLock()
	defer mw.transportsMu.RUnlock()
	return append([]Transport(nil), mw.transports...)
}

// transportFor 返回消息来源对应的传输
func (mw *Middleware) transportFor(src any) Transport {
	if src == nil {
		return nil
	}
	mw.transportsMu.RLock()
	defer mw.transportsMu.RUnlock()
	for _, tr := range mw.transports {
		if any(tr) == src {
			return tr
		}
	}
	return nil
}

// fanOut 对每个传输执行 fn，汇总错误
//
// 遍历快照，fn 中可以再次进入中间件。
func (mw *Middleware) fanOut(skip Transport, fn func(Transport) error) error {
	var errs error
	for _, tr := range mw.Transports() {
		if skip != nil && tr == skip {
			continue
		}
		errs = multierr.Append(errs, fn(tr))
	}
	return errs
}

// ============================================================================
//                              端点注册
// ============================================================================

// AdvertiseLocal 注册本地发布者并通告到所有传输
func (mw *Middleware) AdvertiseLocal(pub *pubsub.LocalPublisher, name string, size int, timeout time.Duration) error {
	t, err := mw.TouchTopic(name, size)
	if err != nil {
		return err
	}
	t.Advertise(pub, timeout)

	if !mw.isInternal(t) {
		if err := mw.fanOut(nil, func(tr Transport) error { return tr.NotifyAdvertisement(t) }); err != nil {
			logger.Warn("通告发送失败", "topic", name, "error", err)
		}
	}
	return nil
}

// AdvertiseRemote 注册远程发布者
//
// 桥接模式下向其他传输转通告。
func (mw *Middleware) AdvertiseRemote(pub *pubsub.RemotePublisher, name string, size int, timeout time.Duration) error {
	t, err := mw.TouchTopic(name, size)
	if err != nil {
		return err
	}
	t.Advertise(pub, timeout)

	if mw.cfg.BridgeMode && !mw.isInternal(t) {
		skip := mw.transportFor(pub.Transport())
		if err := mw.fanOut(skip, func(tr Transport) error { return tr.NotifyAdvertisement(t) }); err != nil {
			logger.Warn("桥接通告发送失败", "topic", name, "error", err)
		}
	}
	return nil
}

// SubscribeLocal 注册本地订阅者并向所有传输请求订阅
//
// 主题内存池按订阅者队列长度扩容。
func (mw *Middleware) SubscribeLocal(sub *pubsub.LocalSubscriber, name string, size int) error {
	t, err := mw.TouchTopic(name, size)
	if err != nil {
		return err
	}
	t.Subscribe(sub, sub.QueueLength())
	t.Grow(sub.QueueLength())

	if !mw.isInternal(t) {
		if err := mw.fanOut(nil, func(tr Transport) error { return tr.NotifySubscription(t) }); err != nil {
			logger.Warn("订阅请求发送失败", "topic", name, "error", err)
		}
	}
	return nil
}

// SubscribeRemote 注册远程订阅者
func (mw *Middleware) SubscribeRemote(sub *pubsub.RemoteSubscriber, name string, size int) error {
	t, err := mw.TouchTopic(name, size)
	if err != nil {
		return err
	}
	t.Subscribe(sub, sub.QueueLength())
	t.Grow(sub.QueueLength())
	return nil
}

// ============================================================================
//                              节点表
// ============================================================================

// NewNode 创建并注册应用节点
func (mw *Middleware) NewNode(name string) (*Node, error) {
	if mw.stopping.Load() {
		return nil, ErrStopped
	}
	return mw.newNode(name, false)
}

func (mw *Middleware) newNode(name string, internal bool) (*Node, error) {
	n, err := newNode(mw, name, internal)
	if err != nil {
		return nil, err
	}

	mw.nodesMu.Lock()
	defer mw.nodesMu.Unlock()

	exists := list.FindFirstBy(&mw.nodes, func(n *Node, name string) bool {
		return n.name == name
	}, name)
	if exists != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, name)
	}
	mw.nodes.Link(&n.registry)
	if !internal {
		mw.running.Add(1)
	}
	return n, nil
}

// Nodes 返回节点表快照
func (mw *Middleware) Nodes() []*Node {
	mw.lock.Acquire()
	defer mw.lock.Release()

	var out []*Node
	mw.nodes.ForEachUnsafe(func(n *Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

// RunningNodes 返回尚未确认停止的应用节点数
func (mw *Middleware) RunningNodes() int {
	return int(mw.running.Load())
}

// ConfirmStop 节点确认停止
func (mw *Middleware) ConfirmStop(n *Node) {
	if n.internal {
		return
	}
	left := mw.running.Add(-1)
	logger.Debug("节点确认停止", "node", n.name, "remaining", left)
}

package rtcan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-r2p/internal/core/message"
	"github.com/dep2p/go-r2p/internal/core/middleware"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
	"github.com/dep2p/go-r2p/internal/core/transport"
	"github.com/dep2p/go-r2p/pkg/lib/log"
)

var logger = log.Logger("core/transport/rtcan")

// Config RTCAN 传输配置
type Config struct {
	// Name 传输名
	Name string

	// NodeID 本节点号
	NodeID uint8

	// TxTimeout 控制帧发送超时
	TxTimeout time.Duration
}

// DefaultTxTimeout 默认控制帧发送超时
const DefaultTxTimeout = 100 * time.Millisecond

// Transport RTCAN 传输
type Transport struct {
	*transport.Base
	cfg Config
	drv Driver

	mu     sync.Mutex
	accept map[ID]string

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

var (
	_ transport.Driver          = (*Transport)(nil)
	_ transport.EndpointFactory = (*Transport)(nil)
	_ transport.RoutePatcher    = (*Transport)(nil)
	_ transport.Runner          = (*Transport)(nil)
)

// New 创建 RTCAN 传输
func New(mw *middleware.Middleware, cfg Config, drv Driver) *Transport {
	if cfg.Name == "" {
		cfg.Name = "rtcan"
	}
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = DefaultTxTimeout
	}
	t := &Transport{
		cfg:    cfg,
		drv:    drv,
		accept: make(map[ID]string),
		ctx:    context.Background(),
	}
	t.Base = transport.NewBase(cfg.Name, mw, t)
	return t
}

// NodeID 返回本节点号
func (t *Transport) NodeID() uint8 {
	return t.cfg.NodeID
}

// DataID 返回本节点发布主题时使用的 id
func (t *Transport) DataID(topic string) ID {
	return NewID(ClassOf(topic), t.cfg.NodeID)
}

// Start 注册到中间件并启动收发协程
func (t *Transport) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(runCtx)
	t.ctx = gctx
	if err := t.Register(); err != nil {
		cancel()
		return err
	}
	t.cancel, t.group = cancel, g

	g.Go(func() error { return t.runRx(gctx) })
	g.Go(func() error { return t.RunTx(gctx, t.sendData) })

	logger.Info("RTCAN 传输已启动", "transport", t.Name(), "node", t.cfg.NodeID)
	return nil
}

// Close 停止收发协程，驱动由调用方关闭
func (t *Transport) Close() error {
	if t.cancel == nil {
		return nil
	}
	t.cancel()
	err := t.group.Wait()
	t.cancel = nil
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrBusClosed) {
		return err
	}
	return nil
}

// ============================================================================
//                              接收
// ============================================================================

func (t *Transport) runRx(ctx context.Context) error {
	for {
		f, err := t.drv.Receive(ctx)
		if err != nil {
			return err
		}
		if err := t.dispatch(f); err != nil {
			logger.Debug("丢弃帧", "transport", t.Name(), "id", f.ID, "error", err)
		}
	}
}

func (t *Transport) dispatch(f Frame) error {
	if f.ID.Class() == ControlClass {
		c, err := ParseControl(f.Data)
		if err != nil {
			return err
		}
		return t.dispatchControl(f.ID.Node(), &c)
	}

	name, ok := t.topicFor(f.ID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownID, f.ID)
	}
	return t.InjectData(name, f.Data, time.Time{})
}

// topicFor 把数据帧 id 映射到主题名
//
// 内部主题按 class 接受任意节点。
func (t *Transport) topicFor(id ID) (string, bool) {
	t.mu.Lock()
	name, ok := t.accept[id]
	t.mu.Unlock()
	if ok {
		return name, true
	}
	switch id.Class() {
	case MgmtClass:
		return middleware.MgmtTopicName, true
	case ClassOf(middleware.BootTopicName):
		return middleware.BootTopicName, true
	}
	return "", false
}

func (t *Transport) dispatchControl(node uint8, c *Control) error {
	m := middleware.MgmtMsg{PubSub: middleware.PubSub{
		Topic:       c.Topic,
		PayloadSize: c.PayloadSize,
		QueueLength: c.QueueLength,
	}}
	switch c.Type {
	case CtrlAdvertise:
		m.Type = middleware.MgmtCmdAdvertise
	case CtrlSubscribeRequest:
		m.Type = middleware.MgmtCmdSubscribeRequest
	case CtrlSubscribeResponse:
		if c.DataID.Node() != node {
			return fmt.Errorf("%w: data id %s from node %02x", ErrInvalidFrame, c.DataID, node)
		}
		if t.Middleware().FindTopic(c.Topic) == nil {
			return nil
		}
		t.mu.Lock()
		t.accept[c.DataID] = c.Topic
		t.mu.Unlock()
		m.Type = middleware.MgmtCmdSubscribeResponse
		m.PubSub.RawParams = c.DataID.Bytes()
	case CtrlStop:
		m.Type = middleware.MgmtCmdStop
	case CtrlReboot:
		m.Type = middleware.MgmtCmdReboot
	case CtrlBootload:
		m.Type = middleware.MgmtCmdBootload
	}
	return t.InjectMgmt(&m)
}

// ============================================================================
//                              发送
// ============================================================================

func (t *Transport) sendData(sub *pubsub.RemoteSubscriber, msg *message.Message, deadline time.Time) error {
	id, ok := ParseID(sub.RawParams())
	if !ok {
		id = t.DataID(sub.Topic().Name())
	}
	ctx := t.ctx
	if !deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}
	return t.drv.Transmit(ctx, Frame{ID: id, Data: msg.Payload()})
}

func (t *Transport) sendControl(c *Control) error {
	ctx, cancel := context.WithTimeout(t.ctx, t.cfg.TxTimeout)
	defer cancel()
	return t.drv.Transmit(ctx, Frame{
		ID:   NewID(ControlClass, t.cfg.NodeID),
		Data: AppendControl(nil, c),
	})
}

func (t *Transport) topicControl(typ byte, topic *pubsub.Topic) *Control {
	return &Control{
		Type:        typ,
		DataID:      t.DataID(topic.Name()),
		PayloadSize: uint8(topic.PayloadSize()),
		Topic:       topic.Name(),
	}
}

// SendAdvertisement 实现 transport.Driver
func (t *Transport) SendAdvertisement(topic *pubsub.Topic) error {
	return t.sendControl(t.topicControl(CtrlAdvertise, topic))
}

// SendSubscriptionRequest 实现 transport.Driver
func (t *Transport) SendSubscriptionRequest(topic *pubsub.Topic, queueLength int) error {
	c := t.topicControl(CtrlSubscribeRequest, topic)
	c.QueueLength = uint8(min(queueLength, 255))
	return t.sendControl(c)
}

// SendSubscriptionResponse 实现 transport.Driver
func (t *Transport) SendSubscriptionResponse(topic *pubsub.Topic, sub *pubsub.RemoteSubscriber) error {
	c := t.topicControl(CtrlSubscribeResponse, topic)
	if id, ok := ParseID(sub.RawParams()); ok {
		c.DataID = id
	}
	return t.sendControl(c)
}

// SendStop 实现 transport.Driver
func (t *Transport) SendStop() error {
	return t.sendControl(&Control{Type: CtrlStop})
}

// SendReboot 实现 transport.Driver
func (t *Transport) SendReboot() error {
	return t.sendControl(&Control{Type: CtrlReboot})
}

// SendBootload 实现 transport.Driver
func (t *Transport) SendBootload() error {
	return t.sendControl(&Control{Type: CtrlBootload})
}

// ============================================================================
//                              端点创建
// ============================================================================

// CreatePublisher 实现 transport.EndpointFactory
func (t *Transport) CreatePublisher(topic *pubsub.Topic, rawParams []byte) (*pubsub.RemotePublisher, error) {
	if id, ok := ParseID(rawParams); ok {
		t.mu.Lock()
		t.accept[id] = topic.Name()
		t.mu.Unlock()
		rawParams = id.Bytes()
	}
	return t.NewRemotePublisher(rawParams), nil
}

// CreateSubscriber 实现 transport.EndpointFactory
//
// 订阅者的路由参数是本节点该主题的数据 id。
func (t *Transport) CreateSubscriber(topic *pubsub.Topic, queueLength int, _ []byte) (*pubsub.RemoteSubscriber, error) {
	return t.NewRemoteSubscriber(queueLength, t.DataID(topic.Name()).Bytes()), nil
}

// ============================================================================
//                              桥接
// ============================================================================

// PatchRoute 实现 transport.RoutePatcher
//
// 转发到本链路的通告与订阅消息带有来源链路的数据 id，改写为本节点
// 在该主题上的数据 id，对端据此过滤本节点发出的数据帧。
func (t *Transport) PatchRoute(topic *pubsub.Topic, msg *message.Message) {
	if topic.Name() != middleware.MgmtTopicName {
		return
	}
	var m middleware.MgmtMsg
	if err := m.Unmarshal(msg.Payload()); err != nil {
		return
	}
	switch m.Type {
	case middleware.MgmtCmdAdvertise, middleware.MgmtCmdSubscribeRequest, middleware.MgmtCmdSubscribeResponse:
	default:
		return
	}
	m.PubSub.RawParams = t.DataID(m.PubSub.Topic).Bytes()
	if err := m.MarshalTo(msg.Payload()); err != nil {
		logger.Debug("改写转发路由失败", "transport", t.Name(), "topic", m.PubSub.Topic, "error", err)
	}
}

package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/yamux"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-r2p/internal/core/message"
	"github.com/dep2p/go-r2p/internal/core/middleware"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
	"github.com/dep2p/go-r2p/internal/core/transport"
	"github.com/dep2p/go-r2p/pkg/lib/log"
)

var logger = log.Logger("core/transport/tcp")

// Config TCP 传输配置
type Config struct {
	// Name 传输名
	Name string

	// Listen 监听地址，与 Dial 二选一
	Listen string

	// Dial 拨号地址
	Dial string

	// DialTimeout 拨号超时
	DialTimeout time.Duration

	// KeepAlive yamux 心跳间隔，0 表示关闭
	KeepAlive time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Name:        "tcp",
		DialTimeout: 10 * time.Second,
		KeepAlive:   30 * time.Second,
	}
}

// ============================================================================
//                              Transport 实现
// ============================================================================

// Transport TCP 传输
type Transport struct {
	*transport.Base
	cfg Config

	listener net.Listener

	mu      sync.Mutex
	link    *link
	ctrlMu  sync.Mutex
	dataMu  sync.Mutex
	ctrlBuf []byte
	dataBuf []byte

	cancel context.CancelFunc
	group  *errgroup.Group
}

var (
	_ transport.Driver = (*Transport)(nil)
	_ transport.Runner = (*Transport)(nil)
)

// New 创建 TCP 传输
func New(mw *middleware.Middleware, cfg Config) *Transport {
	if cfg.Name == "" {
		cfg.Name = "tcp"
	}
	t := &Transport{cfg: cfg}
	t.Base = transport.NewBase(cfg.Name, mw, t)
	return t
}

// Addr 返回监听地址，未监听时返回 nil
func (t *Transport) Addr() net.Addr {
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// Connected 会话是否已建立
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.link != nil
}

// Start 注册到中间件并建立连接
//
// 拨号模式在返回前完成会话建立；监听模式在后台接受第一个连接。
func (t *Transport) Start(ctx context.Context) error {
	if t.cfg.Listen == "" && t.cfg.Dial == "" {
		return ErrNoEndpoint
	}

	var l *link
	if t.cfg.Dial != "" {
		var err error
		if l, err = t.dial(ctx); err != nil {
			return err
		}
	} else {
		var lc net.ListenConfig
		ln, err := lc.Listen(ctx, "tcp", t.cfg.Listen)
		if err != nil {
			return fmt.Errorf("监听失败: %w", err)
		}
		t.listener = ln
	}

	if err := t.Register(); err != nil {
		t.closeEndpoints(l)
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(runCtx)
	t.cancel, t.group = cancel, g

	g.Go(func() error { return t.RunTx(gctx, t.sendData) })
	if l != nil {
		t.serve(gctx, g, l)
	} else {
		g.Go(func() error { return t.accept(gctx, g) })
	}

	logger.Info("TCP 传输已启动", "transport", t.Name(), "listen", t.cfg.Listen, "dial", t.cfg.Dial)
	return nil
}

func (t *Transport) dial(ctx context.Context) (*link, error) {
	d := net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.cfg.Dial)
	if err != nil {
		return nil, fmt.Errorf("连接失败: %w", err)
	}
	l, err := openLink(ctx, conn, DefaultYamuxConfig(t.cfg.KeepAlive))
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return l, nil
}

func (t *Transport) accept(ctx context.Context, g *errgroup.Group) error {
	conn, err := t.listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("accept: %w", err)
	}
	l, err := acceptLink(conn, DefaultYamuxConfig(t.cfg.KeepAlive))
	if err != nil {
		_ = conn.Close()
		return err
	}
	logger.Info("TCP 对端已连接", "transport", t.Name(), "remote", conn.RemoteAddr())
	t.serve(ctx, g, l)
	return nil
}

// serve 启用会话并启动两条接收协程
func (t *Transport) serve(ctx context.Context, g *errgroup.Group, l *link) {
	t.mu.Lock()
	t.link = l
	t.mu.Unlock()

	g.Go(func() error { return t.runRx(ctx, l.ctrl, t.dispatchCtrl) })
	g.Go(func() error { return t.runRx(ctx, l.data, t.dispatchData) })

	// 会话建立后立即补发本地端点，不等周期巡检
	for _, topic := range t.Middleware().Topics() {
		if topic == t.Middleware().MgmtTopic() || topic == t.Middleware().BootTopic() {
			continue
		}
		if topic.HasLocalPublishers() {
			_ = t.NotifyAdvertisement(topic)
		}
		if topic.HasLocalSubscribers() {
			_ = t.NotifySubscription(topic)
		}
	}
}

// Close 关闭会话、监听器并等待协程退出
func (t *Transport) Close() error {
	if t.cancel == nil {
		return nil
	}
	t.cancel()

	t.mu.Lock()
	l := t.link
	t.link = nil
	t.mu.Unlock()

	err := t.closeEndpoints(l)
	if gerr := t.group.Wait(); gerr != nil && !isClosed(gerr) {
		err = multierr.Append(err, gerr)
	}
	t.cancel = nil
	return err
}

func (t *Transport) closeEndpoints(l *link) error {
	var errs error
	if l != nil {
		errs = multierr.Append(errs, l.Close())
	}
	if t.listener != nil {
		if err := t.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func isClosed(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, yamux.ErrSessionShutdown)
}

// ============================================================================
//                              接收
// ============================================================================

func (t *Transport) runRx(ctx context.Context, r io.Reader, dispatch func(*Frame) error) error {
	br := bufio.NewReader(r)
	for ctx.Err() == nil {
		f, err := ReadFrame(br)
		if err != nil {
			if errors.Is(err, ErrInvalidFrame) {
				logger.Debug("丢弃帧", "transport", t.Name(), "error", err)
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := dispatch(&f); err != nil {
			logger.Debug("丢弃帧", "transport", t.Name(), "kind", f.Kind, "topic", f.Topic, "error", err)
		}
	}
	return ctx.Err()
}

func (t *Transport) dispatchData(f *Frame) error {
	if f.Kind != KindData {
		return fmt.Errorf("%w: %s on data stream", ErrInvalidFrame, f.Kind)
	}
	return t.InjectData(f.Topic, f.Payload, time.Time{})
}

func (t *Transport) dispatchCtrl(f *Frame) error {
	m := middleware.MgmtMsg{PubSub: middleware.PubSub{
		Topic:       f.Topic,
		PayloadSize: uint8(f.PayloadSize),
		QueueLength: uint8(min(f.QueueLength, 255)),
		RawParams:   f.RawParams,
	}}
	switch f.Kind {
	case KindAdvertise:
		m.Type = middleware.MgmtCmdAdvertise
	case KindSubscribeRequest:
		m.Type = middleware.MgmtCmdSubscribeRequest
	case KindSubscribeResponse:
		m.Type = middleware.MgmtCmdSubscribeResponse
	case KindStop:
		m.Type = middleware.MgmtCmdStop
	case KindReboot:
		m.Type = middleware.MgmtCmdReboot
	case KindBootload:
		m.Type = middleware.MgmtCmdBootload
	default:
		return fmt.Errorf("%w: %s on control stream", ErrInvalidFrame, f.Kind)
	}
	return t.InjectMgmt(&m)
}

// ============================================================================
//                              发送
// ============================================================================

func (t *Transport) current() *link {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.link
}

func (t *Transport) writeCtrl(f *Frame) error {
	l := t.current()
	if l == nil {
		return ErrNotConnected
	}
	t.ctrlMu.Lock()
	defer t.ctrlMu.Unlock()
	t.ctrlBuf = AppendFrame(t.ctrlBuf[:0], f)
	_, err := l.ctrl.Write(t.ctrlBuf)
	return err
}

func (t *Transport) sendData(sub *pubsub.RemoteSubscriber, msg *message.Message, deadline time.Time) error {
	l := t.current()
	if l == nil {
		return ErrNotConnected
	}
	t.dataMu.Lock()
	defer t.dataMu.Unlock()
	t.dataBuf = AppendFrame(t.dataBuf[:0], &Frame{
		Kind:     KindData,
		Topic:    sub.Topic().Name(),
		Payload:  msg.Payload(),
		Deadline: deadline,
	})
	_, err := l.data.Write(t.dataBuf)
	return err
}

func (t *Transport) pubsubFrame(kind Kind, topic *pubsub.Topic) *Frame {
	return &Frame{
		Kind:        kind,
		Topic:       topic.Name(),
		PayloadSize: topic.PayloadSize(),
		Module:      t.Middleware().ModuleName(),
	}
}

// SendAdvertisement 实现 transport.Driver
func (t *Transport) SendAdvertisement(topic *pubsub.Topic) error {
	return t.writeCtrl(t.pubsubFrame(KindAdvertise, topic))
}

// SendSubscriptionRequest 实现 transport.Driver
func (t *Transport) SendSubscriptionRequest(topic *pubsub.Topic, queueLength int) error {
	f := t.pubsubFrame(KindSubscribeRequest, topic)
	f.QueueLength = queueLength
	return t.writeCtrl(f)
}

// SendSubscriptionResponse 实现 transport.Driver
func (t *Transport) SendSubscriptionResponse(topic *pubsub.Topic, sub *pubsub.RemoteSubscriber) error {
	f := t.pubsubFrame(KindSubscribeResponse, topic)
	f.RawParams = sub.RawParams()
	return t.writeCtrl(f)
}

// SendStop 实现 transport.Driver
func (t *Transport) SendStop() error {
	return t.writeCtrl(&Frame{Kind: KindStop, Module: t.Middleware().ModuleName()})
}

// SendReboot 实现 transport.Driver
func (t *Transport) SendReboot() error {
	return t.writeCtrl(&Frame{Kind: KindReboot, Module: t.Middleware().ModuleName()})
}

// SendBootload 实现 transport.Driver
func (t *Transport) SendBootload() error {
	return t.writeCtrl(&Frame{Kind: KindBootload, Module: t.Middleware().ModuleName()})
}

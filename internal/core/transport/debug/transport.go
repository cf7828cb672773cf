package debug

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-r2p/internal/core/message"
	"github.com/dep2p/go-r2p/internal/core/middleware"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
	"github.com/dep2p/go-r2p/internal/core/transport"
	"github.com/dep2p/go-r2p/pkg/lib/log"
)

var logger = log.Logger("core/transport/debug")

// Opener 打开底层字节流
type Opener func(ctx context.Context) (io.ReadWriteCloser, error)

// Transport 调试传输
type Transport struct {
	*transport.Base

	open Opener

	writeMu sync.Mutex
	rwc     io.ReadWriteCloser
	buf     []byte

	cancel context.CancelFunc
	group  *errgroup.Group
}

var (
	_ transport.Driver = (*Transport)(nil)
	_ transport.Runner = (*Transport)(nil)
)

// New 在已打开的字节流上创建调试传输
func New(mw *middleware.Middleware, name string, rwc io.ReadWriteCloser) *Transport {
	return NewWithOpener(mw, name, func(context.Context) (io.ReadWriteCloser, error) {
		return rwc, nil
	})
}

// Dial 创建启动时拨号的调试传输
func Dial(mw *middleware.Middleware, name, network, address string) *Transport {
	return NewWithOpener(mw, name, func(ctx context.Context) (io.ReadWriteCloser, error) {
		var d net.Dialer
		return d.DialContext(ctx, network, address)
	})
}

// NewWithOpener 创建调试传输，Start 时调用 open
func NewWithOpener(mw *middleware.Middleware, name string, open Opener) *Transport {
	t := &Transport{open: open}
	t.Base = transport.NewBase(name, mw, t)
	return t
}

// Start 打开链路，注册到中间件并启动收发协程
func (t *Transport) Start(ctx context.Context) error {
	rwc, err := t.open(ctx)
	if err != nil {
		return fmt.Errorf("open %s: %w", t.Name(), err)
	}
	t.rwc = rwc

	if err := t.Register(); err != nil {
		_ = rwc.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return t.runRx(gctx) })
	g.Go(func() error {
		// 清掉串口初始化可能留下的残余字符
		if err := t.write(func(b []byte) []byte { return append(b, "\r\n\r\n\r\n"...) }); err != nil {
			return fmt.Errorf("write preamble: %w", err)
		}
		return t.RunTx(gctx, t.sendData)
	})
	t.cancel, t.group = cancel, g

	logger.Info("调试传输已启动", "transport", t.Name())
	return nil
}

// Close 关闭链路并等待收发协程退出
func (t *Transport) Close() error {
	if t.cancel == nil {
		return nil
	}
	t.cancel()
	err := t.rwc.Close()
	if gerr := t.group.Wait(); gerr != nil && !isClosed(gerr) {
		err = multierr.Append(err, gerr)
	}
	t.cancel = nil
	return err
}

func isClosed(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}

// ============================================================================
//                              接收
// ============================================================================

func (t *Transport) runRx(ctx context.Context) error {
	dec := NewDecoder(t.rwc)
	for ctx.Err() == nil {
		f, err := dec.Next()
		if err != nil {
			if errors.Is(err, ErrFrame) || errors.Is(err, ErrChecksum) {
				logger.Debug("丢弃帧", "transport", t.Name(), "error", err)
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := t.dispatch(&f); err != nil {
			logger.Debug("丢弃帧", "transport", t.Name(), "topic", f.Topic, "error", err)
		}
	}
	return ctx.Err()
}

func (t *Transport) dispatch(f *Frame) error {
	if !f.IsMgmt() {
		return t.InjectData(f.Topic, f.Payload, time.Time{})
	}

	m := middleware.MgmtMsg{PubSub: middleware.PubSub{Topic: f.Target}}
	switch f.Cmd {
	case CmdAdvertise:
		m.Type = middleware.MgmtCmdAdvertise
		if topic := t.Middleware().FindTopic(f.Target); topic != nil {
			m.PubSub.PayloadSize = uint8(topic.PayloadSize())
		} else {
			// 帧中不带负载大小，未知主题只能交给控制面忽略
			return nil
		}
	case CmdSubscribeRequest:
		m.Type = middleware.MgmtCmdSubscribeRequest
		m.PubSub.QueueLength = f.QueueLength
	case CmdSubscribeResponse:
		m.Type = middleware.MgmtCmdSubscribeResponse
	case CmdStop:
		m.Type = middleware.MgmtCmdStop
	case CmdReboot:
		m.Type = middleware.MgmtCmdReboot
	case CmdBootload:
		m.Type = middleware.MgmtCmdBootload
	default:
		return fmt.Errorf("%w: command %q", ErrFrame, f.Cmd)
	}
	return t.InjectMgmt(&m)
}

// ============================================================================
//                              发送
// ============================================================================

func (t *Transport) write(encode func([]byte) []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.rwc == nil {
		return transport.ErrClosed
	}
	t.buf = encode(t.buf[:0])
	_, err := t.rwc.Write(t.buf)
	return err
}

func (t *Transport) sendData(sub *pubsub.RemoteSubscriber, msg *message.Message, deadline time.Time) error {
	topic := sub.Topic()
	return t.write(func(b []byte) []byte {
		return AppendData(b, deadline, topic.Name(), msg.Payload())
	})
}

func (t *Transport) sendPubSub(cmd byte, topic *pubsub.Topic, queueLength int) error {
	now := t.Middleware().Clock().Now()
	module := t.Middleware().ModuleName()
	return t.write(func(b []byte) []byte {
		return AppendPubSub(b, now, cmd, uint8(min(queueLength, 255)), module, topic.Name())
	})
}

func (t *Transport) sendCommand(cmd byte) error {
	now := t.Middleware().Clock().Now()
	return t.write(func(b []byte) []byte {
		return AppendCommand(b, now, cmd)
	})
}

// SendAdvertisement 实现 transport.Driver
func (t *Transport) SendAdvertisement(topic *pubsub.Topic) error {
	return t.sendPubSub(CmdAdvertise, topic, 0)
}

// SendSubscriptionRequest 实现 transport.Driver
func (t *Transport) SendSubscriptionRequest(topic *pubsub.Topic, queueLength int) error {
	return t.sendPubSub(CmdSubscribeRequest, topic, queueLength)
}

// SendSubscriptionResponse 实现 transport.Driver
func (t *Transport) SendSubscriptionResponse(topic *pubsub.Topic, _ *pubsub.RemoteSubscriber) error {
	return t.sendPubSub(CmdSubscribeResponse, topic, 0)
}

// SendStop 实现 transport.Driver
func (t *Transport) SendStop() error {
	return t.sendCommand(CmdStop)
}

// SendReboot 实现 transport.Driver
func (t *Transport) SendReboot() error {
	return t.sendCommand(CmdReboot)
}

// SendBootload 实现 transport.Driver
func (t *Transport) SendBootload() error {
	return t.sendCommand(CmdBootload)
}

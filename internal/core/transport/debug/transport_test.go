package debug

import (
	"context"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-r2p/internal/core/message"
	"github.com/dep2p/go-r2p/internal/core/middleware"
	"github.com/dep2p/go-r2p/internal/core/osal"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
)

func newMiddleware(t *testing.T, module string, opts ...middleware.Option) *middleware.Middleware {
	t.Helper()
	cfg := middleware.DefaultConfig()
	cfg.ModuleName = module
	cfg.SpinTimeout = 10 * time.Millisecond
	cfg.AnnounceInterval = 20 * time.Millisecond
	mw, err := middleware.New(cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, mw.Initialize(context.Background()))
	t.Cleanup(func() { _ = mw.Close() })
	return mw
}

// connect 用内存管道连接两个中间件
func connect(t *testing.T, a, b *middleware.Middleware) (*Transport, *Transport) {
	t.Helper()
	ca, cb := net.Pipe()
	ta := New(a, "dbg", ca)
	tb := New(b, "dbg", cb)
	require.NoError(t, ta.Start(context.Background()))
	require.NoError(t, tb.Start(context.Background()))
	t.Cleanup(func() {
		_ = ta.Close()
		_ = tb.Close()
	})
	return ta, tb
}

func TestTransport_PublishAcrossPipe(t *testing.T) {
	a := newMiddleware(t, "A")
	b := newMiddleware(t, "B")
	_, tb := connect(t, a, b)

	var got atomic.Int32
	var last atomic.Uint32
	sink, err := b.NewNode("sink")
	require.NoError(t, err)
	require.NoError(t, sink.Subscribe(pubsub.NewLocalSubscriber(4, func(msg *message.Message) bool {
		last.Store(uint32(msg.Payload()[0]))
		got.Add(1)
		return true
	}), "led", 1))

	src, err := a.NewNode("src")
	require.NoError(t, err)
	pub := pubsub.NewLocalPublisher()
	require.NoError(t, src.Advertise(pub, "led", 1, osal.Infinite))

	// 握手完成后 B 侧出现远程发布者，A 侧出现远程订阅者
	require.Eventually(t, func() bool {
		return tb.FindPublisher("led") != nil && a.FindTopic("led").HasRemoteSubscribers()
	}, 2*time.Second, 5*time.Millisecond)

	msg, ok := pub.Alloc()
	require.True(t, ok)
	msg.Payload()[0] = 0x2A
	assert.True(t, pub.Publish(msg))

	deadline := time.Now().Add(2 * time.Second)
	for got.Load() == 0 && time.Now().Before(deadline) {
		sink.Spin(10 * time.Millisecond)
	}
	assert.Equal(t, int32(1), got.Load())
	assert.Equal(t, uint32(0x2A), last.Load())
}

func TestTransport_RemoteReboot(t *testing.T) {
	var reboots atomic.Int32
	a := newMiddleware(t, "A")
	b := newMiddleware(t, "B", middleware.WithBoard(middleware.BoardFunc(func() { reboots.Add(1) })))
	ta, _ := connect(t, a, b)

	require.NoError(t, ta.NotifyReboot())
	assert.Eventually(t, func() bool { return reboots.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestTransport_CloseIdempotent(t *testing.T) {
	a := newMiddleware(t, "A")
	ca, cb := net.Pipe()
	defer cb.Close()

	ta := New(a, "dbg", ca)
	require.NoError(t, ta.Start(context.Background()))
	go func() {
		buf := make([]byte, 256)
		for {
			if _, err := cb.Read(buf); err != nil {
				return
			}
		}
	}()

	assert.NoError(t, ta.Close())
	assert.NoError(t, ta.Close())
	assert.ErrorIs(t, ta.SendStop(), io.ErrClosedPipe)
}

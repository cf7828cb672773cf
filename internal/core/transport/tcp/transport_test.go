package tcp

import (
	"context"
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

// pair 在回环地址上连接两个中间件，a 拨号，b 监听
func pair(t *testing.T, a, b *middleware.Middleware) (*Transport, *Transport) {
	t.Helper()
	tb := New(b, Config{Name: "tcp", Listen: "127.0.0.1:0", KeepAlive: time.Second})
	require.NoError(t, tb.Start(context.Background()))
	t.Cleanup(func() { _ = tb.Close() })

	ta := New(a, Config{Name: "tcp", Dial: tb.Addr().String(), DialTimeout: time.Second})
	require.NoError(t, ta.Start(context.Background()))
	t.Cleanup(func() { _ = ta.Close() })

	require.Eventually(t, tb.Connected, 2*time.Second, 5*time.Millisecond)
	return ta, tb
}

func TestTransport_StartRequiresEndpoint(t *testing.T) {
	mw := newMiddleware(t, "A")
	tr := New(mw, Config{})
	assert.ErrorIs(t, tr.Start(context.Background()), ErrNoEndpoint)
	assert.Equal(t, "tcp", tr.Name())
	assert.Nil(t, tr.Addr())
}

func TestTransport_NotConnected(t *testing.T) {
	mw := newMiddleware(t, "A")
	tr := New(mw, Config{Listen: "127.0.0.1:0"})
	require.NoError(t, tr.Start(context.Background()))
	defer tr.Close()

	assert.NotNil(t, tr.Addr())
	assert.False(t, tr.Connected())
	assert.ErrorIs(t, tr.SendStop(), ErrNotConnected)
}

func TestTransport_DialFailure(t *testing.T) {
	mw := newMiddleware(t, "A")
	probe := New(mw, Config{Name: "probe", Listen: "127.0.0.1:0"})
	require.NoError(t, probe.Start(context.Background()))
	addr := probe.Addr().String()
	require.NoError(t, probe.Close())

	tr := New(mw, Config{Name: "dialer", Dial: addr, DialTimeout: 200 * time.Millisecond})
	assert.Error(t, tr.Start(context.Background()))
}

func TestTransport_PublishAcrossTCP(t *testing.T) {
	a := newMiddleware(t, "A")
	b := newMiddleware(t, "B")

	var got atomic.Int32
	var last atomic.Uint32
	sink, err := b.NewNode("sink")
	require.NoError(t, err)
	require.NoError(t, sink.Subscribe(pubsub.NewLocalSubscriber(4, func(msg *message.Message) bool {
		last.Store(uint32(msg.Payload()[1]))
		got.Add(1)
		return true
	}), "imu", 2))

	src, err := a.NewNode("src")
	require.NoError(t, err)
	pub := pubsub.NewLocalPublisher()
	require.NoError(t, src.Advertise(pub, "imu", 2, osal.Infinite))

	_, tb := pair(t, a, b)

	require.Eventually(t, func() bool {
		return tb.FindPublisher("imu") != nil && a.FindTopic("imu").HasRemoteSubscribers()
	}, 2*time.Second, 5*time.Millisecond)

	msg, ok := pub.Alloc()
	require.True(t, ok)
	msg.Payload()[0], msg.Payload()[1] = 0x01, 0x7F
	assert.True(t, pub.Publish(msg))

	deadline := time.Now().Add(2 * time.Second)
	for got.Load() == 0 && time.Now().Before(deadline) {
		sink.Spin(10 * time.Millisecond)
	}
	assert.Equal(t, int32(1), got.Load())
	assert.Equal(t, uint32(0x7F), last.Load())
}

func TestTransport_RemoteReboot(t *testing.T) {
	var reboots atomic.Int32
	a := newMiddleware(t, "A")
	b := newMiddleware(t, "B", middleware.WithBoard(middleware.BoardFunc(func() { reboots.Add(1) })))
	ta, _ := pair(t, a, b)

	require.NoError(t, ta.NotifyReboot())
	assert.Eventually(t, func() bool { return reboots.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestTransport_CloseIdempotent(t *testing.T) {
	a := newMiddleware(t, "A")
	b := newMiddleware(t, "B")
	ta, tb := pair(t, a, b)

	assert.NoError(t, ta.Close())
	assert.NoError(t, ta.Close())
	assert.ErrorIs(t, ta.SendStop(), ErrNotConnected)
	assert.NoError(t, tb.Close())
}

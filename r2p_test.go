package r2p

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-r2p/config"
	"github.com/dep2p/go-r2p/internal/core/transport/rtcan"
	"github.com/dep2p/go-r2p/internal/core/transport/tcp"
	"github.com/dep2p/go-r2p/tests/mocks"
	"github.com/dep2p/go-r2p/tests/testutil"
)

type imu struct {
	Seq   uint32
	Accel [3]int16
}

func fastConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Middleware.SpinTimeout = config.Duration(10 * time.Millisecond)
	cfg.Middleware.AnnounceInterval = config.Duration(20 * time.Millisecond)
	cfg.Middleware.StopPollInterval = config.Duration(5 * time.Millisecond)
	cfg.Middleware.StopTimeout = config.Duration(time.Second)
	return cfg
}

func startRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	rt, err := Start(context.Background(), append([]Option{WithConfig(fastConfig())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestNew_OptionErrors(t *testing.T) {
	_, err := New(WithConfig(nil))
	assert.Error(t, err)

	_, err = New(WithModuleName("too_long_name"))
	assert.Error(t, err)

	_, err = New(WithRTCAN(1, nil))
	assert.ErrorIs(t, err, ErrNoCANDriver)

	_, err = New(WithBridgeMode(true), WithTCPListen("127.0.0.1:0"))
	assert.Error(t, err)

	_, err = New(WithPreset("nope"))
	assert.Error(t, err)

	_, err = New(WithLogLevel("loud"))
	assert.Error(t, err)
}

func TestRuntime_Lifecycle(t *testing.T) {
	rt, err := New(WithConfig(fastConfig()), WithModuleName("LIFE"), WithMetrics(false))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, rt.State())
	assert.ErrorIs(t, rt.Stop(context.Background()), ErrNotStarted)

	_, err = rt.NewNode("n")
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, rt.Start(context.Background()))
	assert.Equal(t, StateRunning, rt.State())
	assert.Equal(t, "LIFE", rt.Name())
	assert.Nil(t, rt.Metrics())
	assert.Empty(t, rt.Transports())
	assert.ErrorIs(t, rt.Start(context.Background()), ErrAlreadyStarted)

	require.NoError(t, rt.Close())
	require.NoError(t, rt.Close())
	assert.Equal(t, StateClosed, rt.State())
	assert.ErrorIs(t, rt.Start(context.Background()), ErrClosed)
}

func TestRuntime_GeneratesModuleName(t *testing.T) {
	rt := startRuntime(t)
	assert.Len(t, rt.Name(), 7)
	assert.Equal(t, rt.Name(), rt.Config().Module.Name)
}

func TestRuntime_LocalPubSub(t *testing.T) {
	rt := startRuntime(t, WithModuleName("LOCAL"))

	pubNode, err := rt.NewNode("pub")
	require.NoError(t, err)
	subNode, err := rt.NewNode("sub")
	require.NoError(t, err)

	var got []imu
	var mu sync.Mutex
	_, err = Subscribe(subNode, "imu", 4, func(v *imu) {
		mu.Lock()
		got = append(got, *v)
		mu.Unlock()
	})
	require.NoError(t, err)

	pub, err := Advertise[imu](pubNode, "imu", 0)
	require.NoError(t, err)
	assert.Equal(t, 10, pub.Topic().PayloadSize())

	for i := uint32(1); i <= 3; i++ {
		require.NoError(t, pub.Publish(&imu{Seq: i, Accel: [3]int16{1, -2, 3}}))
	}
	testutil.Drain(subNode)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 3)
	assert.Equal(t, uint32(1), got[0].Seq)
	assert.Equal(t, [3]int16{1, -2, 3}, got[2].Accel)

	info, eps := rt.NetworkState()
	assert.Equal(t, "LOCAL", info.Name)
	assert.NotEmpty(t, eps)
}

func TestAdvertise_UnsizedType(t *testing.T) {
	rt := startRuntime(t)
	n, err := rt.NewNode("n")
	require.NoError(t, err)

	_, err = Advertise[[]byte](n, "raw", 0)
	assert.ErrorIs(t, err, ErrUnsizedType)
	_, err = Subscribe(n, "raw", 1, func(*string) {})
	assert.ErrorIs(t, err, ErrUnsizedType)
}

func TestPublish_PoolExhausted(t *testing.T) {
	rt := startRuntime(t)
	pubNode, err := rt.NewNode("pub")
	require.NoError(t, err)
	subNode, err := rt.NewNode("sub")
	require.NoError(t, err)

	_, err = Subscribe(subNode, "imu", 1, func(*imu) {})
	require.NoError(t, err)
	pub, err := Advertise[imu](pubNode, "imu", 0)
	require.NoError(t, err)

	// 队列长度 1 的主题只有一个消息块，未被取走时再次分配失败
	require.NoError(t, pub.Publish(&imu{Seq: 1}))
	assert.ErrorIs(t, pub.Publish(&imu{Seq: 2}), ErrPoolExhausted)
}

func TestRuntime_StopEntersBootMode(t *testing.T) {
	rt := startRuntime(t)
	n, err := rt.NewNode("app")
	require.NoError(t, err)
	testutil.SpinNode(t, n)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rt.Stop(ctx))
	assert.Equal(t, StateBoot, rt.State())
	assert.True(t, rt.Middleware().IsStopped())
	assert.True(t, n.Stopped())
	require.NoError(t, rt.Stop(ctx))
}

func TestRuntime_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rt := startRuntime(t, WithRegistry(reg))
	require.NotNil(t, rt.Metrics())
	require.NotNil(t, rt.Gatherer())

	pubNode, err := rt.NewNode("pub")
	require.NoError(t, err)
	subNode, err := rt.NewNode("sub")
	require.NoError(t, err)
	_, err = Subscribe(subNode, "imu", 2, func(*imu) {})
	require.NoError(t, err)
	pub, err := Advertise[imu](pubNode, "imu", 0)
	require.NoError(t, err)
	require.NoError(t, pub.Publish(&imu{}))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	var delivered int64
	for _, s := range rt.Metrics().Snapshot() {
		if s.Topic == "imu" {
			delivered = s.Delivered
		}
	}
	assert.Equal(t, int64(1), delivered)
}

func TestRuntime_PubSubOverTCP(t *testing.T) {
	b := startRuntime(t, WithModuleName("B"), WithTCPListen("127.0.0.1:0"))
	require.Len(t, b.Transports(), 1)
	tb, ok := b.Transports()[0].(*tcp.Transport)
	require.True(t, ok)

	a := startRuntime(t, WithModuleName("A"), WithTCPDial(tb.Addr().String()))

	var got atomic.Uint32
	subNode, err := b.NewNode("sub")
	require.NoError(t, err)
	_, err = Subscribe(subNode, "imu", 4, func(v *imu) { got.Store(v.Seq) })
	require.NoError(t, err)
	testutil.SpinNode(t, subNode)

	pubNode, err := a.NewNode("pub")
	require.NoError(t, err)
	pub, err := Advertise[imu](pubNode, "imu", 0)
	require.NoError(t, err)

	seq := uint32(0)
	testutil.Eventually(t, 3*time.Second, func() bool {
		seq++
		_ = pub.Publish(&imu{Seq: seq})
		return got.Load() != 0
	}, "远端未收到消息")
}

func TestRuntime_PubSubOverRTCAN(t *testing.T) {
	bus := rtcan.NewVirtualBus()
	a := startRuntime(t, WithModuleName("A"), WithRTCAN(0x0A, bus.Attach(64)))
	b := startRuntime(t, WithModuleName("B"), WithRTCAN(0x0B, bus.Attach(64)))

	var got atomic.Uint32
	subNode, err := b.NewNode("sub")
	require.NoError(t, err)
	_, err = Subscribe(subNode, "imu", 4, func(v *imu) { got.Store(v.Seq) })
	require.NoError(t, err)
	testutil.SpinNode(t, subNode)

	pubNode, err := a.NewNode("pub")
	require.NoError(t, err)
	pub, err := Advertise[imu](pubNode, "imu", 0)
	require.NoError(t, err)

	seq := uint32(0)
	testutil.Eventually(t, 3*time.Second, func() bool {
		seq++
		_ = pub.Publish(&imu{Seq: seq})
		return got.Load() != 0
	}, "远端未收到消息")
}

func TestRuntime_RebootNotifiesTransports(t *testing.T) {
	board := &mocks.MockBoard{}
	rt := startRuntime(t, WithBoard(board))
	tr := mocks.NewMockTransport("mock")
	require.NoError(t, rt.Middleware().AddTransport(tr))

	rt.Reboot()
	assert.Equal(t, 1, tr.Reboots())
	assert.Equal(t, 1, board.Reboots())
}

func TestRuntime_AdvertiseReachesTransport(t *testing.T) {
	rt := startRuntime(t)
	tr := mocks.NewMockTransport("mock")
	require.NoError(t, rt.Middleware().AddTransport(tr))

	n, err := rt.NewNode("pub")
	require.NoError(t, err)
	_, err = Advertise[imu](n, "imu", 0)
	require.NoError(t, err)
	_, err = Subscribe(n, "cmd", 2, func(*imu) {})
	require.NoError(t, err)

	assert.Equal(t, []string{"imu"}, tr.Advertised())
	assert.Equal(t, []string{"cmd"}, tr.SubscriptionRequests())
}

func TestRuntime_RTCANControlFrames(t *testing.T) {
	drv := mocks.NewMockCANDriver(8)
	rt := startRuntime(t, WithRTCAN(0x0A, drv))

	n, err := rt.NewNode("pub")
	require.NoError(t, err)
	_, err = Advertise[imu](n, "imu", 0)
	require.NoError(t, err)

	testutil.Eventually(t, time.Second, func() bool {
		for _, f := range drv.Sent() {
			if f.ID.Class() != rtcan.ControlClass {
				continue
			}
			c, err := rtcan.ParseControl(f.Data)
			if err == nil && c.Type == rtcan.CtrlAdvertise && c.Topic == "imu" {
				return c.PayloadSize == 10 && f.ID.Node() == 0x0A
			}
		}
		return false
	}, "未发送通告控制帧")
}

func TestRuntime_IntrospectServer(t *testing.T) {
	cfg := fastConfig()
	cfg.Metrics.ListenAddr = "127.0.0.1:0"
	rt := startRuntime(t, WithConfig(cfg), WithModuleName("WEB"))

	addr := rt.IntrospectAddr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Empty(t, startRuntime(t).IntrospectAddr())
}

func TestSubscribeEvent(t *testing.T) {
	rt := startRuntime(t)
	sub, err := SubscribeEvent[EvtTransportAdded](rt, 4)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, rt.Middleware().AddTransport(mocks.NewMockTransport("mock")))
	select {
	case evt := <-sub.Out():
		assert.Equal(t, "mock", evt.Transport)
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
}

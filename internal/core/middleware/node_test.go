package middleware

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-r2p/internal/core/message"
	"github.com/dep2p/go-r2p/internal/core/osal"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
	"github.com/dep2p/go-r2p/pkg/types"
)

func TestNewNode_Validation(t *testing.T) {
	mw := newTestMiddleware(t, testConfig())

	_, err := mw.NewNode("way_too_long")
	assert.ErrorIs(t, err, types.ErrNameTooLong)

	_, err = mw.NewNode("app")
	require.NoError(t, err)
	_, err = mw.NewNode("app")
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestSpin_TimeoutReturnsFalse(t *testing.T) {
	mw := newTestMiddleware(t, testConfig())
	node, err := mw.NewNode("app")
	require.NoError(t, err)
	require.NoError(t, node.Subscribe(pubsub.NewLocalSubscriber(1, nil), "led", 1))

	start := time.Now()
	assert.False(t, node.Spin(100*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestSpin_DeliversEachMessageOnce(t *testing.T) {
	mw := newTestMiddleware(t, testConfig())

	const total = 50
	var got atomic.Int32
	seen := make(map[byte]int)
	cb := func(msg *message.Message) bool {
		seen[msg.Payload()[0]]++
		got.Add(1)
		return true
	}

	sink, err := mw.NewNode("sink")
	require.NoError(t, err)
	require.NoError(t, sink.Subscribe(pubsub.NewLocalSubscriber(total, cb), "led", 1))

	src, err := mw.NewNode("src")
	require.NoError(t, err)
	pub := pubsub.NewLocalPublisher()
	require.NoError(t, src.Advertise(pub, "led", 1, osal.Infinite))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range total {
			msg, ok := pub.Alloc()
			if !assert.True(t, ok) {
				return
			}
			msg.Payload()[0] = byte(i)
			assert.True(t, pub.Publish(msg))
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for got.Load() < total && time.Now().Before(deadline) {
		sink.Spin(10 * time.Millisecond)
	}
	wg.Wait()
	for sink.Spin(osal.Immediate) {
	}

	assert.Equal(t, int32(total), got.Load())
	assert.Len(t, seen, total)
	for v, n := range seen {
		assert.Equal(t, 1, n, "payload %d", v)
	}
	assert.Equal(t, total, mw.FindTopic("led").FreeCount())
}

func TestSpin_BitOrder(t *testing.T) {
	mw := newTestMiddleware(t, testConfig())
	node, err := mw.NewNode("app")
	require.NoError(t, err)

	var order []string
	pubs := make([]*pubsub.LocalPublisher, 3)
	for i := range pubs {
		name := fmt.Sprintf("t%d", i)
		sub := pubsub.NewLocalSubscriber(1, func(*message.Message) bool {
			order = append(order, name)
			return true
		})
		require.NoError(t, node.Subscribe(sub, name, 1))
		pubs[i] = pubsub.NewLocalPublisher()
		require.NoError(t, node.Advertise(pubs[i], name, 1, osal.Infinite))
	}

	for _, i := range []int{2, 0, 1} {
		msg, ok := pubs[i].Alloc()
		require.True(t, ok)
		pubs[i].Publish(msg)
	}

	assert.True(t, node.Spin(osal.Immediate))
	assert.Equal(t, []string{"t0", "t1", "t2"}, order)
}

func TestSubscribe_TooManySubscribers(t *testing.T) {
	mw := newTestMiddleware(t, testConfig())
	node, err := mw.NewNode("app")
	require.NoError(t, err)

	for range MaxSubscribers {
		require.NoError(t, node.Subscribe(pubsub.NewLocalSubscriber(1, nil), "led", 1))
	}
	err = node.Subscribe(pubsub.NewLocalSubscriber(1, nil), "led", 1)
	assert.ErrorIs(t, err, ErrTooManySubscribers)
	assert.Len(t, node.Subscribers(), MaxSubscribers)
}

func TestSubscribe_BoundSubscriberLeavesNoTrace(t *testing.T) {
	mw := newTestMiddleware(t, testConfig())
	sub := pubsub.NewLocalSubscriber(3, nil)
	require.NoError(t, mw.SubscribeLocal(sub, "led", 1))

	node, err := mw.NewNode("app")
	require.NoError(t, err)
	assert.Panics(t, func() { _ = node.Subscribe(sub, "imu", 1) })
	assert.Empty(t, node.Subscribers())
	assert.NotPanics(t, func() { sub.Attach(node, 5) }, "通知目标不应被修改")

	// 直接重复绑定同样在扩容前拒绝
	other, err := mw.TouchTopic("gyro", 1)
	require.NoError(t, err)
	assert.Panics(t, func() { _ = mw.SubscribeLocal(sub, "gyro", 1) })
	assert.Equal(t, 0, other.FreeCount())
	assert.Same(t, mw.FindTopic("led"), sub.Topic())
}

func TestWake_UsesReservedBit(t *testing.T) {
	mw := newTestMiddleware(t, testConfig())
	node, err := mw.NewNode("app")
	require.NoError(t, err)

	var calls atomic.Int32
	require.NoError(t, node.Subscribe(pubsub.NewLocalSubscriber(1, func(*message.Message) bool {
		calls.Add(1)
		return true
	}), "led", 1))

	node.wake()
	pending := node.event.Pending()
	assert.True(t, pending.Has(wakeBit))
	assert.False(t, pending.Has(0))

	assert.True(t, node.Spin(osal.Immediate))
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, osal.EventMask(0), node.event.Pending())
}

func TestSubscribe_PayloadSizeMismatch(t *testing.T) {
	mw := newTestMiddleware(t, testConfig())
	node, err := mw.NewNode("app")
	require.NoError(t, err)

	require.NoError(t, node.Advertise(pubsub.NewLocalPublisher(), "led", 4, osal.Infinite))
	err = node.Subscribe(pubsub.NewLocalSubscriber(1, nil), "led", 8)
	assert.ErrorIs(t, err, ErrPayloadSizeMismatch)
	assert.Empty(t, node.Subscribers())
}

func TestRequestStop(t *testing.T) {
	mw := newTestMiddleware(t, testConfig())
	node, err := mw.NewNode("app")
	require.NoError(t, err)
	require.Equal(t, 1, mw.RunningNodes())

	node.RequestStop()
	assert.True(t, node.Spin(osal.Immediate))
	assert.True(t, node.Stopped())
	assert.Equal(t, 0, mw.RunningNodes())

	// 重复请求不会重复确认
	node.RequestStop()
	node.Spin(osal.Immediate)
	assert.Equal(t, 0, mw.RunningNodes())
}

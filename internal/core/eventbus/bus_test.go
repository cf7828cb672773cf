package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

type evtA struct{ N int }
type evtB struct{ S string }

func recv[E any](t *testing.T, sub *Subscription[E]) E {
	t.Helper()
	select {
	case e, ok := <-sub.Out():
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
	var zero E
	return zero
}

func TestBus_EmitSubscribe(t *testing.T) {
	bus := NewBus()
	sub, err := Subscribe[evtA](bus)
	require.NoError(t, err)
	defer sub.Close()

	em, err := NewEmitter[evtA](bus)
	require.NoError(t, err)
	defer em.Close()

	require.NoError(t, em.Emit(evtA{N: 1}))
	require.NoError(t, em.Emit(evtA{N: 2}))
	assert.Equal(t, 1, recv(t, sub).N)
	assert.Equal(t, 2, recv(t, sub).N)
}

func TestBus_TypesAreIsolated(t *testing.T) {
	bus := NewBus()
	subA, err := Subscribe[evtA](bus)
	require.NoError(t, err)
	subB, err := Subscribe[evtB](bus)
	require.NoError(t, err)

	emB, err := NewEmitter[evtB](bus)
	require.NoError(t, err)
	require.NoError(t, emB.Emit(evtB{S: "x"}))

	assert.Equal(t, "x", recv(t, subB).S)
	assert.Empty(t, subA.Out())
	assert.Len(t, bus.EventTypes(), 2)
}

func TestBus_StatefulReplaysLast(t *testing.T) {
	bus := NewBus()
	em, err := NewEmitter[evtA](bus, Stateful())
	require.NoError(t, err)
	require.NoError(t, em.Emit(evtA{N: 1}))
	require.NoError(t, em.Emit(evtA{N: 2}))

	sub, err := Subscribe[evtA](bus)
	require.NoError(t, err)
	assert.Equal(t, 2, recv(t, sub).N)
}

func TestBus_SlowSubscriberDrops(t *testing.T) {
	bus := NewBus()
	sub, err := Subscribe[evtA](bus, BufSize(1))
	require.NoError(t, err)
	em, err := NewEmitter[evtA](bus)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, em.Emit(evtA{N: i}))
	}
	assert.Equal(t, int64(2), Dropped[evtA](bus))
	assert.Equal(t, 0, recv(t, sub).N)
}

func TestSubscription_Close(t *testing.T) {
	bus := NewBus()
	sub, err := Subscribe[evtA](bus)
	require.NoError(t, err)
	em, err := NewEmitter[evtA](bus)
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	_, ok := <-sub.Out()
	assert.False(t, ok)

	// 无订阅者时发射不报错
	require.NoError(t, em.Emit(evtA{N: 1}))
}

func TestEmitter_Close(t *testing.T) {
	bus := NewBus()
	em, err := NewEmitter[evtA](bus)
	require.NoError(t, err)
	require.NoError(t, em.Close())
	require.NoError(t, em.Close())
	assert.ErrorIs(t, em.Emit(evtA{}), ErrEmitterClosed)
	assert.Empty(t, bus.EventTypes())
}

func TestBus_Close(t *testing.T) {
	bus := NewBus()
	sub, err := Subscribe[evtA](bus)
	require.NoError(t, err)
	em, err := NewEmitter[evtA](bus)
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
	_, ok := <-sub.Out()
	assert.False(t, ok)
	require.NoError(t, sub.Close())

	assert.ErrorIs(t, em.Emit(evtA{}), ErrClosed)
	_, err = Subscribe[evtA](bus)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = NewEmitter[evtA](bus)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBus_ConcurrentEmitAndClose(t *testing.T) {
	bus := NewBus()
	em, err := NewEmitter[evtA](bus)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sub, err := Subscribe[evtA](bus, BufSize(4))
				if err != nil {
					return
				}
				_ = em.Emit(evtA{N: j})
				_ = sub.Close()
			}
		}()
	}
	wg.Wait()
	require.NoError(t, bus.Close())
}

func TestModule_ClosesOnStop(t *testing.T) {
	var bus *Bus
	app := fxtest.New(t, Module(), fx.Populate(&bus))
	app.RequireStart()

	sub, err := Subscribe[evtA](bus)
	require.NoError(t, err)

	app.RequireStop()
	_, ok := <-sub.Out()
	assert.False(t, ok)
}

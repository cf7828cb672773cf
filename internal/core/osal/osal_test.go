package osal

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinTimeout(t *testing.T) {
	assert.Equal(t, 5*time.Millisecond, MinTimeout(Infinite, 5*time.Millisecond))
	assert.Equal(t, 5*time.Millisecond, MinTimeout(5*time.Millisecond, Infinite))
	assert.Equal(t, Infinite, MinTimeout(Infinite, Infinite))
	assert.Equal(t, Immediate, MinTimeout(Immediate, time.Second))
}

func TestAddTimeout(t *testing.T) {
	now := time.Unix(100, 0)
	assert.True(t, AddTimeout(now, Infinite).IsZero())
	assert.Equal(t, now.Add(time.Second), AddTimeout(now, time.Second))
}

func TestSemaphore_Immediate(t *testing.T) {
	sem := NewSemaphore(nil, 0)
	assert.False(t, sem.Wait(Immediate))

	sem.Signal()
	sem.Signal()
	assert.Equal(t, 2, sem.Count())
	assert.True(t, sem.Wait(Immediate))
	assert.True(t, sem.Wait(Immediate))
	assert.False(t, sem.Wait(Immediate))
}

func TestSemaphore_Timeout(t *testing.T) {
	sem := NewSemaphore(clock.New(), 0)

	start := time.Now()
	assert.False(t, sem.Wait(20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestSemaphore_WakesWaiter(t *testing.T) {
	sem := NewSemaphore(nil, 0)

	done := make(chan bool, 1)
	go func() {
		done <- sem.Wait(Infinite)
	}()

	time.Sleep(10 * time.Millisecond)
	sem.Signal()

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("waiter not woken")
	}
}

func TestSemaphore_MockClock(t *testing.T) {
	clk := clock.NewMock()
	sem := NewSemaphore(clk, 0)

	done := make(chan bool, 1)
	go func() {
		done <- sem.Wait(time.Second)
	}()

	// 等待 goroutine 注册定时器后推进时间
	require.Eventually(t, func() bool {
		clk.Add(100 * time.Millisecond)
		select {
		case ok := <-done:
			assert.False(t, ok)
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestSpinEvent_SignalAndWait(t *testing.T) {
	ev := NewSpinEvent(nil)

	assert.Equal(t, EventMask(0), ev.Wait(Immediate))

	ev.Signal(0)
	ev.Signal(3)
	assert.Equal(t, EventMask(0b1001), ev.Pending())

	mask := ev.Wait(Immediate)
	assert.True(t, mask.Has(0))
	assert.True(t, mask.Has(3))
	assert.False(t, mask.Has(1))
	assert.Equal(t, EventMask(0), ev.Pending())
}

func TestSpinEvent_Timeout(t *testing.T) {
	ev := NewSpinEvent(clock.New())

	start := time.Now()
	assert.Equal(t, EventMask(0), ev.Wait(20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestSpinEvent_ConcurrentSignal(t *testing.T) {
	ev := NewSpinEvent(nil)

	result := make(chan EventMask, 1)
	go func() {
		result <- ev.Wait(time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	ev.Signal(63)

	mask := <-result
	assert.True(t, mask.Has(63))
}

func TestSpinEvent_OutOfRange(t *testing.T) {
	ev := NewSpinEvent(nil)
	assert.Panics(t, func() { ev.Signal(EventBits) })
}

func TestSysLock_Do(t *testing.T) {
	lock := NewSysLock()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock.Do(func() { counter++ })
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

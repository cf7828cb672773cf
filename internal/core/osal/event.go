package osal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// EventMask 事件位掩码
type EventMask uint64

// EventBits 事件位数量
const EventBits = 64

// Has 判断第 index 位是否置位
func (m EventMask) Has(index uint) bool {
	return m&(1<<index) != 0
}

// SpinEvent 多位事件
//
// 任意线程可以 Signal 某一位，持有者在 Wait 中取走并清空全部已置位的位。
type SpinEvent struct {
	clk  clock.Clock
	mu   sync.Mutex
	mask EventMask
	wake chan struct{}
}

// NewSpinEvent 创建事件
func NewSpinEvent(clk clock.Clock) *SpinEvent {
	if clk == nil {
		clk = clock.New()
	}
	return &SpinEvent{
		clk:  clk,
		wake: make(chan struct{}, 1),
	}
}

// Signal 置位第 index 位
func (e *SpinEvent) Signal(index uint) {
	if index >= EventBits {
		panic(fmt.Sprintf("osal: event index %d out of range", index))
	}
	e.SignalMask(1 << index)
}

// SignalMask 置位 mask 中的所有位
func (e *SpinEvent) SignalMask(mask EventMask) {
	e.mu.Lock()
	e.mask |= mask
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Wait 等待任意位置位
//
// 返回取走的掩码，超时返回 0。
func (e *SpinEvent) Wait(timeout time.Duration) EventMask {
	deadline := e.clk.Now().Add(timeout)
	for {
		if mask := e.take(); mask != 0 {
			return mask
		}
		if !waitSignal(context.Background(), e.clk, e.wake, remaining(e.clk, deadline, timeout)) {
			return e.take()
		}
	}
}

// Pending 返回当前已置位但尚未取走的掩码
func (e *SpinEvent) Pending() EventMask {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mask
}

func (e *SpinEvent) take() EventMask {
	e.mu.Lock()
	defer e.mu.Unlock()
	mask := e.mask
	e.mask = 0
	return mask
}

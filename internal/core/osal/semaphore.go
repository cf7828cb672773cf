package osal

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Semaphore 计数信号量
//
// 初始计数为 0，Signal 加一，Wait 在计数为正时减一返回。
type Semaphore struct {
	clk   clock.Clock
	mu    sync.Mutex
	count int
	wake  chan struct{}
}

// NewSemaphore 创建信号量
func NewSemaphore(clk clock.Clock, initial int) *Semaphore {
	if clk == nil {
		clk = clock.New()
	}
	return &Semaphore{
		clk:   clk,
		count: initial,
		wake:  make(chan struct{}, 1),
	}
}

// Signal 计数加一并唤醒一个等待者
func (s *Semaphore) Signal() {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	s.poke()
}

// Count 返回当前计数
func (s *Semaphore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Wait 等待计数为正
//
// 超时返回 false。
func (s *Semaphore) Wait(timeout time.Duration) bool {
	return s.WaitContext(context.Background(), timeout)
}

// WaitContext 等待计数为正，ctx 结束时返回 false
func (s *Semaphore) WaitContext(ctx context.Context, timeout time.Duration) bool {
	deadline := s.clk.Now().Add(timeout)
	for {
		if s.tryTake() {
			return true
		}
		if !waitSignal(ctx, s.clk, s.wake, remaining(s.clk, deadline, timeout)) {
			return s.tryTake()
		}
	}
}

func (s *Semaphore) tryTake() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return false
	}
	s.count--
	if s.count > 0 {
		s.poke()
	}
	return true
}

func (s *Semaphore) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

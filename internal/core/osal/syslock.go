package osal

import "sync"

// SysLock 全局短临界区
//
// 一个中间件实例只有一个 SysLock，所有 Unsafe 后缀的操作
// 都要求调用方已经持有它。临界区只允许 O(1) 操作，禁止在持锁期间阻塞。
type SysLock struct {
	mu sync.Mutex
}

// NewSysLock 创建临界区
func NewSysLock() *SysLock {
	return &SysLock{}
}

// Acquire 进入临界区
func (l *SysLock) Acquire() {
	l.mu.Lock()
}

// Release 离开临界区
func (l *SysLock) Release() {
	l.mu.Unlock()
}

// Do 在临界区内执行 fn
func (l *SysLock) Do(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn()
}

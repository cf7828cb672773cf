// Package queue 实现定长环形队列
//
// 容量在创建时固定，满时拒绝新元素而不是覆盖旧元素。
package queue

import (
	"github.com/dep2p/go-r2p/internal/core/osal"
)

// ArrayQueue 定长环形队列
type ArrayQueue[T any] struct {
	lock  *osal.SysLock
	buf   []T
	head  int
	count int
}

// NewArrayQueue 创建容量为 length 的队列
func NewArrayQueue[T any](lock *osal.SysLock, length int) *ArrayQueue[T] {
	if lock == nil {
		panic("queue: nil SysLock")
	}
	if length <= 0 {
		panic("queue: length must be positive")
	}
	return &ArrayQueue[T]{
		lock: lock,
		buf:  make([]T, length),
	}
}

// Length 返回容量
func (q *ArrayQueue[T]) Length() int {
	return len(q.buf)
}

// CountUnsafe 返回当前元素数量
func (q *ArrayQueue[T]) CountUnsafe() int {
	return q.count
}

// Count 返回当前元素数量
func (q *ArrayQueue[T]) Count() int {
	q.lock.Acquire()
	defer q.lock.Release()
	return q.count
}

// PostUnsafe 入队，满时返回 false
func (q *ArrayQueue[T]) PostUnsafe(v T) bool {
	if q.count == len(q.buf) {
		return false
	}
	q.buf[(q.head+q.count)%len(q.buf)] = v
	q.count++
	return true
}

// Post 入队，满时返回 false
func (q *ArrayQueue[T]) Post(v T) bool {
	q.lock.Acquire()
	defer q.lock.Release()
	return q.PostUnsafe(v)
}

// PeekUnsafe 读取队首但不移除
func (q *ArrayQueue[T]) PeekUnsafe() (T, bool) {
	var zero T
	if q.count == 0 {
		return zero, false
	}
	return q.buf[q.head], true
}

// Peek 读取队首但不移除
func (q *ArrayQueue[T]) Peek() (T, bool) {
	q.lock.Acquire()
	defer q.lock.Release()
	return q.PeekUnsafe()
}

// FetchUnsafe 出队
func (q *ArrayQueue[T]) FetchUnsafe() (T, bool) {
	var zero T
	if q.count == 0 {
		return zero, false
	}
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return v, true
}

// Fetch 出队
func (q *ArrayQueue[T]) Fetch() (T, bool) {
	q.lock.Acquire()
	defer q.lock.Release()
	return q.FetchUnsafe()
}

// SkipUnsafe 丢弃队首
func (q *ArrayQueue[T]) SkipUnsafe() bool {
	_, ok := q.FetchUnsafe()
	return ok
}

// Skip 丢弃队首
func (q *ArrayQueue[T]) Skip() bool {
	q.lock.Acquire()
	defer q.lock.Release()
	return q.SkipUnsafe()
}

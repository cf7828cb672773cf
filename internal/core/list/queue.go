package list

import (
	"github.com/dep2p/go-r2p/internal/core/osal"
)

// Queue 侵入式 FIFO 队列
//
// 与 List 共用 Link，Post 追加到队尾，Fetch/Skip 从队首弹出。
type Queue[T any] struct {
	lock *osal.SysLock
	head *Link[T]
	tail *Link[T]
}

// NewQueue 创建队列
func NewQueue[T any](lock *osal.SysLock) *Queue[T] {
	q := &Queue[T]{}
	q.Init(lock)
	return q
}

// Init 初始化嵌入在其他结构中的队列
func (q *Queue[T]) Init(lock *osal.SysLock) {
	if lock == nil {
		panic("list: nil SysLock")
	}
	q.lock = lock
	q.head, q.tail = nil, nil
}

// IsEmptyUnsafe 是否为空
func (q *Queue[T]) IsEmptyUnsafe() bool {
	return q.head == nil
}

// IsEmpty 是否为空
func (q *Queue[T]) IsEmpty() bool {
	q.lock.Acquire()
	defer q.lock.Release()
	return q.IsEmptyUnsafe()
}

// CountUnsafe 返回元素数量
func (q *Queue[T]) CountUnsafe() int {
	n := 0
	for cur := q.head; cur != nil; cur = cur.next {
		n++
	}
	return n
}

// Count 返回元素数量
func (q *Queue[T]) Count() int {
	q.lock.Acquire()
	defer q.lock.Release()
	return q.CountUnsafe()
}

// PostUnsafe 追加到队尾
//
// 节点已属于某个容器时 panic。
func (q *Queue[T]) PostUnsafe(link *Link[T]) {
	if link.linked {
		panic("list: link already a member")
	}
	if link.owner == nil {
		panic("list: link has no owner")
	}
	link.next = nil
	link.linked = true
	if q.tail == nil {
		q.head = link
	} else {
		q.tail.next = link
	}
	q.tail = link
}

// Post 追加到队尾
func (q *Queue[T]) Post(link *Link[T]) {
	q.lock.Acquire()
	defer q.lock.Release()
	q.PostUnsafe(link)
}

// PeekUnsafe 返回队首但不移除
func (q *Queue[T]) PeekUnsafe() *T {
	if q.head == nil {
		return nil
	}
	return q.head.owner
}

// Peek 返回队首但不移除
func (q *Queue[T]) Peek() *T {
	q.lock.Acquire()
	defer q.lock.Release()
	return q.PeekUnsafe()
}

// FetchUnsafe 弹出队首
//
// 队列为空返回 nil。
func (q *Queue[T]) FetchUnsafe() *T {
	link := q.head
	if link == nil {
		return nil
	}
	q.head = link.next
	if q.head == nil {
		q.tail = nil
	}
	link.next = nil
	link.linked = false
	return link.owner
}

// Fetch 弹出队首
func (q *Queue[T]) Fetch() *T {
	q.lock.Acquire()
	defer q.lock.Release()
	return q.FetchUnsafe()
}

// SkipUnsafe 丢弃队首
func (q *Queue[T]) SkipUnsafe() bool {
	return q.FetchUnsafe() != nil
}

// Skip 丢弃队首
func (q *Queue[T]) Skip() bool {
	q.lock.Acquire()
	defer q.lock.Release()
	return q.SkipUnsafe()
}

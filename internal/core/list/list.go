// Package list 实现侵入式链表与队列
//
// 成员关系是嵌入在宿主对象中的 Link 字段，链接与断开都不分配内存。
// 一个 Link 同一时刻只能属于一个容器。
//
// 所有 Unsafe 后缀的操作要求调用方持有容器的 SysLock；
// 其余操作自行加锁。
package list

import (
	"github.com/dep2p/go-r2p/internal/core/osal"
)

// Link 侵入式链表节点
type Link[T any] struct {
	next   *Link[T]
	owner  *T
	linked bool
}

// NewLink 创建指向 owner 的节点
func NewLink[T any](owner *T) Link[T] {
	return Link[T]{owner: owner}
}

// Init 绑定宿主对象
func (l *Link[T]) Init(owner *T) {
	l.owner = owner
}

// Owner 返回宿主对象
func (l *Link[T]) Owner() *T {
	return l.owner
}

// IsLinked 是否已属于某个容器
func (l *Link[T]) IsLinked() bool {
	return l.linked
}

// ============================================================================
//                              List
// ============================================================================

// List 侵入式单链表
//
// Link 为头插 O(1)；Unlink 和查找为线性扫描。
type List[T any] struct {
	lock *osal.SysLock
	head *Link[T]
}

// New 创建链表
func New[T any](lock *osal.SysLock) *List[T] {
	l := &List[T]{}
	l.Init(lock)
	return l
}

// Init 初始化嵌入在其他结构中的链表
func (l *List[T]) Init(lock *osal.SysLock) {
	if lock == nil {
		panic("list: nil SysLock")
	}
	l.lock = lock
	l.head = nil
}

// IsEmptyUnsafe 是否为空
func (l *List[T]) IsEmptyUnsafe() bool {
	return l.head == nil
}

// IsEmpty 是否为空
func (l *List[T]) IsEmpty() bool {
	l.lock.Acquire()
	defer l.lock.Release()
	return l.IsEmptyUnsafe()
}

// CountUnsafe 返回元素数量
func (l *List[T]) CountUnsafe() int {
	n := 0
	for cur := l.head; cur != nil; cur = cur.next {
		n++
	}
	return n
}

// Count 返回元素数量
func (l *List[T]) Count() int {
	l.lock.Acquire()
	defer l.lock.Release()
	return l.CountUnsafe()
}

// LinkUnsafe 头插
//
// 节点已属于某个容器时 panic。
func (l *List[T]) LinkUnsafe(link *Link[T]) {
	if link.linked {
		panic("list: link already a member")
	}
	if link.owner == nil {
		panic("list: link has no owner")
	}
	link.next = l.head
	link.linked = true
	l.head = link
}

// Link 头插
func (l *List[T]) Link(link *Link[T]) {
	l.lock.Acquire()
	defer l.lock.Release()
	l.LinkUnsafe(link)
}

// UnlinkUnsafe 移除节点
//
// 节点不在链表中时返回 false。被移除节点的 next 保持不变，
// 正在经过它的迭代器可以继续前进。
func (l *List[T]) UnlinkUnsafe(link *Link[T]) bool {
	for pp := &l.head; *pp != nil; pp = &(*pp).next {
		if *pp == link {
			*pp = link.next
			link.linked = false
			return true
		}
	}
	return false
}

// Unlink 移除节点
func (l *List[T]) Unlink(link *Link[T]) bool {
	l.lock.Acquire()
	defer l.lock.Release()
	return l.UnlinkUnsafe(link)
}

// FindFirstUnsafe 返回第一个满足 pred 的宿主对象
func (l *List[T]) FindFirstUnsafe(pred func(*T) bool) *T {
	for cur := l.head; cur != nil; cur = cur.next {
		if pred(cur.owner) {
			return cur.owner
		}
	}
	return nil
}

// FindFirst 返回第一个满足 pred 的宿主对象
//
// pred 在持锁状态下调用，不可阻塞。
func (l *List[T]) FindFirst(pred func(*T) bool) *T {
	l.lock.Acquire()
	defer l.lock.Release()
	return l.FindFirstUnsafe(pred)
}

// FindFirstBy 用匹配函数和参考值查找
func FindFirstBy[T, R any](l *List[T], match func(*T, R) bool, ref R) *T {
	return l.FindFirst(func(item *T) bool { return match(item, ref) })
}

// ForEachUnsafe 按链表顺序遍历，fn 返回 false 时停止
func (l *List[T]) ForEachUnsafe(fn func(*T) bool) {
	for cur := l.head; cur != nil; cur = cur.next {
		if !fn(cur.owner) {
			return
		}
	}
}

// ============================================================================
//                              Iterator
// ============================================================================

// Iterator 逐步加锁的迭代器
//
// 每一步单独获取 SysLock，不持有快照。遍历期间链表可能被并发修改，
// 迭代器可能观察到变化中的结构，这是弱一致性遍历的约定行为。
type Iterator[T any] struct {
	list    *List[T]
	cur     *Link[T]
	started bool
}

// Begin 返回从表头开始的迭代器
func (l *List[T]) Begin() Iterator[T] {
	return Iterator[T]{list: l}
}

// Next 前进一步，返回宿主对象
//
// 遍历结束返回 (nil, false)。
func (it *Iterator[T]) Next() (*T, bool) {
	it.list.lock.Acquire()
	defer it.list.lock.Release()

	if !it.started {
		it.started = true
		it.cur = it.list.head
	} else if it.cur != nil {
		it.cur = it.cur.next
	}
	if it.cur == nil {
		return nil, false
	}
	return it.cur.owner, true
}

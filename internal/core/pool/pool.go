// Package pool 实现定长块内存池
//
// 空闲块通过嵌入在块内部的 Link 串成单链表，分配与释放都是 O(1)，
// 热路径上不做任何堆分配。池只在显式 Grow 时扩容。
package pool

import (
	"github.com/dep2p/go-r2p/internal/core/osal"
)

// Link 空闲链表指针
//
// 块在空闲时用它指向下一个空闲块，分配出去后该字段不再有意义。
type Link[T any] struct {
	next *T
}

// Block 可被池管理的块类型约束
type Block[T any] interface {
	*T
	PoolLink() *Link[T]
}

// Pool 定长块内存池
//
// 复用顺序为 LIFO，最近释放的块最先被分配。
type Pool[T any, P Block[T]] struct {
	lock *osal.SysLock
	head P
	free int
}

// New 创建空池
func New[T any, P Block[T]](lock *osal.SysLock) *Pool[T, P] {
	if lock == nil {
		panic("pool: nil SysLock")
	}
	return &Pool[T, P]{lock: lock}
}

// AllocUnsafe 取出一个空闲块，要求调用方持有 SysLock
//
// 池为空时返回 nil。
func (p *Pool[T, P]) AllocUnsafe() P {
	blk := p.head
	if blk == nil {
		return nil
	}
	link := blk.PoolLink()
	p.head = P(link.next)
	link.next = nil
	p.free--
	return blk
}

// Alloc 取出一个空闲块
func (p *Pool[T, P]) Alloc() P {
	p.lock.Acquire()
	defer p.lock.Release()
	return p.AllocUnsafe()
}

// FreeUnsafe 归还块，要求调用方持有 SysLock
//
// nil 为空操作。
func (p *Pool[T, P]) FreeUnsafe(blk P) {
	if blk == nil {
		return
	}
	blk.PoolLink().next = (*T)(p.head)
	p.head = blk
	p.free++
}

// Free 归还块
func (p *Pool[T, P]) Free(blk P) {
	p.lock.Acquire()
	defer p.lock.Release()
	p.FreeUnsafe(blk)
}

// GrowUnsafe 把数组中的全部块装入空闲链表，要求调用方持有 SysLock
func (p *Pool[T, P]) GrowUnsafe(blocks []T) {
	for i := range blocks {
		p.FreeUnsafe(P(&blocks[i]))
	}
}

// Grow 把数组中的全部块装入空闲链表
func (p *Pool[T, P]) Grow(blocks []T) {
	p.lock.Acquire()
	defer p.lock.Release()
	p.GrowUnsafe(blocks)
}

// FreeCount 返回空闲块数量
func (p *Pool[T, P]) FreeCount() int {
	p.lock.Acquire()
	defer p.lock.Release()
	return p.free
}

// Package message 定义 R2P 消息信封
//
// 消息是定长负载加上私有头部（引用计数、来源传输）。
// 消息的身份就是它在主题内存池中的槽位，池在引用计数归零时回收。
// 头部只允许中间件访问，应用代码只能通过 Payload 读写负载。
package message

import (
	"fmt"
	"math"

	"github.com/dep2p/go-r2p/internal/core/osal"
	"github.com/dep2p/go-r2p/internal/core/pool"
)

// MaxRefCount 引用计数上限
const MaxRefCount = math.MaxUint16

// Source 消息来源
//
// 由接收路径设置为接收该消息的传输，转发时跳过来源以避免回环。
type Source interface {
	Name() string
}

// Message 消息信封
type Message struct {
	link     pool.Link[Message]
	lock     *osal.SysLock
	refcount uint16
	source   Source
	payload  []byte
}

// PoolLink 实现 pool.Block
func (m *Message) PoolLink() *pool.Link[Message] {
	return &m.link
}

// NewArena 创建 count 个负载大小为 size 的消息块
//
// 所有负载共享一段连续的底层数组，创建后不再分配内存。
func NewArena(lock *osal.SysLock, count, size int) []Message {
	if lock == nil {
		panic("message: nil SysLock")
	}
	if size <= 0 {
		panic(fmt.Sprintf("message: invalid payload size %d", size))
	}
	if count < 0 {
		panic(fmt.Sprintf("message: invalid block count %d", count))
	}

	backing := make([]byte, count*size)
	msgs := make([]Message, count)
	for i := range msgs {
		msgs[i].lock = lock
		msgs[i].payload = backing[i*size : (i+1)*size : (i+1)*size]
	}
	return msgs
}

// Payload 返回负载
func (m *Message) Payload() []byte {
	return m.payload
}

// Size 返回负载字节数
func (m *Message) Size() int {
	return len(m.payload)
}

// ============================================================================
//                              引用计数
// ============================================================================

// AcquireUnsafe 引用计数加一，要求调用方持有 SysLock
func (m *Message) AcquireUnsafe() {
	if m.refcount == MaxRefCount {
		panic("message: refcount overflow")
	}
	m.refcount++
}

// Acquire 引用计数加一
func (m *Message) Acquire() {
	m.lock.Acquire()
	defer m.lock.Release()
	m.AcquireUnsafe()
}

// ReleaseUnsafe 引用计数减一，要求调用方持有 SysLock
//
// 返回 true 表示仍被引用；返回 false 时调用方负责把块还给所属的池。
func (m *Message) ReleaseUnsafe() bool {
	if m.refcount == 0 {
		panic("message: refcount underflow")
	}
	m.refcount--
	return m.refcount > 0
}

// Release 引用计数减一
func (m *Message) Release() bool {
	m.lock.Acquire()
	defer m.lock.Release()
	return m.ReleaseUnsafe()
}

// ResetUnsafe 清零引用计数与来源
func (m *Message) ResetUnsafe() {
	m.refcount = 0
	m.source = nil
}

// Reset 清零引用计数与来源
func (m *Message) Reset() {
	m.lock.Acquire()
	defer m.lock.Release()
	m.ResetUnsafe()
}

// RefCount 返回当前引用计数
func (m *Message) RefCount() int {
	m.lock.Acquire()
	defer m.lock.Release()
	return int(m.refcount)
}

// ============================================================================
//                              来源
// ============================================================================

// SourceUnsafe 返回来源传输
func (m *Message) SourceUnsafe() Source {
	return m.source
}

// Source 返回来源传输
func (m *Message) Source() Source {
	m.lock.Acquire()
	defer m.lock.Release()
	return m.source
}

// SetSourceUnsafe 设置来源传输
func (m *Message) SetSourceUnsafe(src Source) {
	m.source = src
}

// SetSource 设置来源传输
func (m *Message) SetSource(src Source) {
	m.lock.Acquire()
	defer m.lock.Release()
	m.source = src
}

// Copy 复制负载，不复制头部
//
// 两条消息的负载大小必须一致。
func Copy(to, from *Message) {
	if len(to.payload) != len(from.payload) {
		panic(fmt.Sprintf("message: copy size mismatch %d != %d", len(to.payload), len(from.payload)))
	}
	copy(to.payload, from.payload)
}

package eventbus

import (
	"errors"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-r2p/pkg/lib/log"
)

var logger = log.Logger("core/eventbus")

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrClosed 事件总线已关闭
	ErrClosed = errors.New("eventbus closed")
	// ErrEmitterClosed 发射器已关闭
	ErrEmitterClosed = errors.New("emitter closed")
)

// ============================================================================
// Bus 实现
// ============================================================================

// Bus 事件总线
type Bus struct {
	mu     sync.RWMutex
	nodes  map[reflect.Type]*node
	closed atomic.Bool
}

// sink 订阅者在节点上的投递端
type sink interface {
	deliver(event any) bool
	shutdown()
}

// node 事件类型节点
type node struct {
	lk        sync.Mutex
	typ       reflect.Type
	sinks     []sink
	nEmitters atomic.Int32
	keepLast  bool
	last      any
	dropCount atomic.Int64
}

// NewBus 创建新的事件总线
func NewBus() *Bus {
	return &Bus{
		nodes: make(map[reflect.Type]*node),
	}
}

// Close 关闭总线，关闭全部订阅通道
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.mu.Lock()
	nodes := b.nodes
	b.nodes = make(map[reflect.Type]*node)
	b.mu.Unlock()

	for _, n := range nodes {
		n.lk.Lock()
		for _, s := range n.sinks {
			s.shutdown()
		}
		n.sinks = nil
		n.lk.Unlock()
	}
	return nil
}

// EventTypes 返回所有已注册的事件类型名
func (b *Bus) EventTypes() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.nodes))
	for typ := range b.nodes {
		out = append(out, typ.String())
	}
	sort.Strings(out)
	return out
}

// Dropped 返回事件类型 E 累计丢弃的事件数
func Dropped[E any](b *Bus) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n, ok := b.nodes[reflect.TypeFor[E]()]; ok {
		return n.dropCount.Load()
	}
	return 0
}

// ============================================================================
// 内部方法
// ============================================================================

// withNode 在节点上执行操作，节点不存在时创建
func (b *Bus) withNode(typ reflect.Type, cb func(*node)) {
	b.mu.Lock()

	n, ok := b.nodes[typ]
	if !ok {
		n = &node{typ: typ}
		b.nodes[typ] = n
	}

	n.lk.Lock()
	b.mu.Unlock()

	cb(n)
	n.lk.Unlock()
}

// tryDropNode 没有订阅者和发射器时删除节点
func (b *Bus) tryDropNode(typ reflect.Type) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[typ]
	if !ok {
		return
	}
	n.lk.Lock()
	idle := len(n.sinks) == 0 && n.nEmitters.Load() == 0 && !n.keepLast
	n.lk.Unlock()
	if idle {
		delete(b.nodes, typ)
	}
}

// removeSink 从节点移除订阅
func (b *Bus) removeSink(typ reflect.Type, s sink) bool {
	b.mu.Lock()
	n, ok := b.nodes[typ]
	if !ok {
		b.mu.Unlock()
		return false
	}
	n.lk.Lock()
	b.mu.Unlock()

	found := false
	for i, existing := range n.sinks {
		if existing == s {
			n.sinks = append(n.sinks[:i], n.sinks[i+1:]...)
			found = true
			break
		}
	}
	shouldDrop := len(n.sinks) == 0 && n.nEmitters.Load() == 0
	n.lk.Unlock()

	if shouldDrop {
		b.tryDropNode(typ)
	}
	return found
}

// emit 发射事件到所有订阅者
func (n *node) emit(event any) {
	n.lk.Lock()
	defer n.lk.Unlock()

	if n.keepLast {
		n.last = event
	}
	for _, s := range n.sinks {
		if s.deliver(event) {
			continue
		}
		// 每丢弃 100 个事件警告一次，避免日志泛滥
		if dropped := n.dropCount.Add(1); dropped%100 == 1 {
			logger.Warn("慢消费者检测",
				"dropped", dropped,
				"type", n.typ,
				"reason", "subscriber buffer full")
		}
	}
}

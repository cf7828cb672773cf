package eventbus

import (
	"reflect"
	"sync"
)

// ============================================================================
// Subscription 实现
// ============================================================================

// Subscription 事件类型 E 的订阅
type Subscription[E any] struct {
	bus       *Bus
	typ       reflect.Type
	out       chan E
	closeOnce sync.Once
}

// Subscribe 订阅事件类型 E
//
// 有状态发射器的最后一个事件会立即投递。
func Subscribe[E any](b *Bus, opts ...SubscriptionOpt) (*Subscription[E], error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	settings := subscriptionSettings{buffer: DefaultBufSize}
	for _, opt := range opts {
		opt(&settings)
	}

	typ := reflect.TypeFor[E]()
	sub := &Subscription[E]{
		bus: b,
		typ: typ,
		out: make(chan E, settings.buffer),
	}
	b.withNode(typ, func(n *node) {
		n.sinks = append(n.sinks, sub)
		if n.keepLast && n.last != nil {
			sub.deliver(n.last)
		}
	})
	return sub, nil
}

// Out 返回事件通道，订阅关闭后通道关闭
func (s *Subscription[E]) Out() <-chan E {
	return s.out
}

// Close 取消订阅，可重复调用
func (s *Subscription[E]) Close() error {
	if s.bus.removeSink(s.typ, s) {
		s.shutdown()
	}
	return nil
}

func (s *Subscription[E]) deliver(event any) bool {
	e, ok := event.(E)
	if !ok {
		return true
	}
	select {
	case s.out <- e:
		return true
	default:
		return false
	}
}

// shutdown 在节点锁内调用，之后不会再有投递
func (s *Subscription[E]) shutdown() {
	s.closeOnce.Do(func() { close(s.out) })
}

// ============================================================================
// Emitter 实现
// ============================================================================

// Emitter 事件类型 E 的发射器
type Emitter[E any] struct {
	bus       *Bus
	node      *node
	typ       reflect.Type
	closeOnce sync.Once
	closed    bool
	mu        sync.RWMutex
}

// NewEmitter 创建事件类型 E 的发射器
func NewEmitter[E any](b *Bus, opts ...EmitterOpt) (*Emitter[E], error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	var settings emitterSettings
	for _, opt := range opts {
		opt(&settings)
	}

	typ := reflect.TypeFor[E]()
	e := &Emitter[E]{bus: b, typ: typ}
	b.withNode(typ, func(n *node) {
		e.node = n
		n.nEmitters.Add(1)
		if settings.stateful {
			n.keepLast = true
		}
	})
	return e, nil
}

// Emit 发射事件
func (e *Emitter[E]) Emit(event E) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrEmitterClosed
	}
	if e.bus.closed.Load() {
		return ErrClosed
	}
	e.node.emit(event)
	return nil
}

// Close 关闭发射器
func (e *Emitter[E]) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		if e.node.nEmitters.Add(-1) == 0 {
			e.bus.tryDropNode(e.typ)
		}
	})
	return nil
}

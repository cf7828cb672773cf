package rtcan

import (
	"context"
	"fmt"
	"sync"
)

// Driver CAN 链路驱动
//
// 实现需支持并发调用 Transmit 与 Receive。
type Driver interface {
	// Transmit 发送一帧，阻塞到发送完成或 ctx 结束
	Transmit(ctx context.Context, f Frame) error

	// Receive 接收一帧，阻塞到有帧或 ctx 结束
	Receive(ctx context.Context) (Frame, error)
}

// ============================================================================
//                              VirtualBus 实现
// ============================================================================

// VirtualBus 进程内广播总线
type VirtualBus struct {
	mu    sync.Mutex
	ports []*Port
}

// NewVirtualBus 创建虚拟总线
func NewVirtualBus() *VirtualBus {
	return &VirtualBus{}
}

// Attach 接入一个端口，depth 为接收缓冲帧数
func (b *VirtualBus) Attach(depth int) *Port {
	p := &Port{
		bus:    b,
		rx:     make(chan Frame, max(depth, 1)),
		closed: make(chan struct{}),
	}
	b.mu.Lock()
	b.ports = append(b.ports, p)
	b.mu.Unlock()
	return p
}

func (b *VirtualBus) detach(p *Port) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, q := range b.ports {
		if q == p {
			b.ports = append(b.ports[:i], b.ports[i+1:]...)
			return
		}
	}
}

func (b *VirtualBus) peers(self *Port) []*Port {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Port, 0, len(b.ports))
	for _, p := range b.ports {
		if p != self {
			out = append(out, p)
		}
	}
	return out
}

// Port 总线端口，实现 Driver
type Port struct {
	bus    *VirtualBus
	rx     chan Frame
	closed chan struct{}
	once   sync.Once
}

var _ Driver = (*Port)(nil)

// Transmit 广播给除自身外的所有端口
func (p *Port) Transmit(ctx context.Context, f Frame) error {
	if len(f.Data) > MaxFrameData {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(f.Data))
	}
	select {
	case <-p.closed:
		return ErrBusClosed
	default:
	}

	f.Data = append([]byte(nil), f.Data...)
	for _, q := range p.bus.peers(p) {
		select {
		case q.rx <- f:
		case <-q.closed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Receive 实现 Driver
func (p *Port) Receive(ctx context.Context) (Frame, error) {
	select {
	case f := <-p.rx:
		return f, nil
	case <-p.closed:
		return Frame{}, ErrBusClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Close 断开端口，可重复调用
func (p *Port) Close() error {
	p.once.Do(func() {
		close(p.closed)
		p.bus.detach(p)
	})
	return nil
}

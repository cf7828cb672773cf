package mocks

import (
	"context"
	"sync"

	"github.com/dep2p/go-r2p/internal/core/transport/rtcan"
)

var _ rtcan.Driver = (*MockCANDriver)(nil)

// MockCANDriver 模拟 rtcan.Driver
type MockCANDriver struct {
	TransmitFunc func(ctx context.Context, f rtcan.Frame) error

	rx chan rtcan.Frame

	mu   sync.Mutex
	sent []rtcan.Frame
}

// NewMockCANDriver 创建接收缓冲为 depth 的驱动
func NewMockCANDriver(depth int) *MockCANDriver {
	return &MockCANDriver{rx: make(chan rtcan.Frame, depth)}
}

// Transmit 记录发送帧
func (m *MockCANDriver) Transmit(ctx context.Context, f rtcan.Frame) error {
	m.mu.Lock()
	m.sent = append(m.sent, rtcan.Frame{ID: f.ID, Data: append([]byte(nil), f.Data...)})
	m.mu.Unlock()
	if m.TransmitFunc != nil {
		return m.TransmitFunc(ctx, f)
	}
	return nil
}

// Receive 返回测试注入的帧
func (m *MockCANDriver) Receive(ctx context.Context) (rtcan.Frame, error) {
	select {
	case f := <-m.rx:
		return f, nil
	case <-ctx.Done():
		return rtcan.Frame{}, ctx.Err()
	}
}

// Inject 注入一帧供 Receive 返回
func (m *MockCANDriver) Inject(f rtcan.Frame) {
	m.rx <- f
}

// Sent 返回已发送的帧
func (m *MockCANDriver) Sent() []rtcan.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]rtcan.Frame(nil), m.sent...)
}

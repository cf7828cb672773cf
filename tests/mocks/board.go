package mocks

import (
	"sync/atomic"

	"github.com/dep2p/go-r2p/internal/core/middleware"
)

var _ middleware.Board = (*MockBoard)(nil)

// MockBoard 记录重启次数
type MockBoard struct {
	reboots atomic.Int32
}

// Reboot 记录一次重启
func (m *MockBoard) Reboot() { m.reboots.Add(1) }

// Reboots 返回重启次数
func (m *MockBoard) Reboots() int { return int(m.reboots.Load()) }

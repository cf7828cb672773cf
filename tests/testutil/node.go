package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/dep2p/go-r2p/internal/core/middleware"
)

// SpinNode 在后台协程中运行节点
//
// 节点确认停止或测试结束时协程退出。
func SpinNode(t *testing.T, n *middleware.Node) {
	t.Helper()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for !n.Stopped() {
			select {
			case <-done:
				return
			default:
			}
			n.Spin(5 * time.Millisecond)
		}
	}()
	t.Cleanup(func() {
		close(done)
		wg.Wait()
	})
}

// Drain 同步派发节点上已就绪的全部消息
func Drain(n *middleware.Node) {
	for n.Spin(10 * time.Millisecond) {
	}
}

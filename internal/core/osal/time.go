package osal

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// 超时常量
const (
	// Immediate 非阻塞轮询
	Immediate time.Duration = 0

	// Infinite 无限等待
	Infinite time.Duration = -1
)

// MinTimeout 返回两个超时中较短的一个，Infinite 视为最长
func MinTimeout(a, b time.Duration) time.Duration {
	if a < 0 {
		return b
	}
	if b < 0 {
		return a
	}
	return min(a, b)
}

// AddTimeout 计算 ts 之后 timeout 的截止时间
//
// Infinite 返回零值时间。
func AddTimeout(ts time.Time, timeout time.Duration) time.Time {
	if timeout < 0 {
		return time.Time{}
	}
	return ts.Add(timeout)
}

// waitSignal 在 ch 上等待唤醒令牌
//
// 返回 false 表示超时或 ctx 结束。
func waitSignal(ctx context.Context, clk clock.Clock, ch <-chan struct{}, timeout time.Duration) bool {
	switch {
	case timeout == Immediate:
		select {
		case <-ch:
			return true
		default:
			return false
		}
	case timeout < 0:
		select {
		case <-ch:
			return true
		case <-ctx.Done():
			return false
		}
	default:
		timer := clk.Timer(timeout)
		defer timer.Stop()
		select {
		case <-ch:
			return true
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

// remaining 返回距截止时间的剩余等待时长
func remaining(clk clock.Clock, deadline time.Time, timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return timeout
	}
	left := deadline.Sub(clk.Now())
	if left <= 0 {
		return Immediate
	}
	return left
}

package main

import (
	"context"
	"errors"
	"time"

	"github.com/dep2p/go-r2p"
	"github.com/dep2p/go-r2p/internal/core/osal"
)

// HeartbeatTopic 心跳主题名
const HeartbeatTopic = "heartbeat"

// Heartbeat 心跳负载
type Heartbeat struct {
	Seq    uint32
	Uptime uint32
}

// runHeartbeat 周期发布心跳并运行节点
func runHeartbeat(ctx context.Context, rt *r2p.Runtime, period time.Duration) error {
	n, err := rt.NewNode("beat")
	if err != nil {
		return err
	}
	pub, err := r2p.Advertise[Heartbeat](n, HeartbeatTopic, period)
	if err != nil {
		return err
	}

	start := time.Now()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var seq uint32
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if n.Stopped() {
			return nil
		}
		seq++
		err := pub.Publish(&Heartbeat{Seq: seq, Uptime: uint32(time.Since(start).Seconds())})
		if err != nil && !errors.Is(err, r2p.ErrPoolExhausted) {
			return err
		}
		// 处理停止请求
		n.Spin(osal.Immediate)
	}
}

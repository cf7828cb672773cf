package transport

import (
	"context"
	"time"

	"github.com/dep2p/go-r2p/internal/core/message"
	"github.com/dep2p/go-r2p/internal/core/osal"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
)

// SendFunc 把一条消息写到链路
//
// deadline 为零值表示不限时。返回错误时消息同样被归还。
type SendFunc func(sub *pubsub.RemoteSubscriber, msg *message.Message, deadline time.Time) error

// RunTx 发送协程
//
// 阻塞直到 ctx 结束，依次取空每个待发送订阅者的队列。
// 单条发送失败只记录日志，不终止协程。
func (b *Base) RunTx(ctx context.Context, send SendFunc) error {
	for {
		if !b.pendingSem.WaitContext(ctx, osal.Infinite) {
			return ctx.Err()
		}
		for sub := b.nextPending(); sub != nil; sub = b.nextPending() {
			b.flush(sub, send)
		}
	}
}

// flush 取空一个订阅者的队列
func (b *Base) flush(sub *pubsub.RemoteSubscriber, send SendFunc) {
	timeout := sub.Topic().PublishTimeout()
	for msg, ts, ok := sub.Fetch(); ok; msg, ts, ok = sub.Fetch() {
		deadline := osal.AddTimeout(ts, timeout)
		if err := send(sub, msg, deadline); err != nil {
			logger.Debug("发送失败", "transport", b.name, "topic", sub.Topic().Name(), "error", err)
		}
		sub.Release(msg)
	}
}

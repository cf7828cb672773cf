package middleware

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/dep2p/go-r2p/internal/core/eventbus"
	"github.com/dep2p/go-r2p/internal/core/message"
)

// ============================================================================
//                              停止与引导
// ============================================================================

// Stop 停止中间件并切换到引导模式
//
// 依次：通知所有传输、为引导主题建立远程端点、请求全部应用节点停止
// 并等待确认、把管理协程替换为引导协程。通知只发送一次。
// ctx 到期时返回 ctx.Err()，中间件停留在停止中状态，再次调用继续等待节点。
// 已进入引导模式时直接返回 nil。
func (mw *Middleware) Stop(ctx context.Context) error {
	if !mw.initialized.Load() {
		return ErrNotInitialized
	}
	mw.stopMu.Lock()
	defer mw.stopMu.Unlock()

	if mw.stopped.Load() {
		return nil
	}
	if mw.stopping.CompareAndSwap(false, true) {
		mw.announceStop()
	}

	if err := mw.waitNodes(ctx); err != nil {
		return err
	}

	mw.stopLoop()
	mw.stopped.Store(true)
	mw.startLoop(ctx, mw.bootNode, mw.runBoot)
	logger.Info("中间件已停止，进入引导模式", "module", mw.cfg.ModuleName)
	emit(mw.events.stopped, eventbus.EvtModuleStopped{Module: mw.cfg.ModuleName})
	return nil
}

// announceStop 通知传输并建立引导主题的远程端点
func (mw *Middleware) announceStop() {
	logger.Info("中间件停止中", "module", mw.cfg.ModuleName, "nodes", mw.RunningNodes())

	if err := mw.fanOut(nil, func(tr Transport) error {
		var errs error
		errs = multierr.Append(errs, tr.NotifyStop())
		if _, err := tr.TouchPublisher(mw.bootTopic, nil); err != nil {
			errs = multierr.Append(errs, err)
		}
		if _, err := tr.TouchSubscriber(mw.bootTopic, mw.cfg.BootQueueLength, nil); err != nil {
			errs = multierr.Append(errs, err)
		}
		return errs
	}); err != nil {
		logger.Warn("停止通知部分失败", "error", err)
	}
}

// waitNodes 轮询直至所有应用节点确认停止
func (mw *Middleware) waitNodes(ctx context.Context) error {
	for {
		if mw.RunningNodes() == 0 {
			return nil
		}
		for _, n := range mw.Nodes() {
			if !n.internal && !n.Stopped() {
				n.RequestStop()
			}
		}

		select {
		case <-ctx.Done():
			logger.Warn("等待节点停止超时", "remaining", mw.RunningNodes())
			return fmt.Errorf("wait nodes: %w", ctx.Err())
		case <-mw.clk.After(mw.cfg.StopPollInterval):
		}
	}
}

// Reboot 复位硬件
func (mw *Middleware) Reboot() {
	mw.reboot("local")
}

func (mw *Middleware) reboot(source string) {
	logger.Info("重启", "module", mw.cfg.ModuleName, "from", source)
	emit(mw.events.reboot, eventbus.EvtRebootRequested{Module: mw.cfg.ModuleName, Source: source})
	mw.board.Reboot()
}

// Bootload 停止中间件进入引导模式
func (mw *Middleware) Bootload(ctx context.Context) error {
	return mw.Stop(ctx)
}

// runBoot 引导协程主循环
func (mw *Middleware) runBoot(ctx context.Context) {
	logger.Debug("引导协程启动")
	defer logger.Debug("引导协程退出")

	for ctx.Err() == nil {
		mw.bootNode.Spin(mw.cfg.SpinTimeout)
	}
}

// ============================================================================
//                              引导消息
// ============================================================================

// BootHandler 引导消息处理器
//
// 返回的 reply 在 ok 为 true 时发布到远程。
type BootHandler interface {
	HandleBoot(ctx context.Context, req *BootMsg) (reply BootMsg, ok bool)
}

// BootHandlerFunc 函数形式的 BootHandler
type BootHandlerFunc func(ctx context.Context, req *BootMsg) (BootMsg, bool)

// HandleBoot 实现 BootHandler
func (f BootHandlerFunc) HandleBoot(ctx context.Context, req *BootMsg) (BootMsg, bool) {
	return f(ctx, req)
}

// NackBootHandler 拒绝所有请求的处理器
//
// 应答类消息（ACK/NACK）不回复，避免两端互相回应。
type NackBootHandler struct{}

// HandleBoot 实现 BootHandler
func (NackBootHandler) HandleBoot(_ context.Context, req *BootMsg) (BootMsg, bool) {
	if req.Type == BootAck || req.Type == BootNack {
		return BootMsg{}, false
	}
	return BootMsg{Type: BootNack}, true
}

// handleBoot 引导主题回调
func (mw *Middleware) handleBoot(msg *message.Message) bool {
	var req BootMsg
	if err := req.Unmarshal(msg.Payload()); err != nil {
		logger.Debug("丢弃无效引导消息", "error", err)
		return false
	}
	if msg.Source() == nil {
		// 本地发布的应答
		return true
	}
	if !mw.stopped.Load() {
		logger.Debug("未处于引导模式，忽略引导消息", "type", req.Type)
		return false
	}

	reply, ok := mw.bootHandler.HandleBoot(context.Background(), &req)
	if !ok {
		return true
	}
	return publishRemote(mw.bootPub, reply.MarshalTo)
}

// Close 停止后台协程，不通知传输也不进入引导模式
//
// 之后中间件不再处理管理消息，也不能再次 Initialize。
func (mw *Middleware) Close() error {
	mw.stopLoop()
	return nil
}

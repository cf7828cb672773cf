package middleware

import (
	"context"

	"github.com/dep2p/go-r2p/internal/core/eventbus"
	"github.com/dep2p/go-r2p/internal/core/message"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
)

// ============================================================================
//                              管理协程
// ============================================================================

// startLoop 启动控制面协程，run 在 n 上自旋
func (mw *Middleware) startLoop(parent context.Context, n *Node, run func(ctx context.Context)) {
	mw.loopMu.Lock()
	defer mw.loopMu.Unlock()

	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	done := make(chan struct{})
	mw.loopCancel = cancel
	mw.loopDone = done
	mw.loopNode = n

	go func() {
		defer close(done)
		run(ctx)
	}()
}

// stopLoop 停止控制面协程并等待退出
func (mw *Middleware) stopLoop() {
	mw.loopMu.Lock()
	cancel, done, n := mw.loopCancel, mw.loopDone, mw.loopNode
	mw.loopCancel, mw.loopDone, mw.loopNode = nil, nil, nil
	mw.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	n.wake()
	<-done
}

// runMgmt 管理协程主循环
func (mw *Middleware) runMgmt(ctx context.Context) {
	logger.Debug("管理协程启动")
	defer logger.Debug("管理协程退出")

	for ctx.Err() == nil {
		mw.mgmtNode.Spin(mw.cfg.SpinTimeout)
		if mw.limiter.AllowN(mw.clk.Now(), 1) {
			mw.announceNext()
		}
	}
}

// announceNext 巡检下一个主题，补发通告或订阅请求
//
// 每次只检查一个主题，轮转推进。
func (mw *Middleware) announceNext() {
	topics := mw.Topics()
	if len(topics) == 0 {
		return
	}
	mw.cursor = (mw.cursor + 1) % len(topics)
	t := topics[mw.cursor]
	if mw.isInternal(t) {
		return
	}

	switch {
	case t.IsAwaitingAdvertisements():
		if err := mw.fanOut(nil, func(tr Transport) error { return tr.NotifySubscription(t) }); err != nil {
			logger.Debug("补发订阅请求失败", "topic", t.Name(), "error", err)
		}
	case t.IsAwaitingSubscriptions():
		if err := mw.fanOut(nil, func(tr Transport) error { return tr.NotifyAdvertisement(t) }); err != nil {
			logger.Debug("补发通告失败", "topic", t.Name(), "error", err)
		}
	}
}

// handleMgmt 管理消息回调
func (mw *Middleware) handleMgmt(msg *message.Message) bool {
	var m MgmtMsg
	if err := m.Unmarshal(msg.Payload()); err != nil {
		logger.Debug("丢弃无效管理消息", "error", err)
		return false
	}

	tr := mw.transportFor(msg.Source())
	logger.Debug("收到管理消息", "type", m.Type, "from", sourceName(tr))

	switch m.Type {
	case MgmtCmdAdvertise:
		return mw.onAdvertise(tr, &m.PubSub)
	case MgmtCmdSubscribeRequest:
		return mw.onSubscribeRequest(tr, &m.PubSub)
	case MgmtCmdSubscribeResponse:
		return mw.onSubscribeResponse(tr, &m.PubSub)
	case MgmtCmdStop, MgmtCmdBootload:
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), mw.cfg.StopTimeout)
			defer cancel()
			if err := mw.Stop(ctx); err != nil {
				logger.Warn("远程停止失败", "error", err)
			}
		}()
		return true
	case MgmtCmdReboot:
		mw.reboot(sourceName(tr))
		return true
	case MgmtInfoModule:
		if m.Module.Name == "" {
			return mw.publishInfo()
		}
		logger.Info("模块状态", "module", m.Module.Name, "stopped", m.Module.Stopped, "from", sourceName(tr))
		return true
	case MgmtInfoAdvertisement, MgmtInfoSubscription:
		logger.Info("端点", "type", m.Type, "path", m.Path.String(), "from", sourceName(tr))
		return true
	default:
		return false
	}
}

func sourceName(tr Transport) string {
	if tr == nil {
		return "local"
	}
	return tr.Name()
}

func (mw *Middleware) onAdvertise(tr Transport, ps *PubSub) bool {
	if tr == nil {
		return false
	}
	t := mw.FindTopic(ps.Topic)
	if t == nil && mw.cfg.BridgeMode {
		var err error
		if t, err = mw.TouchTopic(ps.Topic, int(ps.PayloadSize)); err != nil {
			logger.Debug("桥接主题创建失败", "topic", ps.Topic, "error", err)
			return false
		}
	}
	if t == nil {
		logger.Debug("忽略未知主题的通告", "topic", ps.Topic)
		return false
	}
	if int(ps.PayloadSize) != t.PayloadSize() {
		logger.Warn("通告负载大小不一致", "topic", ps.Topic, "local", t.PayloadSize(), "remote", ps.PayloadSize)
		return false
	}

	if t.HasLocalSubscribers() || mw.cfg.BridgeMode {
		if err := tr.NotifySubscription(t); err != nil {
			logger.Debug("订阅请求发送失败", "topic", t.Name(), "error", err)
			return false
		}
	}
	return true
}

func (mw *Middleware) onSubscribeRequest(tr Transport, ps *PubSub) bool {
	if tr == nil {
		return false
	}
	t := mw.FindTopic(ps.Topic)
	if t == nil {
		logger.Debug("忽略未知主题的订阅请求", "topic", ps.Topic)
		return false
	}
	if !t.HasLocalPublishers() && !(mw.cfg.BridgeMode && t.HasRemotePublishers()) {
		return false
	}

	qlen := max(int(ps.QueueLength), 1)
	if _, err := tr.TouchSubscriber(t, qlen, ps.RawParams); err != nil {
		logger.Warn("创建远程订阅者失败", "topic", t.Name(), "transport", tr.Name(), "error", err)
		return false
	}
	emit(mw.events.remoteSub, eventbus.EvtRemoteSubscriber{Transport: tr.Name(), Topic: t.Name(), QueueLength: qlen})
	if err := tr.SendSubscriptionResponse(t); err != nil {
		logger.Debug("订阅响应发送失败", "topic", t.Name(), "error", err)
		return false
	}
	return true
}

func (mw *Middleware) onSubscribeResponse(tr Transport, ps *PubSub) bool {
	if tr == nil {
		return false
	}
	t := mw.FindTopic(ps.Topic)
	if t == nil {
		logger.Debug("忽略未知主题的订阅响应", "topic", ps.Topic)
		return false
	}
	if !t.HasLocalSubscribers() && !(mw.cfg.BridgeMode && t.HasRemoteSubscribers()) {
		return false
	}
	if _, err := tr.TouchPublisher(t, ps.RawParams); err != nil {
		logger.Warn("创建远程发布者失败", "topic", t.Name(), "transport", tr.Name(), "error", err)
		return false
	}
	emit(mw.events.remotePub, eventbus.EvtRemotePublisher{Transport: tr.Name(), Topic: t.Name()})
	return true
}

// ============================================================================
//                              网络状态
// ============================================================================

// EndpointKind 端点类别
type EndpointKind int

const (
	// EndpointPublisher 发布者
	EndpointPublisher EndpointKind = iota
	// EndpointSubscriber 订阅者
	EndpointSubscriber
)

// String 返回类别名
func (k EndpointKind) String() string {
	if k == EndpointPublisher {
		return "pub"
	}
	return "sub"
}

// Endpoint 本模块的一个端点
type Endpoint struct {
	Kind EndpointKind
	Path Path
}

// NetworkState 返回模块信息及全部应用端点
func (mw *Middleware) NetworkState() (ModuleInfo, []Endpoint) {
	info := ModuleInfo{Name: mw.cfg.ModuleName, Stopped: mw.stopping.Load()}

	var eps []Endpoint
	for _, n := range mw.Nodes() {
		if n.internal {
			continue
		}
		for _, p := range n.Publishers() {
			eps = append(eps, Endpoint{
				Kind: EndpointPublisher,
				Path: Path{Module: info.Name, Node: n.name, Topic: p.Topic().Name()},
			})
		}
		for _, s := range n.Subscribers() {
			eps = append(eps, Endpoint{
				Kind: EndpointSubscriber,
				Path: Path{Module: info.Name, Node: n.name, Topic: s.Topic().Name()},
			})
		}
	}
	return info, eps
}

// publishInfo 把网络状态发布到所有传输
func (mw *Middleware) publishInfo() bool {
	info, eps := mw.NetworkState()
	if !mw.publishMgmt(&MgmtMsg{Type: MgmtInfoModule, Module: info}) {
		return false
	}
	for _, ep := range eps {
		typ := MgmtInfoAdvertisement
		if ep.Kind == EndpointSubscriber {
			typ = MgmtInfoSubscription
		}
		if !mw.publishMgmt(&MgmtMsg{Type: typ, Path: ep.Path}) {
			return false
		}
	}
	return true
}

// RequestInfo 请求所有对端回报网络状态
func (mw *Middleware) RequestInfo() bool {
	return mw.publishMgmt(&MgmtMsg{Type: MgmtInfoModule})
}

// publishMgmt 把管理消息发布到远程
func (mw *Middleware) publishMgmt(m *MgmtMsg) bool {
	return publishRemote(mw.mgmtPub, m.MarshalTo)
}

func publishRemote(pub *pubsub.LocalPublisher, encode func([]byte) error) bool {
	msg, ok := pub.Alloc()
	if !ok {
		logger.Debug("管理消息池耗尽", "topic", pub.Topic().Name())
		return false
	}
	if err := encode(msg.Payload()); err != nil {
		logger.Warn("管理消息编码失败", "error", err)
		pub.Topic().Free(msg)
		return false
	}
	return pub.PublishRemotely(msg)
}

package eventbus

// EvtTransportAdded 传输已注册
type EvtTransportAdded struct {
	Transport string
}

// EvtRemotePublisher 订阅响应后建立了远程发布者
type EvtRemotePublisher struct {
	Transport string
	Topic     string
}

// EvtRemoteSubscriber 订阅请求后建立了远程订阅者
type EvtRemoteSubscriber struct {
	Transport   string
	Topic       string
	QueueLength int
}

// EvtModuleStopped 模块已停止并进入引导模式
type EvtModuleStopped struct {
	Module string
}

// EvtRebootRequested 收到重启请求
type EvtRebootRequested struct {
	Module string
	// Source 请求来源传输，本地调用为 "local"
	Source string
}

// Package eventbus 实现进程内事件总线
//
// 中间件在网络拓扑变化时发射事件，应用按事件类型订阅：
//
//	sub, _ := eventbus.Subscribe[eventbus.EvtRemoteSubscriber](bus, eventbus.BufSize(8))
//	defer sub.Close()
//	for evt := range sub.Out() {
//	    fmt.Println(evt.Transport, evt.Topic)
//	}
//
// # 投递语义
//
// 每个事件类型一个节点，按订阅顺序投递。订阅缓冲区满时丢弃事件，
// 不阻塞发射者（中间件的管理协程）。有状态发射器保留最后一个事件，
// 新订阅者立即收到。
//
// # 事件
//
//   - EvtTransportAdded   传输注册
//   - EvtRemotePublisher  远程发布者建立
//   - EvtRemoteSubscriber 远程订阅者建立
//   - EvtModuleStopped    模块进入引导模式（有状态）
//   - EvtRebootRequested  收到重启请求
package eventbus

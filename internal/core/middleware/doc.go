// Package middleware 实现 R2P 控制面
//
// Middleware 是显式构造的根对象，持有主题表、节点表、传输表，
// 以及两个常驻主题：管理主题（MgmtMsg）和引导主题（BootMsg）。
//
// # 生命周期
//
//	mw, _ := middleware.New(cfg)
//	_ = mw.Initialize(ctx)   // 注册常驻主题，启动管理协程
//	node, _ := mw.NewNode("led")
//	...
//	_ = mw.Stop(ctx)         // 通知传输、等待节点确认、切换到引导模式
//
// # 管理协议
//
// 端点建立握手（A 有发布者，B 有订阅者）：
//
//	A → B  CMD_ADVERTISE          (topic, payload_size)
//	B → A  CMD_SUBSCRIBE_REQUEST  (topic, queue_length)
//	A      TouchSubscriber，创建远程订阅者
//	A → B  CMD_SUBSCRIBE_RESPONSE (topic, raw_params)
//	B      TouchPublisher，创建远程发布者
//
// 管理协程按限速逐个巡检主题，补发丢失的通告与订阅请求。
package middleware

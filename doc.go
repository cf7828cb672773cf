// Package r2p 提供嵌入式发布/订阅中间件
//
// R2P 以主题为中心，在同一进程内的节点之间零拷贝传递定长消息，
// 并通过传输（调试串口、TCP、CAN 总线）把主题延伸到其他模块。
//
// # 核心概念
//
//   - Runtime: 一个模块的运行时，组装中间件、传输与指标
//   - Node: 应用节点，拥有发布者与订阅者，在自己的协程中 Spin
//   - Topic: 定长负载与共享内存池，按名称在模块间自动握手
//
// # 快速开始
//
//	import "github.com/dep2p/go-r2p"
//
//	rt, err := r2p.Start(ctx,
//	    r2p.WithModuleName("BASE"),
//	    r2p.WithTCPListen(":7450"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	node, _ := rt.NewNode("imu")
//	pub, _ := r2p.Advertise[Imu](node, "imu", 10*time.Millisecond)
//	pub.Publish(&Imu{Ax: 1})
//
// # 订阅
//
//	node, _ := rt.NewNode("ctrl")
//	r2p.Subscribe(node, "imu", 4, func(m *Imu) { ... })
//	for node.Spin(100 * time.Millisecond) || running {
//	}
//
// # 停止与引导
//
// Runtime.Stop 执行中间件停止流程：通知所有传输、等待应用节点确认，
// 随后切换到引导模式，只处理 R2P_BOOT 主题。Runtime.Close 关闭传输与后台协程。
package r2p

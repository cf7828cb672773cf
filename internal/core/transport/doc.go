// Package transport 实现传输公共部分
//
// Base 实现 middleware.Transport 中与链路无关的部分：远程发布者/订阅者
// 表、管理主题端点、待发送订阅者队列和发送协程。具体链路只需实现
// Driver，负责控制帧的发送和接收帧的解码。
//
// # 文件组织
//
//   - base.go   - Base：端点表、Touch、注入
//   - pump.go   - 发送协程
//   - module.go - Manager 与 Fx 模块
//   - errors.go - 错误定义
//
// # 使用示例
//
//	type Transport struct {
//	    *transport.Base
//	    conn io.ReadWriteCloser
//	}
//
//	t := &Transport{conn: conn}
//	t.Base = transport.NewBase("debug", mw, t)
//	_ = t.Register()
//
// # 接收路径
//
// 控制帧解码为 middleware.MgmtMsg 后经 InjectMgmt 注入管理主题，
// 数据帧经 InjectData 交给对应主题的远程发布者，来源标记为本传输。
//
// # 发送路径
//
// 远程订阅者入队时 Wake 把它挂到待发送队列，RunTx 在独立协程中
// 取出并逐条调用链路的发送函数，发送完成后归还引用。
//
// # 并发安全
//
// 发布者表和订阅者表各有一把互斥锁串行化 Touch，链表本身受中间件
// SysLock 保护。
package transport

// Package pubsub 实现主题路由与发布/订阅句柄
//
// # 消息生命周期
//
// 发布者从主题的内存池分配消息（引用计数 0），填写负载后 Publish：
//
//  1. 发布者先持有一个引用
//  2. 每个本地订阅者、远程订阅者入队成功各持有一个引用
//  3. 入队失败（队列已满）立即归还该分支的引用
//  4. 发布者归还自己的引用
//
// 消费者 Fetch 后处理、Release；最后一个持有者 Release 时块回到池中。
// 单个订阅者的投递失败不影响发布结果，Publish 语义为尽力而为。
//
// # 句柄
//
// 句柄分为本地/远程 × 发布者/订阅者四种，由 Publisher、Subscriber
// 两个能力接口统一。句柄第一次 Advertise/Subscribe 时与主题绑定，
// 重复绑定会 panic。未绑定的句柄不可使用。
//
// # 并发
//
// 引用计数、订阅者链表、内存池、订阅者队列都由中间件唯一的
// osal.SysLock 保护。
package pubsub

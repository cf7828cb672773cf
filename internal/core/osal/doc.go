// Package osal 提供 R2P 的并发基础设施
//
// 包含中间件依赖的全部同步原语：
//   - SysLock: 全局短临界区，保护引用计数、侵入式链表、内存池空闲链表
//   - Semaphore: 支持超时的计数信号量
//   - SpinEvent: 多位事件，节点的 Spin 循环在其上等待
//
// Go 没有线程身份，可重入加锁改用 Unsafe 约定表达：
// 已持锁的调用方使用 Unsafe 变体，不再二次加锁。
//
// 所有阻塞原语都接受超时参数，Immediate 表示非阻塞轮询，
// Infinite 表示无限等待。计时使用注入的 clock.Clock，
// 测试中可替换为 clock.NewMock()。
package osal

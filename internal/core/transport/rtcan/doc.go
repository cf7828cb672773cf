// Package rtcan 实现 CAN 总线上的 R2P 传输
//
// 总线是广播介质，每个节点以 8 位节点号区分。CAN 标识符为 16 位：
//
//	id = class << 8 | node
//
// class 0 承载控制帧（通告、订阅请求与响应、停止、重启、引导），
// class 1 固定给管理主题 R2P，其余主题的 class 取名称 murmur3 哈希的低 8 位。
// 发布方在订阅响应中携带自己的数据 id，接收方只接受已登记 id 的数据帧。
//
// 链路由 Driver 抽象，分片与重组由驱动负责；VirtualBus 提供进程内总线。
package rtcan

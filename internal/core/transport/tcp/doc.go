// Package tcp 实现 TCP 点对点传输
//
// 一条 TCP 连接上建立 yamux 会话，拨号方依次打开控制流与数据流，
// 监听方按相同顺序接受。两条流上都是长度前缀的 protowire 记录：
//
//	1 kind          varint
//	2 topic         bytes
//	3 payload       bytes
//	4 payload_size  varint
//	5 queue_length  varint
//	6 deadline      fixed64（Unix 纳秒，0 表示不限时）
//	7 raw_params    bytes
//	8 module        bytes
//
// # 升级流程
//
//  1. 建立 TCP 连接
//  2. yamux 会话（拨号方为 client）
//  3. 打开/接受控制流、数据流
//
// 连接建立前发送的控制帧返回 ErrNotConnected，由控制面的周期巡检补发。
package tcp

// Package debug 实现十六进制文本调试传输
//
// 帧格式（一行一帧，适合串口终端直接观察）：
//
//	数据帧  @<deadline 16hex>:<namelen 2hex><name>:<len 2hex><payload hex>:<cs 2hex>\r\n
//	控制帧  @<deadline 16hex>:00:<cmd>[<qlen 2hex>][:<modlen><module>:<toplen><topic>]:<cs 2hex>\r\n
//
// cmd 取值：p 通告，s 订阅请求（带队列长度），e 订阅响应，
// t 停止，r 重启，b 进入引导。
//
// 校验和为参与字段字节和的补码，参与字段为 deadline（大端 8 字节）、
// 各长度字节、名称、负载、命令字符与队列长度。管理帧的空主题长度不参与。
//
// 校验失败、主题未知、长度不符或没有远程发布者的帧被丢弃。
package debug

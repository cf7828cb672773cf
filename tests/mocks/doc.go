// Package mocks 提供统一的测试 Mock 实现
//
// # 传输 Mock
//
//   - MockTransport: 模拟 middleware.Transport，记录通告、订阅请求与停止通知
//
// # 总线 Mock
//
//   - MockCANDriver: 模拟 rtcan.Driver，发送帧进入记录，接收帧由测试注入
//
// # 板级 Mock
//
//   - MockBoard: 记录重启次数
//
// # 设计原则
//
// 1. 函数式注入: 每个 Mock 都支持通过 XxxFunc 字段注入自定义行为
// 2. 调用记录: 关键 Mock 记录调用历史，便于验证测试行为
//
// # 使用示例
//
//	tr := mocks.NewMockTransport("mock")
//	require.NoError(t, mw.AddTransport(tr))
//	// ...
//	assert.Equal(t, []string{"imu"}, tr.Advertised())
package mocks

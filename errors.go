package r2p

import "errors"

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 运行时生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 运行时未启动
	ErrNotStarted = errors.New("runtime not started")

	// ErrAlreadyStarted 运行时已启动
	ErrAlreadyStarted = errors.New("runtime already started")

	// ErrClosed 运行时已关闭
	ErrClosed = errors.New("runtime closed")

	// ────────────────────────────────────────────────────────────────────────
	// 配置相关错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNoCANDriver 启用了 RTCAN 但未提供驱动
	ErrNoCANDriver = errors.New("rtcan enabled without driver")

	// ────────────────────────────────────────────────────────────────────────
	// 类型化收发错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrUnsizedType 消息类型不是定长类型
	ErrUnsizedType = errors.New("message type has no fixed size")

	// ErrPoolExhausted 主题内存池耗尽
	ErrPoolExhausted = errors.New("topic pool exhausted")
)

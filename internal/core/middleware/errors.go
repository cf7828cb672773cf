package middleware

import "errors"

// 错误定义
var (
	// ErrNotInitialized 中间件未初始化
	ErrNotInitialized = errors.New("middleware: not initialized")

	// ErrAlreadyInitialized 中间件已初始化
	ErrAlreadyInitialized = errors.New("middleware: already initialized")

	// ErrStopped 中间件已停止
	ErrStopped = errors.New("middleware: stopped")

	// ErrPayloadSizeMismatch 同名主题负载大小不一致
	ErrPayloadSizeMismatch = errors.New("middleware: payload size mismatch")

	// ErrTooManySubscribers 节点事件位已用尽
	ErrTooManySubscribers = errors.New("middleware: too many subscribers for node")

	// ErrDuplicateNode 节点名重复
	ErrDuplicateNode = errors.New("middleware: duplicate node name")

	// ErrDuplicateTransport 传输名重复
	ErrDuplicateTransport = errors.New("middleware: duplicate transport name")

	// ErrInvalidMgmtMsg 管理消息格式错误
	ErrInvalidMgmtMsg = errors.New("middleware: invalid management message")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("middleware: invalid config")
)

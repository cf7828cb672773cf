package tcp

import "errors"

var (
	// ErrNotConnected 会话尚未建立或已断开
	ErrNotConnected = errors.New("tcp: not connected")

	// ErrFrameTooLarge 帧超过上限
	ErrFrameTooLarge = errors.New("tcp: frame too large")

	// ErrInvalidFrame 帧解码失败
	ErrInvalidFrame = errors.New("tcp: invalid frame")

	// ErrNoEndpoint 既未配置监听也未配置拨号
	ErrNoEndpoint = errors.New("tcp: neither listen nor dial address configured")
)

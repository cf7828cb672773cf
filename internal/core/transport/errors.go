package transport

import "errors"

var (
	// ErrNoPublisher 主题没有该传输的远程发布者
	ErrNoPublisher = errors.New("transport: no remote publisher for topic")

	// ErrNoSubscriber 主题没有该传输的远程订阅者
	ErrNoSubscriber = errors.New("transport: no remote subscriber for topic")

	// ErrPayloadSize 负载长度与主题不符
	ErrPayloadSize = errors.New("transport: payload size mismatch")

	// ErrPoolExhausted 主题内存池耗尽
	ErrPoolExhausted = errors.New("transport: topic pool exhausted")

	// ErrClosed 传输已关闭
	ErrClosed = errors.New("transport: closed")
)

package pubsub

import "errors"

// 错误定义
var (
	// ErrInvalidTopic 主题参数无效
	ErrInvalidTopic = errors.New("pubsub: invalid topic")

	// ErrBlockSizeMismatch 扩容块大小与主题负载大小不一致
	ErrBlockSizeMismatch = errors.New("pubsub: block size mismatch")
)

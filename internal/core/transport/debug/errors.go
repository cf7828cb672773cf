package debug

import "errors"

var (
	// ErrFrame 帧格式错误
	ErrFrame = errors.New("debug: malformed frame")

	// ErrChecksum 校验和不符
	ErrChecksum = errors.New("debug: checksum mismatch")
)

package rtcan

import "errors"

var (
	// ErrBusClosed 总线端口已关闭
	ErrBusClosed = errors.New("rtcan: bus port closed")

	// ErrFrameTooLarge 帧数据超出上限
	ErrFrameTooLarge = errors.New("rtcan: frame too large")

	// ErrInvalidFrame 控制帧格式错误
	ErrInvalidFrame = errors.New("rtcan: invalid control frame")

	// ErrUnknownID 数据帧 id 未登记
	ErrUnknownID = errors.New("rtcan: unknown data id")
)

package rtcan

import (
	"fmt"

	"github.com/dep2p/go-r2p/pkg/types"
)

// MaxFrameData 单帧数据上限，由驱动分片
const MaxFrameData = 256

// Frame 总线帧
type Frame struct {
	ID   ID
	Data []byte
}

// 控制帧类型字符
const (
	CtrlAdvertise         byte = 'P'
	CtrlSubscribeRequest  byte = 'S'
	CtrlSubscribeResponse byte = 'E'
	CtrlStop              byte = 't'
	CtrlReboot            byte = 'r'
	CtrlBootload          byte = 'b'
)

// Control 控制帧内容
//
// 布局：type | qlen | data id (2, 大端) | payload size | topic len | topic
// 停止、重启、引导只有 type 一个字节。
type Control struct {
	Type        byte
	QueueLength uint8
	DataID      ID
	PayloadSize uint8
	Topic       string
}

func (c *Control) hasTopic() bool {
	switch c.Type {
	case CtrlAdvertise, CtrlSubscribeRequest, CtrlSubscribeResponse:
		return true
	}
	return false
}

// AppendControl 追加控制帧编码
func AppendControl(dst []byte, c *Control) []byte {
	dst = append(dst, c.Type)
	if !c.hasTopic() {
		return dst
	}
	dst = append(dst, c.QueueLength, byte(c.DataID>>8), byte(c.DataID), c.PayloadSize, byte(len(c.Topic)))
	return append(dst, c.Topic...)
}

// ParseControl 解析控制帧
func ParseControl(b []byte) (Control, error) {
	var c Control
	if len(b) == 0 {
		return c, fmt.Errorf("%w: empty", ErrInvalidFrame)
	}
	c.Type = b[0]
	switch c.Type {
	case CtrlStop, CtrlReboot, CtrlBootload:
		return c, nil
	case CtrlAdvertise, CtrlSubscribeRequest, CtrlSubscribeResponse:
	default:
		return c, fmt.Errorf("%w: type %q", ErrInvalidFrame, c.Type)
	}

	if len(b) < 6 {
		return c, fmt.Errorf("%w: short header", ErrInvalidFrame)
	}
	n := int(b[5])
	if n == 0 || n > types.TopicNameMaxLen || len(b) != 6+n {
		return c, fmt.Errorf("%w: topic length %d", ErrInvalidFrame, n)
	}
	c.QueueLength = b[1]
	c.DataID = ID(b[2])<<8 | ID(b[3])
	c.PayloadSize = b[4]
	c.Topic = string(b[6:])
	return c, nil
}

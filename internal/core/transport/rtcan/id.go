package rtcan

import (
	"encoding/binary"
	"fmt"

	"github.com/spaolacci/murmur3"

	"github.com/dep2p/go-r2p/internal/core/middleware"
)

// 保留的 class
const (
	ControlClass uint8 = 0
	MgmtClass    uint8 = 1
)

// ID CAN 标识符
type ID uint16

// NewID 由 class 与节点号组成标识符
func NewID(class, node uint8) ID {
	return ID(class)<<8 | ID(node)
}

// Class 返回高 8 位
func (id ID) Class() uint8 { return uint8(id >> 8) }

// Node 返回低 8 位
func (id ID) Node() uint8 { return uint8(id) }

// Bytes 以大端两字节编码，用作端点路由参数
func (id ID) Bytes() []byte {
	return binary.BigEndian.AppendUint16(nil, uint16(id))
}

func (id ID) String() string {
	return fmt.Sprintf("%02x:%02x", id.Class(), id.Node())
}

// ParseID 解析路由参数，长度不足返回 false
func ParseID(raw []byte) (ID, bool) {
	if len(raw) < 2 {
		return 0, false
	}
	return ID(binary.BigEndian.Uint16(raw)), true
}

// ClassOf 返回主题的 class
//
// 哈希落在保留区时置最高位。
func ClassOf(topic string) uint8 {
	if topic == middleware.MgmtTopicName {
		return MgmtClass
	}
	c := uint8(murmur3.Sum32([]byte(topic)))
	if c <= MgmtClass {
		c |= 0x80
	}
	return c
}

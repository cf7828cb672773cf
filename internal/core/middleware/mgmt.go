package middleware

import (
	"fmt"

	"github.com/dep2p/go-r2p/pkg/types"
)

// ============================================================================
//                              MgmtMsg
// ============================================================================

// MgmtType 管理消息类型
type MgmtType uint8

// 管理消息类型
const (
	MgmtRaw MgmtType = 0x00

	MgmtInfoModule        MgmtType = 0x10
	MgmtInfoAdvertisement MgmtType = 0x11
	MgmtInfoSubscription  MgmtType = 0x12

	MgmtCmdAdvertise         MgmtType = 0x20
	MgmtCmdSubscribeRequest  MgmtType = 0x21
	MgmtCmdSubscribeResponse MgmtType = 0x22

	MgmtCmdStop     MgmtType = 0x30
	MgmtCmdReboot   MgmtType = 0x31
	MgmtCmdBootload MgmtType = 0x32
)

// String 返回类型名
func (t MgmtType) String() string {
	switch t {
	case MgmtRaw:
		return "RAW"
	case MgmtInfoModule:
		return "INFO_MODULE"
	case MgmtInfoAdvertisement:
		return "INFO_ADVERTISEMENT"
	case MgmtInfoSubscription:
		return "INFO_SUBSCRIPTION"
	case MgmtCmdAdvertise:
		return "CMD_ADVERTISE"
	case MgmtCmdSubscribeRequest:
		return "CMD_SUBSCRIBE_REQUEST"
	case MgmtCmdSubscribeResponse:
		return "CMD_SUBSCRIBE_RESPONSE"
	case MgmtCmdStop:
		return "CMD_STOP"
	case MgmtCmdReboot:
		return "CMD_REBOOT"
	case MgmtCmdBootload:
		return "CMD_BOOTLOAD"
	default:
		return fmt.Sprintf("MgmtType(0x%02x)", uint8(t))
	}
}

// 管理消息布局
//
//	[0, 31)  负载联合体
//	31       类型
//
// PubSub:  topic[16] payload_size[1] queue_length[1] raw_params[13]
// Path:    module[7] node[8] topic[16]
// Module:  name[7] flags[1]（bit0 = stopped）
const (
	// MgmtMsgSize 管理消息总长度
	MgmtMsgSize = 32

	mgmtPayloadLen = MgmtMsgSize - 1

	// MaxRawParamsLen 路由参数最大长度
	MaxRawParamsLen = mgmtPayloadLen - types.TopicNameMaxLen - 2
)

// Path 端点路径
type Path struct {
	Module string
	Node   string
	Topic  string
}

// String 返回 module/node/topic 形式
func (p Path) String() string {
	return p.Module + "/" + p.Node + "/" + p.Topic
}

// PubSub 端点通告参数
type PubSub struct {
	Topic       string
	PayloadSize uint8
	QueueLength uint8
	RawParams   []byte
}

// ModuleInfo 模块信息
type ModuleInfo struct {
	Name    string
	Stopped bool
}

// MgmtMsg 管理消息
//
// 按 Type 只使用其中一个联合体成员。
type MgmtMsg struct {
	Type   MgmtType
	Path   Path
	PubSub PubSub
	Module ModuleInfo
	Raw    [mgmtPayloadLen]byte
}

// MarshalTo 编码到 b
func (m *MgmtMsg) MarshalTo(b []byte) error {
	if len(b) != MgmtMsgSize {
		return fmt.Errorf("%w: size %d", ErrInvalidMgmtMsg, len(b))
	}
	clear(b)
	payload := b[:mgmtPayloadLen]

	switch m.Type {
	case MgmtRaw:
		copy(payload, m.Raw[:])
	case MgmtInfoModule:
		if len(m.Module.Name) > types.ModuleNameMaxLen {
			return fmt.Errorf("%w: module name %q", ErrInvalidMgmtMsg, m.Module.Name)
		}
		types.PutName(payload[:types.ModuleNameMaxLen], m.Module.Name)
		if m.Module.Stopped {
			payload[types.ModuleNameMaxLen] = 1
		}
	case MgmtInfoAdvertisement, MgmtInfoSubscription:
		if len(m.Path.Module) > types.ModuleNameMaxLen ||
			len(m.Path.Node) > types.NodeNameMaxLen ||
			len(m.Path.Topic) > types.TopicNameMaxLen {
			return fmt.Errorf("%w: path %s", ErrInvalidMgmtMsg, m.Path)
		}
		off := 0
		types.PutName(payload[off:off+types.ModuleNameMaxLen], m.Path.Module)
		off += types.ModuleNameMaxLen
		types.PutName(payload[off:off+types.NodeNameMaxLen], m.Path.Node)
		off += types.NodeNameMaxLen
		types.PutName(payload[off:off+types.TopicNameMaxLen], m.Path.Topic)
	case MgmtCmdAdvertise, MgmtCmdSubscribeRequest, MgmtCmdSubscribeResponse:
		if len(m.PubSub.Topic) > types.TopicNameMaxLen || len(m.PubSub.RawParams) > MaxRawParamsLen {
			return fmt.Errorf("%w: pubsub %q", ErrInvalidMgmtMsg, m.PubSub.Topic)
		}
		types.PutName(payload[:types.TopicNameMaxLen], m.PubSub.Topic)
		payload[types.TopicNameMaxLen] = m.PubSub.PayloadSize
		payload[types.TopicNameMaxLen+1] = m.PubSub.QueueLength
		copy(payload[types.TopicNameMaxLen+2:], m.PubSub.RawParams)
	case MgmtCmdStop, MgmtCmdReboot, MgmtCmdBootload:
	default:
		return fmt.Errorf("%w: type %s", ErrInvalidMgmtMsg, m.Type)
	}

	b[mgmtPayloadLen] = byte(m.Type)
	return nil
}

// Unmarshal 从 b 解码
//
// PubSub.RawParams 保留全部 MaxRawParamsLen 字节，
// 去掉尾部零字节后的长度由具体传输解释。
func (m *MgmtMsg) Unmarshal(b []byte) error {
	if len(b) != MgmtMsgSize {
		return fmt.Errorf("%w: size %d", ErrInvalidMgmtMsg, len(b))
	}
	*m = MgmtMsg{Type: MgmtType(b[mgmtPayloadLen])}
	payload := b[:mgmtPayloadLen]

	switch m.Type {
	case MgmtRaw:
		copy(m.Raw[:], payload)
	case MgmtInfoModule:
		m.Module.Name = types.GetName(payload[:types.ModuleNameMaxLen])
		m.Module.Stopped = payload[types.ModuleNameMaxLen]&1 != 0
	case MgmtInfoAdvertisement, MgmtInfoSubscription:
		off := 0
		m.Path.Module = types.GetName(payload[off : off+types.ModuleNameMaxLen])
		off += types.ModuleNameMaxLen
		m.Path.Node = types.GetName(payload[off : off+types.NodeNameMaxLen])
		off += types.NodeNameMaxLen
		m.Path.Topic = types.GetName(payload[off : off+types.TopicNameMaxLen])
	case MgmtCmdAdvertise, MgmtCmdSubscribeRequest, MgmtCmdSubscribeResponse:
		m.PubSub.Topic = types.GetName(payload[:types.TopicNameMaxLen])
		m.PubSub.PayloadSize = payload[types.TopicNameMaxLen]
		m.PubSub.QueueLength = payload[types.TopicNameMaxLen+1]
		m.PubSub.RawParams = append([]byte(nil), payload[types.TopicNameMaxLen+2:]...)
	case MgmtCmdStop, MgmtCmdReboot, MgmtCmdBootload:
	default:
		return fmt.Errorf("%w: type %s", ErrInvalidMgmtMsg, m.Type)
	}
	return nil
}

// ============================================================================
//                              BootMsg
// ============================================================================

// BootType 引导消息类型
type BootType uint8

// 引导消息类型
const (
	BootNack BootType = iota
	BootAck
	BootBeginLoader
	BootEndLoader
	BootLinkingSetup
	BootLinkingAddresses
	BootLinkingOutcome
	BootIhexRecord
	BootRemoveLast
	BootRemoveAll
	BootBeginAppInfo
	BootEndAppInfo
	BootAppInfoSummary
	BootBeginSetParam
	BootEndSetParam
	BootBeginGetParam
	BootEndGetParam
	BootParamRequest
	BootParamChunk
)

// 引导消息布局：data[30] type[1]
const (
	// BootMsgSize 引导消息总长度
	BootMsgSize = 31

	// BootDataLen 引导消息数据长度
	BootDataLen = BootMsgSize - 1
)

// BootMsg 引导消息
//
// Data 的解释由 BootHandler 负责。
type BootMsg struct {
	Type BootType
	Data [BootDataLen]byte
}

// MarshalTo 编码到 b
func (m *BootMsg) MarshalTo(b []byte) error {
	if len(b) != BootMsgSize {
		return fmt.Errorf("%w: boot size %d", ErrInvalidMgmtMsg, len(b))
	}
	copy(b[:BootDataLen], m.Data[:])
	b[BootDataLen] = byte(m.Type)
	return nil
}

// Unmarshal 从 b 解码
func (m *BootMsg) Unmarshal(b []byte) error {
	if len(b) != BootMsgSize {
		return fmt.Errorf("%w: boot size %d", ErrInvalidMgmtMsg, len(b))
	}
	copy(m.Data[:], b[:BootDataLen])
	m.Type = BootType(b[BootDataLen])
	return nil
}

package tcp

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Kind 帧类型
type Kind uint8

// 帧类型
const (
	KindData Kind = iota + 1
	KindAdvertise
	KindSubscribeRequest
	KindSubscribeResponse
	KindStop
	KindReboot
	KindBootload
)

// String 返回类型名
func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindAdvertise:
		return "advertise"
	case KindSubscribeRequest:
		return "subscribe_request"
	case KindSubscribeResponse:
		return "subscribe_response"
	case KindStop:
		return "stop"
	case KindReboot:
		return "reboot"
	case KindBootload:
		return "bootload"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MaxFrameSize 单帧上限
const MaxFrameSize = 1024

// 字段号
const (
	fieldKind        protowire.Number = 1
	fieldTopic       protowire.Number = 2
	fieldPayload     protowire.Number = 3
	fieldPayloadSize protowire.Number = 4
	fieldQueueLength protowire.Number = 5
	fieldDeadline    protowire.Number = 6
	fieldRawParams   protowire.Number = 7
	fieldModule      protowire.Number = 8
)

// Frame 传输帧
type Frame struct {
	Kind        Kind
	Topic       string
	Payload     []byte
	PayloadSize int
	QueueLength int
	Deadline    time.Time
	RawParams   []byte
	Module      string
}

// AppendFrame 追加一条长度前缀记录
func AppendFrame(dst []byte, f *Frame) []byte {
	var body []byte
	body = protowire.AppendTag(body, fieldKind, protowire.VarintType)
	body = protowire.AppendVarint(body, uint64(f.Kind))
	if f.Topic != "" {
		body = protowire.AppendTag(body, fieldTopic, protowire.BytesType)
		body = protowire.AppendString(body, f.Topic)
	}
	if len(f.Payload) > 0 {
		body = protowire.AppendTag(body, fieldPayload, protowire.BytesType)
		body = protowire.AppendBytes(body, f.Payload)
	}
	if f.PayloadSize > 0 {
		body = protowire.AppendTag(body, fieldPayloadSize, protowire.VarintType)
		body = protowire.AppendVarint(body, uint64(f.PayloadSize))
	}
	if f.QueueLength > 0 {
		body = protowire.AppendTag(body, fieldQueueLength, protowire.VarintType)
		body = protowire.AppendVarint(body, uint64(f.QueueLength))
	}
	if !f.Deadline.IsZero() {
		body = protowire.AppendTag(body, fieldDeadline, protowire.Fixed64Type)
		body = protowire.AppendFixed64(body, uint64(f.Deadline.UnixNano()))
	}
	if len(f.RawParams) > 0 {
		body = protowire.AppendTag(body, fieldRawParams, protowire.BytesType)
		body = protowire.AppendBytes(body, f.RawParams)
	}
	if f.Module != "" {
		body = protowire.AppendTag(body, fieldModule, protowire.BytesType)
		body = protowire.AppendString(body, f.Module)
	}

	dst = protowire.AppendVarint(dst, uint64(len(body)))
	return append(dst, body...)
}

// ReadFrame 读取一条长度前缀记录
func ReadFrame(r *bufio.Reader) (Frame, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return Frame{}, err
	}
	if n > MaxFrameSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, err
	}
	return UnmarshalFrame(body)
}

// UnmarshalFrame 解码记录体，未知字段被跳过
func UnmarshalFrame(b []byte) (Frame, error) {
	var f Frame
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return f, fmt.Errorf("%w: %v", ErrInvalidFrame, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldKind && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return f, fmt.Errorf("%w: kind", ErrInvalidFrame)
			}
			f.Kind, n = Kind(v), m
		case num == fieldTopic && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return f, fmt.Errorf("%w: topic", ErrInvalidFrame)
			}
			f.Topic, n = v, m
		case num == fieldPayload && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return f, fmt.Errorf("%w: payload", ErrInvalidFrame)
			}
			f.Payload, n = append([]byte(nil), v...), m
		case num == fieldPayloadSize && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return f, fmt.Errorf("%w: payload size", ErrInvalidFrame)
			}
			f.PayloadSize, n = int(v), m
		case num == fieldQueueLength && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return f, fmt.Errorf("%w: queue length", ErrInvalidFrame)
			}
			f.QueueLength, n = int(v), m
		case num == fieldDeadline && typ == protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(b)
			if m < 0 {
				return f, fmt.Errorf("%w: deadline", ErrInvalidFrame)
			}
			f.Deadline, n = time.Unix(0, int64(v)), m
		case num == fieldRawParams && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return f, fmt.Errorf("%w: raw params", ErrInvalidFrame)
			}
			f.RawParams, n = append([]byte(nil), v...), m
		case num == fieldModule && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return f, fmt.Errorf("%w: module", ErrInvalidFrame)
			}
			f.Module, n = v, m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return f, fmt.Errorf("%w: field %d", ErrInvalidFrame, num)
			}
		}
		b = b[n:]
	}

	if f.Kind < KindData || f.Kind > KindBootload {
		return f, fmt.Errorf("%w: %s", ErrInvalidFrame, f.Kind)
	}
	return f, nil
}

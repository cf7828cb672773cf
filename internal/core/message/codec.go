package message

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrSizeMismatch 类型大小与负载大小不一致
var ErrSizeMismatch = errors.New("message: type size does not match payload size")

// ByteOrder 负载编码字节序
var ByteOrder = binary.LittleEndian

// SizeOf 返回定长类型 M 的编码大小
//
// M 必须只包含定长字段（整数、浮点、定长数组、嵌套结构体）。
// 非定长类型返回 -1。
func SizeOf[M any]() int {
	var zero M
	return binary.Size(&zero)
}

// Encode 把 v 编码进消息负载
func Encode[M any](msg *Message, v *M) error {
	if err := checkSize[M](msg); err != nil {
		return err
	}
	if _, err := binary.Encode(msg.payload, ByteOrder, v); err != nil {
		return fmt.Errorf("message: encode: %w", err)
	}
	return nil
}

// Decode 从消息负载解码到 v
func Decode[M any](msg *Message, v *M) error {
	if err := checkSize[M](msg); err != nil {
		return err
	}
	if _, err := binary.Decode(msg.payload, ByteOrder, v); err != nil {
		return fmt.Errorf("message: decode: %w", err)
	}
	return nil
}

func checkSize[M any](msg *Message) error {
	if size := SizeOf[M](); size != len(msg.payload) {
		return fmt.Errorf("%w: %d != %d", ErrSizeMismatch, size, len(msg.payload))
	}
	return nil
}

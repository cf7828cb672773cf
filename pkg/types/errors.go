// Package types 定义 R2P 的基础类型
//
// 本文件定义所有公共错误类型。
package types

import "errors"

// ============================================================================
//                              名称相关错误
// ============================================================================

var (
	// ErrEmptyName 空名称
	ErrEmptyName = errors.New("empty name")

	// ErrNameTooLong 名称超出长度限制
	ErrNameTooLong = errors.New("name too long")

	// ErrInvalidNameChar 名称包含非法字符
	ErrInvalidNameChar = errors.New("invalid character in name")
)

// ============================================================================
//                              负载相关错误
// ============================================================================

var (
	// ErrInvalidPayloadSize 负载大小无效
	ErrInvalidPayloadSize = errors.New("invalid payload size")
)

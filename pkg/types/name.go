package types

import "fmt"

// ============================================================================
//                              名称限制
// ============================================================================

// 名称长度上限（字节）
//
// 与线上格式中的定长字段一致，超长名称无法编码进管理消息。
const (
	// ModuleNameMaxLen 模块名最大长度
	ModuleNameMaxLen = 7

	// NodeNameMaxLen 节点名最大长度
	NodeNameMaxLen = 8

	// TopicNameMaxLen 主题名最大长度
	TopicNameMaxLen = 16
)

// MaxPayloadSize 单条消息负载的最大字节数
//
// 线上格式用一个字节表示负载长度。
const MaxPayloadSize = 255

// NameKind 名称类别
type NameKind int

const (
	// NameModule 模块名
	NameModule NameKind = iota
	// NameNode 节点名
	NameNode
	// NameTopic 主题名
	NameTopic
)

// MaxLen 返回该类别名称的最大长度
func (k NameKind) MaxLen() int {
	switch k {
	case NameModule:
		return ModuleNameMaxLen
	case NameNode:
		return NodeNameMaxLen
	default:
		return TopicNameMaxLen
	}
}

// String 返回类别描述
func (k NameKind) String() string {
	switch k {
	case NameModule:
		return "module"
	case NameNode:
		return "node"
	default:
		return "topic"
	}
}

// IsIdentifierChar 判断字符是否可用于标识符
//
// 允许的字符集为 [A-Za-z0-9_]。
func IsIdentifierChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// ValidateName 校验名称
func ValidateName(kind NameKind, name string) error {
	if name == "" {
		return fmt.Errorf("%s: %w", kind, ErrEmptyName)
	}
	if len(name) > kind.MaxLen() {
		return fmt.Errorf("%s %q: %w (max %d)", kind, name, ErrNameTooLong, kind.MaxLen())
	}
	for i := 0; i < len(name); i++ {
		if !IsIdentifierChar(name[i]) {
			return fmt.Errorf("%s %q: %w at %d", kind, name, ErrInvalidNameChar, i)
		}
	}
	return nil
}

// ValidatePayloadSize 校验负载大小
func ValidatePayloadSize(size int) error {
	if size <= 0 || size > MaxPayloadSize {
		return fmt.Errorf("%w: %d (1..%d)", ErrInvalidPayloadSize, size, MaxPayloadSize)
	}
	return nil
}

// PutName 将名称写入定长字段，剩余部分补零
func PutName(dst []byte, name string) {
	n := copy(dst, name)
	clear(dst[n:])
}

// GetName 从定长字段读取名称，遇到第一个零字节截止
func GetName(src []byte) string {
	for i, c := range src {
		if c == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}

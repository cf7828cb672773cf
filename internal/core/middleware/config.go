package middleware

import (
	"fmt"
	"time"

	"github.com/dep2p/go-r2p/pkg/types"
)

// 常驻主题与节点名
const (
	// MgmtTopicName 管理主题名
	MgmtTopicName = "R2P"

	// MgmtNodeName 管理节点名
	MgmtNodeName = "R2P"

	// BootTopicName 引导主题名
	BootTopicName = "R2P_BOOT"

	// BootNodeName 引导节点名
	BootNodeName = "R2P_BOOT"
)

// Config 中间件配置
type Config struct {
	// ModuleName 模块名，最长 7 个字符
	ModuleName string

	// BridgeMode 桥接模式：收到的消息同时转发到其他传输
	BridgeMode bool

	// MgmtQueueLength 管理订阅者队列长度
	MgmtQueueLength int

	// BootQueueLength 引导订阅者队列长度
	BootQueueLength int

	// SpinTimeout 管理协程单次等待时长
	SpinTimeout time.Duration

	// AnnounceInterval 主题巡检间隔
	AnnounceInterval time.Duration

	// AnnounceBurst 巡检令牌桶容量
	AnnounceBurst int

	// StopPollInterval 停止时轮询节点的间隔
	StopPollInterval time.Duration

	// StopTimeout 收到远程停止命令时等待节点确认的最长时间
	StopTimeout time.Duration

	// TopicCacheSize 主题查找缓存容量
	TopicCacheSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		ModuleName:       "R2P",
		MgmtQueueLength:  8,
		BootQueueLength:  4,
		SpinTimeout:      100 * time.Millisecond,
		AnnounceInterval: 500 * time.Millisecond,
		AnnounceBurst:    1,
		StopPollInterval: 50 * time.Millisecond,
		StopTimeout:      5 * time.Second,
		TopicCacheSize:   32,
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	if err := types.ValidateName(types.NameModule, c.ModuleName); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.MgmtQueueLength <= 0 || c.BootQueueLength <= 0 {
		return fmt.Errorf("%w: queue lengths must be positive", ErrInvalidConfig)
	}
	if c.SpinTimeout <= 0 || c.AnnounceInterval <= 0 || c.StopPollInterval <= 0 {
		return fmt.Errorf("%w: intervals must be positive", ErrInvalidConfig)
	}
	if c.AnnounceBurst <= 0 {
		return fmt.Errorf("%w: announce burst must be positive", ErrInvalidConfig)
	}
	if c.TopicCacheSize <= 0 {
		return fmt.Errorf("%w: topic cache size must be positive", ErrInvalidConfig)
	}
	return nil
}

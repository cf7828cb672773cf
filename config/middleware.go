package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dep2p/go-r2p/pkg/types"
)

// ModuleConfig 模块配置
type ModuleConfig struct {
	// Name 模块名，最长 7 个字符，为空时自动生成
	Name string `json:"name"`

	// BridgeMode 桥接模式：收到的消息同时转发到其他传输
	BridgeMode bool `json:"bridge_mode"`
}

// DefaultModuleConfig 返回默认模块配置
func DefaultModuleConfig() ModuleConfig {
	return ModuleConfig{}
}

// Validate 验证模块配置
func (c ModuleConfig) Validate() error {
	if c.Name == "" {
		return nil
	}
	if err := types.ValidateName(types.NameModule, c.Name); err != nil {
		return fmt.Errorf("module.name: %w", err)
	}
	return nil
}

// GenerateModuleName 生成形如 M1A2B3C 的模块名
func GenerateModuleName() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "M" + id[:types.ModuleNameMaxLen-1]
}

// MiddlewareConfig 控制面配置
type MiddlewareConfig struct {
	// MgmtQueueLength 管理订阅者队列长度
	MgmtQueueLength int `json:"mgmt_queue_length"`

	// BootQueueLength 引导订阅者队列长度
	BootQueueLength int `json:"boot_queue_length"`

	// SpinTimeout 管理协程单次等待时长
	SpinTimeout Duration `json:"spin_timeout"`

	// AnnounceInterval 主题巡检间隔
	AnnounceInterval Duration `json:"announce_interval"`

	// AnnounceBurst 巡检令牌桶容量
	AnnounceBurst int `json:"announce_burst"`

	// StopPollInterval 停止时轮询节点的间隔
	StopPollInterval Duration `json:"stop_poll_interval"`

	// StopTimeout 远程停止时等待节点的最长时间
	StopTimeout Duration `json:"stop_timeout"`

	// TopicCacheSize 主题查找缓存容量
	TopicCacheSize int `json:"topic_cache_size"`
}

// DefaultMiddlewareConfig 返回默认控制面配置
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		MgmtQueueLength:  8,
		BootQueueLength:  4,
		SpinTimeout:      Duration(100 * time.Millisecond),
		AnnounceInterval: Duration(500 * time.Millisecond),
		AnnounceBurst:    1,
		StopPollInterval: Duration(50 * time.Millisecond),
		StopTimeout:      Duration(5 * time.Second),
		TopicCacheSize:   32,
	}
}

// Validate 验证控制面配置
func (c MiddlewareConfig) Validate() error {
	if c.MgmtQueueLength <= 0 || c.BootQueueLength <= 0 {
		return errors.New("middleware: queue lengths must be positive")
	}
	if c.MgmtQueueLength > 255 || c.BootQueueLength > 255 {
		return errors.New("middleware: queue lengths must not exceed 255")
	}
	if c.SpinTimeout <= 0 || c.AnnounceInterval <= 0 || c.StopPollInterval <= 0 || c.StopTimeout <= 0 {
		return errors.New("middleware: intervals must be positive")
	}
	if c.AnnounceBurst <= 0 {
		return errors.New("middleware: announce burst must be positive")
	}
	if c.TopicCacheSize <= 0 {
		return errors.New("middleware: topic cache size must be positive")
	}
	return nil
}

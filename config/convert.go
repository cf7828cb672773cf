package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保持默认值。
//
// 示例 JSON:
//
//	{
//	  "module": {"name": "BASE", "bridge_mode": true},
//	  "tcp": {"enable": true, "listen": ":7450"},
//	  "log": {"level": "debug"}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return FromJSON(data)
}

// ToJSON 序列化配置
func ToJSON(cfg *Config) ([]byte, error) {
	return json.MarshalIndent(cfg, "", "  ")
}

// CloneConfig 深拷贝配置
func CloneConfig(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}
	clone := *cfg
	return &clone
}

// ApplyPreset 应用预设配置
//
// 支持的预设：
//   - "default": 默认参数
//   - "bridge": 桥接节点，开启桥接模式并加大管理队列
//   - "embedded": 资源受限节点，缩小队列与缓存并关闭指标
func ApplyPreset(cfg *Config, presetName string) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch presetName {
	case "", "default":
		return nil
	case "bridge":
		cfg.Module.BridgeMode = true
		cfg.Middleware.MgmtQueueLength = 16
		cfg.Middleware.TopicCacheSize = 64
		return nil
	case "embedded":
		cfg.Middleware.MgmtQueueLength = 4
		cfg.Middleware.BootQueueLength = 2
		cfg.Middleware.TopicCacheSize = 8
		cfg.Middleware.AnnounceInterval = Duration(time.Second)
		cfg.Metrics.Enable = false
		return nil
	default:
		return fmt.Errorf("unknown preset: %s", presetName)
	}
}

package config

import (
	"errors"
	"fmt"
)

// ValidateAll 补全并验证整个配置
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	c.Normalize()
	return c.Validate()
}

// MustValidate 验证配置，失败时 panic
//
// 仅用于测试和初始化代码。
func MustValidate(c *Config) {
	if err := ValidateAll(c); err != nil {
		panic(fmt.Sprintf("invalid config: %v", err))
	}
}

// ValidateCompatibility 检查跨模块的配置组合
func ValidateCompatibility(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Module.BridgeMode && countTransports(c) < 2 {
		return errors.New("bridge mode needs at least two transports")
	}
	if c.Metrics.ListenAddr != "" && !c.Metrics.Enable {
		return errors.New("metrics listen address set but metrics disabled")
	}
	return nil
}

func countTransports(c *Config) int {
	n := 0
	for _, on := range []bool{c.Debug.Enable, c.TCP.Enable, c.RTCAN.Enable} {
		if on {
			n++
		}
	}
	return n
}

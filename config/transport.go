package config

import (
	"errors"
	"time"
)

// DebugConfig 调试传输配置
//
// 十六进制文本帧，经串口或 TCP 控制台连接到对端。
type DebugConfig struct {
	// Enable 是否启用
	Enable bool `json:"enable"`

	// Network 拨号网络，如 "tcp"、"unix"
	Network string `json:"network"`

	// Address 拨号地址
	Address string `json:"address"`
}

// DefaultDebugConfig 返回默认调试传输配置
func DefaultDebugConfig() DebugConfig {
	return DebugConfig{Network: "tcp"}
}

// Validate 验证调试传输配置
func (c DebugConfig) Validate() error {
	if c.Enable && (c.Network == "" || c.Address == "") {
		return errors.New("debug: network and address are required")
	}
	return nil
}

// TCPConfig TCP 传输配置
type TCPConfig struct {
	// Enable 是否启用
	Enable bool `json:"enable"`

	// Listen 监听地址，与 Dial 二选一
	Listen string `json:"listen,omitempty"`

	// Dial 拨号地址
	Dial string `json:"dial,omitempty"`

	// DialTimeout 拨号超时
	DialTimeout Duration `json:"dial_timeout"`

	// KeepAlive yamux 心跳间隔，0 表示关闭
	KeepAlive Duration `json:"keep_alive"`
}

// DefaultTCPConfig 返回默认 TCP 传输配置
func DefaultTCPConfig() TCPConfig {
	return TCPConfig{
		DialTimeout: Duration(10 * time.Second),
		KeepAlive:   Duration(30 * time.Second),
	}
}

// Validate 验证 TCP 传输配置
func (c TCPConfig) Validate() error {
	if !c.Enable {
		return nil
	}
	if (c.Listen == "") == (c.Dial == "") {
		return errors.New("tcp: exactly one of listen and dial is required")
	}
	if c.DialTimeout < 0 || c.KeepAlive < 0 {
		return errors.New("tcp: timeouts must not be negative")
	}
	return nil
}

// RTCANConfig RTCAN 传输配置
type RTCANConfig struct {
	// Enable 是否启用
	Enable bool `json:"enable"`

	// NodeID 本节点号
	NodeID uint8 `json:"node_id"`

	// TxTimeout 控制帧发送超时
	TxTimeout Duration `json:"tx_timeout"`
}

// DefaultRTCANConfig 返回默认 RTCAN 传输配置
func DefaultRTCANConfig() RTCANConfig {
	return RTCANConfig{TxTimeout: Duration(100 * time.Millisecond)}
}

// Validate 验证 RTCAN 传输配置
func (c RTCANConfig) Validate() error {
	if c.TxTimeout < 0 {
		return errors.New("rtcan: tx timeout must not be negative")
	}
	return nil
}

package main

import (
	"os"
	"strconv"

	"github.com/dep2p/go-r2p/config"
)

// 环境变量前缀与名称
const (
	EnvPrefix      = "R2P_"
	EnvModule      = "MODULE"
	EnvBridge      = "BRIDGE"
	EnvTCPListen   = "TCP_LISTEN"
	EnvTCPDial     = "TCP_DIAL"
	EnvMetricsAddr = "METRICS_ADDR"
	EnvLogLevel    = "LOG_LEVEL"
)

// applyEnvOverrides 应用环境变量覆盖配置
//
// 环境变量优先级高于配置文件，但低于命令行参数。
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv(EnvPrefix + EnvModule); v != "" {
		cfg.Module.Name = v
	}
	if v := os.Getenv(EnvPrefix + EnvBridge); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Module.BridgeMode = b
		}
	}
	if v := os.Getenv(EnvPrefix + EnvTCPListen); v != "" {
		cfg.TCP.Enable, cfg.TCP.Listen, cfg.TCP.Dial = true, v, ""
	}
	if v := os.Getenv(EnvPrefix + EnvTCPDial); v != "" {
		cfg.TCP.Enable, cfg.TCP.Dial, cfg.TCP.Listen = true, v, ""
	}
	if v := os.Getenv(EnvPrefix + EnvMetricsAddr); v != "" {
		cfg.Metrics.Enable, cfg.Metrics.ListenAddr = true, v
	}
	if v := os.Getenv(EnvPrefix + EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
}

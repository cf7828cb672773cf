// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 加载和保存配置
//   - 支持预设配置（default/bridge/embedded）
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Module.Name = "BASE"
//	cfg.TCP.Enable = true
//
//	// 从文件加载
//	cfg, err := config.LoadFile("r2p.json")
//
//	// 应用预设到现有配置
//	config.ApplyPreset(cfg, "bridge")
package config

// Config 是 R2P 的完整配置结构
//
// 配置按照功能模块组织：
//   - Module: 模块名与桥接模式
//   - Middleware: 控制面参数
//   - Debug/TCP/RTCAN: 传输
//   - Metrics/Log: 可观测性
type Config struct {
	// Module 模块配置
	Module ModuleConfig `json:"module"`

	// Middleware 控制面配置
	Middleware MiddlewareConfig `json:"middleware"`

	// Debug 调试传输配置
	Debug DebugConfig `json:"debug"`

	// TCP 传输配置
	TCP TCPConfig `json:"tcp"`

	// RTCAN 传输配置
	RTCAN RTCANConfig `json:"rtcan"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`

	// Log 日志配置
	Log LogConfig `json:"log"`
}

// NewConfig 创建默认配置
//
// 模块名为空，由 Validate 之前的 Normalize 补全。
func NewConfig() *Config {
	return &Config{
		Module:     DefaultModuleConfig(),
		Middleware: DefaultMiddlewareConfig(),
		Debug:      DefaultDebugConfig(),
		TCP:        DefaultTCPConfig(),
		RTCAN:      DefaultRTCANConfig(),
		Metrics:    DefaultMetricsConfig(),
		Log:        DefaultLogConfig(),
	}
}

// Normalize 补全可推导的字段
func (c *Config) Normalize() {
	if c.Module.Name == "" {
		c.Module.Name = GenerateModuleName()
	}
}

// Validate 验证配置的有效性
//
// 检查所有子配置是否有效，如果发现无效配置则返回错误。
func (c *Config) Validate() error {
	if err := c.Module.Validate(); err != nil {
		return err
	}
	if err := c.Middleware.Validate(); err != nil {
		return err
	}
	if err := c.Debug.Validate(); err != nil {
		return err
	}
	if err := c.TCP.Validate(); err != nil {
		return err
	}
	if err := c.RTCAN.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}

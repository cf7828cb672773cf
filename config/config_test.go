package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-r2p/pkg/types"
)

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	assert.Empty(t, cfg.Module.Name)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 8, cfg.Middleware.MgmtQueueLength)
	assert.Equal(t, 500*time.Millisecond, cfg.Middleware.AnnounceInterval.Duration())
	assert.True(t, cfg.Metrics.Enable)

	t.Log("✅ NewConfig 测试通过")
}

// TestConfig_Normalize 测试模块名自动生成
func TestConfig_Normalize(t *testing.T) {
	cfg := NewConfig()
	cfg.Normalize()
	require.Len(t, cfg.Module.Name, types.ModuleNameMaxLen)
	assert.NoError(t, types.ValidateName(types.NameModule, cfg.Module.Name))

	name := cfg.Module.Name
	cfg.Normalize()
	assert.Equal(t, name, cfg.Module.Name)
	assert.NotEqual(t, name, GenerateModuleName())
}

// TestConfig_Validate 测试各子配置验证
func TestConfig_Validate(t *testing.T) {
	cases := map[string]func(c *Config){
		"module name too long": func(c *Config) { c.Module.Name = "TOOLONGNAME" },
		"module name char":     func(c *Config) { c.Module.Name = "a-b" },
		"mgmt queue":           func(c *Config) { c.Middleware.MgmtQueueLength = 0 },
		"boot queue overflow":  func(c *Config) { c.Middleware.BootQueueLength = 256 },
		"spin timeout":         func(c *Config) { c.Middleware.SpinTimeout = 0 },
		"burst":                func(c *Config) { c.Middleware.AnnounceBurst = 0 },
		"cache":                func(c *Config) { c.Middleware.TopicCacheSize = -1 },
		"debug address":        func(c *Config) { c.Debug.Enable = true },
		"tcp neither":          func(c *Config) { c.TCP.Enable = true },
		"tcp both": func(c *Config) {
			c.TCP.Enable, c.TCP.Listen, c.TCP.Dial = true, ":1", "h:1"
		},
		"rtcan timeout":     func(c *Config) { c.RTCAN.TxTimeout = -1 },
		"metrics namespace": func(c *Config) { c.Metrics.Namespace = "" },
		"log level":         func(c *Config) { c.Log.Level = "loud" },
		"log format":        func(c *Config) { c.Log.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := NewConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestFromJSON 测试 JSON 加载保留默认值
func TestFromJSON(t *testing.T) {
	data := []byte(`{
		"module": {"name": "BASE", "bridge_mode": true},
		"middleware": {"announce_interval": "250ms"},
		"tcp": {"enable": true, "listen": "127.0.0.1:7450"},
		"rtcan": {"enable": true, "node_id": 12},
		"log": {"level": "debug", "format": "json"}
	}`)
	cfg, err := FromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, "BASE", cfg.Module.Name)
	assert.True(t, cfg.Module.BridgeMode)
	assert.Equal(t, 250*time.Millisecond, cfg.Middleware.AnnounceInterval.Duration())
	assert.Equal(t, 8, cfg.Middleware.MgmtQueueLength)
	assert.Equal(t, uint8(12), cfg.RTCAN.NodeID)
	assert.Equal(t, 10*time.Second, cfg.TCP.DialTimeout.Duration())
	assert.NoError(t, cfg.Validate())
	assert.NoError(t, ValidateCompatibility(cfg))

	_, err = FromJSON([]byte(`{"middleware": {"spin_timeout": "soon"}}`))
	assert.Error(t, err)
}

// TestLoadFile 测试文件加载与序列化往返
func TestLoadFile(t *testing.T) {
	cfg := NewConfig()
	cfg.Module.Name = "IMU"
	data, err := ToJSON(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "r2p.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// TestDuration_JSON 测试 Duration 两种输入格式
func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, d.Duration())

	require.NoError(t, json.Unmarshal([]byte(`1000`), &d))
	assert.Equal(t, time.Microsecond, d.Duration())

	assert.Error(t, json.Unmarshal([]byte(`"x"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))

	out, err := json.Marshal(Duration(2 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"2s"`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`"Infinite"`), &d))
	assert.True(t, d.IsInfinite())
	out, err = json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"infinite"`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`"immediate"`), &d))
	assert.Equal(t, time.Duration(0), d.Duration())
}

// TestApplyPreset 测试预设
func TestApplyPreset(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, ApplyPreset(cfg, "embedded"))
	assert.False(t, cfg.Metrics.Enable)
	assert.Equal(t, 4, cfg.Middleware.MgmtQueueLength)
	assert.NoError(t, cfg.Validate())

	cfg = NewConfig()
	require.NoError(t, ApplyPreset(cfg, "bridge"))
	assert.True(t, cfg.Module.BridgeMode)
	assert.Error(t, ValidateCompatibility(cfg))

	assert.Error(t, ApplyPreset(cfg, "unknown"))
	assert.Error(t, ApplyPreset(nil, "default"))
}

// TestValidateAll 测试补全后验证
func TestValidateAll(t *testing.T) {
	assert.Error(t, ValidateAll(nil))

	cfg := NewConfig()
	require.NoError(t, ValidateAll(cfg))
	assert.NotEmpty(t, cfg.Module.Name)

	bad := NewConfig()
	bad.Log.Level = "loud"
	assert.Panics(t, func() { MustValidate(bad) })

	en := NewConfig()
	en.Metrics.Enable = false
	en.Metrics.ListenAddr = ":9100"
	assert.Error(t, ValidateCompatibility(en))
}

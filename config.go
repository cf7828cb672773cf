package r2p

import (
	"github.com/dep2p/go-r2p/config"
	"github.com/dep2p/go-r2p/internal/core/metrics"
	"github.com/dep2p/go-r2p/internal/core/middleware"
	"github.com/dep2p/go-r2p/internal/core/transport/debug"
	"github.com/dep2p/go-r2p/internal/core/transport/rtcan"
	"github.com/dep2p/go-r2p/internal/core/transport/tcp"
)

// ════════════════════════════════════════════════════════════════════════════
//                              统一配置到组件配置
// ════════════════════════════════════════════════════════════════════════════

func middlewareConfig(c *config.Config) middleware.Config {
	m := c.Middleware
	return middleware.Config{
		ModuleName:       c.Module.Name,
		BridgeMode:       c.Module.BridgeMode,
		MgmtQueueLength:  m.MgmtQueueLength,
		BootQueueLength:  m.BootQueueLength,
		SpinTimeout:      m.SpinTimeout.Duration(),
		AnnounceInterval: m.AnnounceInterval.Duration(),
		AnnounceBurst:    m.AnnounceBurst,
		StopPollInterval: m.StopPollInterval.Duration(),
		StopTimeout:      m.StopTimeout.Duration(),
		TopicCacheSize:   m.TopicCacheSize,
	}
}

func debugConfig(c *config.Config) debug.Config {
	return debug.Config{Name: "debug", Network: c.Debug.Network, Address: c.Debug.Address}
}

func tcpConfig(c *config.Config) tcp.Config {
	return tcp.Config{
		Name:        "tcp",
		Listen:      c.TCP.Listen,
		Dial:        c.TCP.Dial,
		DialTimeout: c.TCP.DialTimeout.Duration(),
		KeepAlive:   c.TCP.KeepAlive.Duration(),
	}
}

func rtcanConfig(c *config.Config) rtcan.Config {
	return rtcan.Config{Name: "rtcan", NodeID: c.RTCAN.NodeID, TxTimeout: c.RTCAN.TxTimeout.Duration()}
}

func metricsConfig(c *config.Config) metrics.Config {
	return metrics.Config{Enabled: c.Metrics.Enable, Namespace: c.Metrics.Namespace}
}

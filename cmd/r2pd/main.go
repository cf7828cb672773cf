// Package main 提供 r2pd 命令行入口
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-r2p"
	"github.com/dep2p/go-r2p/config"
	"github.com/dep2p/go-r2p/pkg/lib/log"
)

var logger = log.Logger("r2p/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
//   命令行参数：运行时覆盖 / 快速测试
//   JSON 配置文件：持久化配置
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	configFile  = flag.String("config", "", "配置文件路径")
	preset      = flag.String("preset", "", "预设配置 (default/bridge/embedded)")
	moduleName  = flag.String("module", "", "模块名（空 = 自动生成）")
	bridge      = flag.Bool("bridge", false, "启用桥接模式")
	listenAddr  = flag.String("listen", "", "TCP 监听地址")
	dialAddr    = flag.String("dial", "", "TCP 拨号地址")
	debugAddr   = flag.String("debug", "", "调试传输地址（TCP）")
	metricsAddr = flag.String("metrics-addr", "", "自省与 Prometheus 指标服务地址")
	heartbeat   = flag.Duration("heartbeat", 0, "心跳主题发布周期（0 = 不发布）")

	logLevel  = flag.String("log-level", "", "日志级别 (debug/info/warn/error)")
	logFormat = flag.String("log-format", "", "日志格式 (text/json)")

	showVersion = flag.Bool("version", false, "显示版本信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Println(r2p.VersionInfo())
		return nil
	}

	cfg, err := buildConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}
	if err := log.Configure(os.Stderr, cfg.Log.Level, log.Format(cfg.Log.Format)); err != nil {
		return fmt.Errorf("日志配置错误: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("启动 r2pd", "version", r2p.Version, "commit", r2p.GitCommit, "buildDate", r2p.BuildDate)
	rt, err := r2p.Start(ctx, r2p.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = rt.Close() }()

	printState(rt)

	g, ctx := errgroup.WithContext(ctx)
	if *heartbeat > 0 {
		g.Go(func() error { return runHeartbeat(ctx, rt, *heartbeat) })
	}
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	fmt.Println("r2pd 已启动，按 Ctrl+C 退出")
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Println("\n正在关闭...")
	return nil
}

// buildConfig 构建配置
//
// 优先级（从高到低）：命令行参数、环境变量、配置文件、默认值。
func buildConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if *configFile != "" {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
		cfg = loaded
	}
	if *preset != "" {
		if err := config.ApplyPreset(cfg, *preset); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if *moduleName != "" {
		cfg.Module.Name = *moduleName
	}
	if isFlagSet("bridge") {
		cfg.Module.BridgeMode = *bridge
	}
	if *listenAddr != "" {
		cfg.TCP.Enable, cfg.TCP.Listen = true, *listenAddr
	}
	if *dialAddr != "" {
		cfg.TCP.Enable, cfg.TCP.Dial = true, *dialAddr
	}
	if *debugAddr != "" {
		cfg.Debug = config.DebugConfig{Enable: true, Network: "tcp", Address: *debugAddr}
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enable, cfg.Metrics.ListenAddr = true, *metricsAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}

	if err := config.ValidateAll(cfg); err != nil {
		return nil, err
	}
	return cfg, config.ValidateCompatibility(cfg)
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func printState(rt *r2p.Runtime) {
	info, eps := rt.NetworkState()
	fmt.Printf("📦 %s\n", r2p.VersionInfo())
	fmt.Printf("模块: %s\n", info.Name)
	for _, tr := range rt.Transports() {
		fmt.Printf("传输: %s\n", tr.Name())
	}
	if addr := rt.IntrospectAddr(); addr != "" {
		fmt.Printf("自省: http://%s/debug/introspect\n", addr)
	}
	for _, ep := range eps {
		fmt.Printf("端点: %s %s\n", ep.Kind, ep.Path)
	}
}

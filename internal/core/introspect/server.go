// Package introspect 提供本地自省 HTTP 服务
//
// 该服务运行在本地端口，提供 JSON 格式的诊断信息与 Prometheus 指标。
// 默认绑定到 127.0.0.1，不暴露到网络。
//
// 端点：
//   - GET /debug/introspect        - 完整诊断报告 (JSON)
//   - GET /debug/introspect/topics - 主题表
//   - GET /debug/introspect/stats  - 主题收发统计
//   - GET /metrics                 - Prometheus 指标
//   - GET /health                  - 健康检查
//   - GET /debug/pprof/*           - Go pprof 端点
package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-r2p/internal/core/metrics"
	"github.com/dep2p/go-r2p/internal/core/middleware"
	"github.com/dep2p/go-r2p/pkg/lib/log"
)

var logger = log.Logger("core/introspect")

// DefaultAddr 默认监听地址
const DefaultAddr = "127.0.0.1:6060"

// Config 服务配置
type Config struct {
	// Addr 监听地址，默认 "127.0.0.1:6060"
	Addr string

	// Middleware 必需的中间件
	Middleware *middleware.Middleware

	// Metrics 可选的主题统计
	Metrics *metrics.Observer

	// Gatherer 可选的指标注册表，为空时不提供 /metrics
	Gatherer prometheus.Gatherer
}

// Server 本地自省 HTTP 服务
type Server struct {
	config  Config
	started time.Time

	server   *http.Server
	listener net.Listener

	running bool
	mu      sync.Mutex
}

// New 创建自省服务
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{config: cfg}
}

// Handler 返回路由，便于测试或挂到已有服务上
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/introspect", s.handleIntrospect)
	mux.HandleFunc("/debug/introspect/topics", s.handleTopics)
	mux.HandleFunc("/debug/introspect/stats", s.handleStats)
	mux.HandleFunc("/health", s.handleHealth)
	if s.config.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// Start 启动服务
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.started = time.Now()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("自省服务异常退出", "error", err)
		}
	}()

	s.running = true
	logger.Info("自省服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 停止服务
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.running = false
	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("关闭自省服务失败", "error", err)
		return err
	}
	logger.Info("自省服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// ============================================================================
//                              响应结构
// ============================================================================

// Report 完整诊断报告
type Report struct {
	Module     string      `json:"module"`
	Bridge     bool        `json:"bridge"`
	Stopped    bool        `json:"stopped"`
	Transports []string    `json:"transports"`
	Nodes      []NodeInfo  `json:"nodes"`
	Endpoints  []string    `json:"endpoints"`
	Topics     []TopicInfo `json:"topics"`
}

// NodeInfo 节点信息
type NodeInfo struct {
	Name        string `json:"name"`
	Publishers  int    `json:"publishers"`
	Subscribers int    `json:"subscribers"`
	Stopped     bool   `json:"stopped"`
}

// TopicInfo 主题信息
type TopicInfo struct {
	Name             string `json:"name"`
	PayloadSize      int    `json:"payload_size"`
	FreeBlocks       int    `json:"free_blocks"`
	MaxQueueLength   int    `json:"max_queue_length"`
	PublishTimeout   string `json:"publish_timeout"`
	LocalPublishers  bool   `json:"local_publishers"`
	RemotePublishers bool   `json:"remote_publishers"`
	LocalSubscribers bool   `json:"local_subscribers"`
	RemoteSubs       bool   `json:"remote_subscribers"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// ============================================================================
//                              HTTP 处理器
// ============================================================================

func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	mw := s.config.Middleware
	if mw == nil {
		http.Error(w, "Middleware not available", http.StatusServiceUnavailable)
		return
	}

	info, eps := mw.NetworkState()
	report := Report{
		Module:  info.Name,
		Bridge:  mw.BridgeMode(),
		Stopped: info.Stopped,
		Topics:  s.collectTopics(),
	}
	for _, tr := range mw.Transports() {
		report.Transports = append(report.Transports, tr.Name())
	}
	for _, n := range mw.Nodes() {
		report.Nodes = append(report.Nodes, NodeInfo{
			Name:        n.Name(),
			Publishers:  len(n.Publishers()),
			Subscribers: len(n.Subscribers()),
			Stopped:     n.Stopped(),
		})
	}
	for _, ep := range eps {
		report.Endpoints = append(report.Endpoints, ep.Kind.String()+" "+ep.Path.String())
	}
	s.writeJSON(w, report)
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if s.config.Middleware == nil {
		http.Error(w, "Middleware not available", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, s.collectTopics())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if s.config.Metrics == nil {
		http.Error(w, "Metrics not enabled", http.StatusNotFound)
		return
	}
	s.writeJSON(w, s.config.Metrics.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	health := HealthResponse{Status: "ok", Timestamp: time.Now()}
	if !started.IsZero() {
		health.Uptime = time.Since(started).Round(time.Second).String()
	}
	switch mw := s.config.Middleware; {
	case mw == nil:
		health.Status = "degraded"
	case mw.IsStopped():
		health.Status = "stopped"
	}
	s.writeJSON(w, health)
}

func (s *Server) collectTopics() []TopicInfo {
	topics := s.config.Middleware.Topics()
	out := make([]TopicInfo, 0, len(topics))
	for _, t := range topics {
		out = append(out, TopicInfo{
			Name:             t.Name(),
			PayloadSize:      t.PayloadSize(),
			FreeBlocks:       t.FreeCount(),
			MaxQueueLength:   t.MaxQueueLength(),
			PublishTimeout:   t.PublishTimeout().String(),
			LocalPublishers:  t.HasLocalPublishers(),
			RemotePublishers: t.HasRemotePublishers(),
			LocalSubscribers: t.HasLocalSubscribers(),
			RemoteSubs:       t.HasRemoteSubscribers(),
		})
	}
	return out
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Debug("写入响应失败", "error", err)
	}
}

package tcp

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/hashicorp/yamux"
)

// DefaultYamuxConfig 返回默认的 yamux 配置
func DefaultYamuxConfig(keepAlive time.Duration) *yamux.Config {
	cfg := yamux.DefaultConfig()
	cfg.AcceptBacklog = 4
	cfg.EnableKeepAlive = keepAlive > 0
	if keepAlive > 0 {
		cfg.KeepAliveInterval = keepAlive
	}
	cfg.ConnectionWriteTimeout = 10 * time.Second
	cfg.StreamOpenTimeout = 10 * time.Second
	cfg.LogOutput = io.Discard
	return cfg
}

// link 一个 yamux 会话上的控制流与数据流
type link struct {
	session *yamux.Session
	ctrl    net.Conn
	data    net.Conn
}

// openLink 作为 client 建立会话并依次打开控制流、数据流
func openLink(ctx context.Context, conn net.Conn, cfg *yamux.Config) (*link, error) {
	session, err := yamux.Client(conn, cfg)
	if err != nil {
		return nil, fmt.Errorf("创建 yamux session 失败: %w", err)
	}
	ctrl, err := openStream(ctx, session)
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("open control stream: %w", err)
	}
	data, err := openStream(ctx, session)
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("open data stream: %w", err)
	}
	return &link{session: session, ctrl: ctrl, data: data}, nil
}

// acceptLink 作为 server 建立会话并依次接受控制流、数据流
func acceptLink(conn net.Conn, cfg *yamux.Config) (*link, error) {
	session, err := yamux.Server(conn, cfg)
	if err != nil {
		return nil, fmt.Errorf("创建 yamux session 失败: %w", err)
	}
	ctrl, err := session.AcceptStream()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("accept control stream: %w", err)
	}
	data, err := session.AcceptStream()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("accept data stream: %w", err)
	}
	return &link{session: session, ctrl: ctrl, data: data}, nil
}

// openStream 带 ctx 打开流
//
// yamux 的 OpenStream 不支持 context，在单独的 goroutine 中处理，
// ctx 先结束时关闭孤立的流。
func openStream(ctx context.Context, session *yamux.Session) (net.Conn, error) {
	type result struct {
		stream *yamux.Stream
		err    error
	}
	resultCh := make(chan result, 1)

	go func() {
		s, err := session.OpenStream()
		resultCh <- result{stream: s, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-resultCh; r.stream != nil {
				_ = r.stream.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-resultCh:
		if r.err != nil {
			return nil, r.err
		}
		return r.stream, nil
	}
}

// Close 关闭会话及其上的流
func (l *link) Close() error {
	return l.session.Close()
}

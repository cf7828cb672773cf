package middleware

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-r2p/internal/core/message"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
)

// ============================================================================
//                              测试辅助
// ============================================================================

// fakeTransport 记录中间件调用的传输
type fakeTransport struct {
	name string
	mw   *Middleware

	mu         sync.Mutex
	adverts    []string
	subReqs    []string
	subResps   []string
	stops      int
	reboots    int
	bootloads  int
	wakes      int
	publishers map[string]*pubsub.RemotePublisher
	subs       map[string]*pubsub.RemoteSubscriber
}

var _ Transport = (*fakeTransport)(nil)

func newFakeTransport(mw *Middleware, name string) *fakeTransport {
	return &fakeTransport{
		name:       name,
		mw:         mw,
		publishers: make(map[string]*pubsub.RemotePublisher),
		subs:       make(map[string]*pubsub.RemoteSubscriber),
	}
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Wake(*pubsub.RemoteSubscriber) {
	f.mu.Lock()
	f.wakes++
	f.mu.Unlock()
}

func (f *fakeTransport) NotifyAdvertisement(t *pubsub.Topic) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adverts = append(f.adverts, t.Name())
	return nil
}

func (f *fakeTransport) NotifySubscription(t *pubsub.Topic) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subReqs = append(f.subReqs, t.Name())
	return nil
}

func (f *fakeTransport) NotifyStop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeTransport) NotifyReboot() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reboots++
	return nil
}

func (f *fakeTransport) NotifyBootload() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bootloads++
	return nil
}

func (f *fakeTransport) TouchPublisher(t *pubsub.Topic, raw []byte) (*pubsub.RemotePublisher, error) {
	f.mu.Lock()
	pub, ok := f.publishers[t.Name()]
	if !ok {
		pub = pubsub.NewRemotePublisher(f, raw)
		f.publishers[t.Name()] = pub
	}
	f.mu.Unlock()
	if ok {
		return pub, nil
	}
	return pub, f.mw.AdvertiseRemote(pub, t.Name(), t.PayloadSize(), 0)
}

func (f *fakeTransport) TouchSubscriber(t *pubsub.Topic, qlen int, raw []byte) (*pubsub.RemoteSubscriber, error) {
	f.mu.Lock()
	sub, ok := f.subs[t.Name()]
	if !ok {
		sub = pubsub.NewRemoteSubscriber(f, qlen, raw)
		f.subs[t.Name()] = sub
	}
	f.mu.Unlock()
	if ok {
		return sub, nil
	}
	return sub, f.mw.SubscribeRemote(sub, t.Name(), t.PayloadSize())
}

func (f *fakeTransport) SendSubscriptionResponse(t *pubsub.Topic) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subResps = append(f.subResps, t.Name())
	return nil
}

func (f *fakeTransport) snapshot() (adverts, subReqs, subResps []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.adverts...),
		append([]string(nil), f.subReqs...),
		append([]string(nil), f.subResps...)
}

func (f *fakeTransport) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ModuleName = "TEST"
	cfg.SpinTimeout = 10 * time.Millisecond
	cfg.StopPollInterval = 5 * time.Millisecond
	return cfg
}

// newTestMiddleware 创建已初始化的中间件，测试结束时关闭
func newTestMiddleware(t *testing.T, cfg Config, opts ...Option) *Middleware {
	t.Helper()
	mw, err := New(cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, mw.Initialize(context.Background()))
	t.Cleanup(func() { _ = mw.Close() })
	return mw
}

// mgmtFrom 构造来自 src 的管理消息
func mgmtFrom(t *testing.T, mw *Middleware, src message.Source, m MgmtMsg) *message.Message {
	t.Helper()
	msg, ok := mw.MgmtTopic().Alloc()
	require.True(t, ok)
	require.NoError(t, m.MarshalTo(msg.Payload()))
	msg.SetSource(src)
	t.Cleanup(func() { mw.MgmtTopic().Free(msg) })
	return msg
}

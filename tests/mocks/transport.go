package mocks

import (
	"sync"

	"github.com/dep2p/go-r2p/internal/core/middleware"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
)

var _ middleware.Transport = (*MockTransport)(nil)

// MockTransport 模拟 middleware.Transport
//
// Touch* 默认按主题名缓存远程端点，满足幂等要求。
type MockTransport struct {
	NameValue string

	// 可覆盖的方法
	NotifyAdvertisementFunc      func(t *pubsub.Topic) error
	NotifySubscriptionFunc       func(t *pubsub.Topic) error
	NotifyStopFunc               func() error
	SendSubscriptionResponseFunc func(t *pubsub.Topic) error
	WakeFunc                     func(sub *pubsub.RemoteSubscriber)

	mu sync.Mutex

	// 调用记录
	advertised []string
	subReqs    []string
	subResps   []string
	stops      int
	reboots    int
	bootloads  int
	wakes      int

	pubs map[string]*pubsub.RemotePublisher
	subs map[string]*pubsub.RemoteSubscriber
}

// NewMockTransport 创建 MockTransport
func NewMockTransport(name string) *MockTransport {
	return &MockTransport{
		NameValue: name,
		pubs:      make(map[string]*pubsub.RemotePublisher),
		subs:      make(map[string]*pubsub.RemoteSubscriber),
	}
}

// Name 返回传输名
func (m *MockTransport) Name() string { return m.NameValue }

// Wake 远程订阅者就绪
func (m *MockTransport) Wake(sub *pubsub.RemoteSubscriber) {
	m.mu.Lock()
	m.wakes++
	m.mu.Unlock()
	if m.WakeFunc != nil {
		m.WakeFunc(sub)
	}
}

// NotifyAdvertisement 记录通告
func (m *MockTransport) NotifyAdvertisement(t *pubsub.Topic) error {
	m.mu.Lock()
	m.advertised = append(m.advertised, t.Name())
	m.mu.Unlock()
	if m.NotifyAdvertisementFunc != nil {
		return m.NotifyAdvertisementFunc(t)
	}
	return nil
}

// NotifySubscription 记录订阅请求
func (m *MockTransport) NotifySubscription(t *pubsub.Topic) error {
	m.mu.Lock()
	m.subReqs = append(m.subReqs, t.Name())
	m.mu.Unlock()
	if m.NotifySubscriptionFunc != nil {
		return m.NotifySubscriptionFunc(t)
	}
	return nil
}

// NotifyStop 记录停止通知
func (m *MockTransport) NotifyStop() error {
	m.mu.Lock()
	m.stops++
	m.mu.Unlock()
	if m.NotifyStopFunc != nil {
		return m.NotifyStopFunc()
	}
	return nil
}

// NotifyReboot 记录重启通知
func (m *MockTransport) NotifyReboot() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reboots++
	return nil
}

// NotifyBootload 记录引导通知
func (m *MockTransport) NotifyBootload() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bootloads++
	return nil
}

// TouchPublisher 查找或创建远程发布者
func (m *MockTransport) TouchPublisher(t *pubsub.Topic, rawParams []byte) (*pubsub.RemotePublisher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pub, ok := m.pubs[t.Name()]; ok {
		return pub, nil
	}
	pub := pubsub.NewRemotePublisher(m, rawParams)
	t.Advertise(pub, 0)
	m.pubs[t.Name()] = pub
	return pub, nil
}

// TouchSubscriber 查找或创建远程订阅者
func (m *MockTransport) TouchSubscriber(t *pubsub.Topic, queueLength int, rawParams []byte) (*pubsub.RemoteSubscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subs[t.Name()]; ok {
		return sub, nil
	}
	sub := pubsub.NewRemoteSubscriber(m, queueLength, rawParams)
	t.Subscribe(sub, queueLength)
	t.Grow(queueLength)
	m.subs[t.Name()] = sub
	return sub, nil
}

// SendSubscriptionResponse 记录订阅响应
func (m *MockTransport) SendSubscriptionResponse(t *pubsub.Topic) error {
	m.mu.Lock()
	m.subResps = append(m.subResps, t.Name())
	m.mu.Unlock()
	if m.SendSubscriptionResponseFunc != nil {
		return m.SendSubscriptionResponseFunc(t)
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              调用记录查询
// ════════════════════════════════════════════════════════════════════════════

// Advertised 返回通告过的主题
func (m *MockTransport) Advertised() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.advertised...)
}

// SubscriptionRequests 返回请求过订阅的主题
func (m *MockTransport) SubscriptionRequests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.subReqs...)
}

// SubscriptionResponses 返回回复过订阅的主题
func (m *MockTransport) SubscriptionResponses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.subResps...)
}

// Stops 返回停止通知次数
func (m *MockTransport) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// Reboots 返回重启通知次数
func (m *MockTransport) Reboots() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reboots
}

// Wakes 返回唤醒次数
func (m *MockTransport) Wakes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wakes
}

// Subscriber 返回主题的远程订阅者
func (m *MockTransport) Subscriber(topic string) *pubsub.RemoteSubscriber {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subs[topic]
}

package metrics

import (
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-r2p/internal/core/pubsub"
)

const (
	sideLocal  = "local"
	sideRemote = "remote"
)

func side(remote bool) string {
	if remote {
		return sideRemote
	}
	return sideLocal
}

// TopicStats 单个主题的统计快照
type TopicStats struct {
	Topic        string  `json:"topic"`
	Delivered    int64   `json:"delivered"`
	Dropped      int64   `json:"dropped"`
	AllocFails   int64   `json:"allocFails"`
	DeliveryRate float64 `json:"deliveryRate"`
}

type topicCounters struct {
	delivered  prometheus.Counter
	deliveredR prometheus.Counter
	dropped    prometheus.Counter
	droppedR   prometheus.Counter
	allocFail  prometheus.Counter

	mu         sync.Mutex
	nDelivered int64
	nDropped   int64
	nAllocFail int64
	rate       *RateMeter
}

// Observer 基于 Prometheus 的主题事件观察者
type Observer struct {
	clk clock.Clock

	delivered  *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	allocFails *prometheus.CounterVec

	mu     sync.RWMutex
	topics map[string]*topicCounters
}

var (
	_ pubsub.Observer      = (*Observer)(nil)
	_ prometheus.Collector = (*Observer)(nil)
)

// NewObserver 创建观察者
func NewObserver(namespace string, clk clock.Clock) *Observer {
	if clk == nil {
		clk = clock.New()
	}
	return &Observer{
		clk: clk,
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topic_delivered_total",
			Help:      "Messages queued to subscribers.",
		}, []string{"topic", "side"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topic_dropped_total",
			Help:      "Messages dropped because a subscriber queue was full.",
		}, []string{"topic", "side"}),
		allocFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topic_alloc_failures_total",
			Help:      "Allocations that found the topic pool empty.",
		}, []string{"topic"}),
		topics: make(map[string]*topicCounters),
	}
}

// counters 返回主题的计数器，首次访问时创建
func (o *Observer) counters(topic string) *topicCounters {
	o.mu.RLock()
	c := o.topics[topic]
	o.mu.RUnlock()
	if c != nil {
		return c
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if c = o.topics[topic]; c != nil {
		return c
	}
	c = &topicCounters{
		delivered:  o.delivered.WithLabelValues(topic, sideLocal),
		deliveredR: o.delivered.WithLabelValues(topic, sideRemote),
		dropped:    o.dropped.WithLabelValues(topic, sideLocal),
		droppedR:   o.dropped.WithLabelValues(topic, sideRemote),
		allocFail:  o.allocFails.WithLabelValues(topic),
		rate:       NewRateMeter(o.clk),
	}
	o.topics[topic] = c
	return c
}

// OnDeliver 实现 pubsub.Observer
func (o *Observer) OnDeliver(topic string, remote bool) {
	c := o.counters(topic)
	if remote {
		c.deliveredR.Inc()
	} else {
		c.delivered.Inc()
	}
	c.mu.Lock()
	c.nDelivered++
	c.mu.Unlock()
	c.rate.Add(1)
}

// OnDrop 实现 pubsub.Observer
func (o *Observer) OnDrop(topic string, remote bool) {
	c := o.counters(topic)
	if remote {
		c.droppedR.Inc()
	} else {
		c.dropped.Inc()
	}
	c.mu.Lock()
	c.nDropped++
	c.mu.Unlock()
}

// OnAllocFail 实现 pubsub.Observer
func (o *Observer) OnAllocFail(topic string) {
	c := o.counters(topic)
	c.allocFail.Inc()
	c.mu.Lock()
	c.nAllocFail++
	c.mu.Unlock()
}

// Snapshot 返回按主题名排序的统计快照
func (o *Observer) Snapshot() []TopicStats {
	o.mu.RLock()
	out := make([]TopicStats, 0, len(o.topics))
	for name, c := range o.topics {
		c.mu.Lock()
		s := TopicStats{
			Topic:      name,
			Delivered:  c.nDelivered,
			Dropped:    c.nDropped,
			AllocFails: c.nAllocFail,
		}
		c.mu.Unlock()
		s.DeliveryRate = c.rate.Rate()
		out = append(out, s)
	}
	o.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}

// Describe 实现 prometheus.Collector
func (o *Observer) Describe(ch chan<- *prometheus.Desc) {
	o.delivered.Describe(ch)
	o.dropped.Describe(ch)
	o.allocFails.Describe(ch)
}

// Collect 实现 prometheus.Collector
func (o *Observer) Collect(ch chan<- prometheus.Metric) {
	o.delivered.Collect(ch)
	o.dropped.Collect(ch)
	o.allocFails.Collect(ch)
}

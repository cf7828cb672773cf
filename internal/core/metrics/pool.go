package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-r2p/internal/core/pubsub"
)

// TopicSource 提供当前主题列表
type TopicSource interface {
	Topics() []*pubsub.Topic
}

// PoolCollector 采集各主题内存池的空闲块数
type PoolCollector struct {
	src  TopicSource
	desc *prometheus.Desc
}

var _ prometheus.Collector = (*PoolCollector)(nil)

// NewPoolCollector 创建采集器
func NewPoolCollector(namespace string, src TopicSource) *PoolCollector {
	return &PoolCollector{
		src: src,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "topic", "pool_free"),
			"Free message blocks in the topic pool.",
			[]string{"topic"}, nil,
		),
	}
}

// Describe 实现 prometheus.Collector
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect 实现 prometheus.Collector
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	for _, t := range c.src.Topics() {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(t.FreeCount()), t.Name())
	}
}

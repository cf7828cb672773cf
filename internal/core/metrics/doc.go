// Package metrics 提供主题级监控指标
//
// Observer 实现 pubsub.Observer，把投递、丢弃与分配失败计入 Prometheus 计数器，
// 同时为每个主题维护最近 60 秒的投递速率。PoolCollector 在采集时读取各主题
// 内存池的空闲块数。
//
// # 指标
//
//	<ns>_topic_delivered_total{topic,side}
//	<ns>_topic_dropped_total{topic,side}
//	<ns>_topic_alloc_failures_total{topic}
//	<ns>_topic_pool_free{topic}
//
// side 取 local 或 remote。
//
// # Fx 模块
//
//	app := fx.New(
//	    middleware.Module(),
//	    metrics.Module(metrics.Config{Enabled: true, Namespace: "r2p"}),
//	)
package metrics

package pubsub

// Observer 主题事件观察者
//
// 回调在热路径上同步执行，实现必须无阻塞。
type Observer interface {
	// OnDeliver 消息成功进入订阅者队列
	OnDeliver(topic string, remote bool)

	// OnDrop 订阅者队列已满或无法分配副本，消息在该分支被丢弃
	OnDrop(topic string, remote bool)

	// OnAllocFail 内存池耗尽
	OnAllocFail(topic string)
}

// NopObserver 空实现
type NopObserver struct{}

var _ Observer = NopObserver{}

// OnDeliver 实现 Observer
func (NopObserver) OnDeliver(string, bool) {}

// OnDrop 实现 Observer
func (NopObserver) OnDrop(string, bool) {}

// OnAllocFail 实现 Observer
func (NopObserver) OnAllocFail(string) {}

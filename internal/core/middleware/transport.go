package middleware

import (
	"github.com/dep2p/go-r2p/internal/core/pubsub"
)

// Transport 传输契约
//
// 中间件通过它把本地端点事件扩散到对端，并在管理协议握手中
// 按需创建远程发布者/订阅者。实现必须自行驱动接收循环，
// 把收到的控制帧转成 MgmtMsg 注入管理主题。
type Transport interface {
	pubsub.Transport

	// NotifyAdvertisement 向对端通告本地发布者
	NotifyAdvertisement(t *pubsub.Topic) error

	// NotifySubscription 向对端请求订阅
	NotifySubscription(t *pubsub.Topic) error

	// NotifyStop 通知对端本模块停止
	NotifyStop() error

	// NotifyReboot 请求对端重启
	NotifyReboot() error

	// NotifyBootload 请求对端进入引导模式
	NotifyBootload() error

	// TouchPublisher 查找或创建主题的远程发布者
	TouchPublisher(t *pubsub.Topic, rawParams []byte) (*pubsub.RemotePublisher, error)

	// TouchSubscriber 查找或创建主题的远程订阅者
	TouchSubscriber(t *pubsub.Topic, queueLength int, rawParams []byte) (*pubsub.RemoteSubscriber, error)

	// SendSubscriptionResponse 回复订阅请求
	SendSubscriptionResponse(t *pubsub.Topic) error
}

// Board 板级支持
type Board interface {
	// Reboot 硬件复位
	Reboot()
}

// BoardFunc 函数形式的 Board
type BoardFunc func()

// Reboot 实现 Board
func (f BoardFunc) Reboot() { f() }

type logBoard struct{}

func (logBoard) Reboot() {
	logger.Warn("未配置板级复位，忽略重启请求")
}

package middleware

import (
	"github.com/dep2p/go-r2p/internal/core/eventbus"
)

// emitters 中间件持有的事件发射器
type emitters struct {
	transportAdded *eventbus.Emitter[eventbus.EvtTransportAdded]
	remotePub      *eventbus.Emitter[eventbus.EvtRemotePublisher]
	remoteSub      *eventbus.Emitter[eventbus.EvtRemoteSubscriber]
	stopped        *eventbus.Emitter[eventbus.EvtModuleStopped]
	reboot         *eventbus.Emitter[eventbus.EvtRebootRequested]
}

func newEmitters(bus *eventbus.Bus) (*emitters, error) {
	var (
		e   emitters
		err error
	)
	if e.transportAdded, err = eventbus.NewEmitter[eventbus.EvtTransportAdded](bus); err != nil {
		return nil, err
	}
	if e.remotePub, err = eventbus.NewEmitter[eventbus.EvtRemotePublisher](bus); err != nil {
		return nil, err
	}
	if e.remoteSub, err = eventbus.NewEmitter[eventbus.EvtRemoteSubscriber](bus); err != nil {
		return nil, err
	}
	if e.stopped, err = eventbus.NewEmitter[eventbus.EvtModuleStopped](bus, eventbus.Stateful()); err != nil {
		return nil, err
	}
	if e.reboot, err = eventbus.NewEmitter[eventbus.EvtRebootRequested](bus); err != nil {
		return nil, err
	}
	return &e, nil
}

// emit 发射事件，总线关闭后静默丢弃
func emit[E any](em *eventbus.Emitter[E], evt E) {
	if err := em.Emit(evt); err != nil {
		logger.Debug("事件发射失败", "error", err)
	}
}

// Events 返回事件总线
func (mw *Middleware) Events() *eventbus.Bus {
	return mw.bus
}

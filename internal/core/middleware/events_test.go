package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-r2p/internal/core/eventbus"
	"github.com/dep2p/go-r2p/internal/core/osal"
	"github.com/dep2p/go-r2p/internal/core/pubsub"
)

func nextEvent[E any](t *testing.T, sub *eventbus.Subscription[E]) E {
	t.Helper()
	select {
	case e := <-sub.Out():
		return e
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
	var zero E
	return zero
}

func TestEvents_TransportAdded(t *testing.T) {
	bus := eventbus.NewBus()
	sub, err := eventbus.Subscribe[eventbus.EvtTransportAdded](bus)
	require.NoError(t, err)

	mw := newTestMiddleware(t, testConfig(), WithEventBus(bus))
	assert.Same(t, bus, mw.Events())
	require.NoError(t, mw.AddTransport(newFakeTransport(mw, "tcp")))
	assert.Equal(t, "tcp", nextEvent(t, sub).Transport)
}

func TestEvents_RemoteEndpoints(t *testing.T) {
	mw := newTestMiddleware(t, testConfig())
	subs, err := eventbus.Subscribe[eventbus.EvtRemoteSubscriber](mw.Events())
	require.NoError(t, err)
	pubs, err := eventbus.Subscribe[eventbus.EvtRemotePublisher](mw.Events())
	require.NoError(t, err)

	tr := newFakeTransport(mw, "tcp")
	require.NoError(t, mw.AddTransport(tr))
	node, err := mw.NewNode("app")
	require.NoError(t, err)
	require.NoError(t, node.Advertise(pubsub.NewLocalPublisher(), "led", 4, osal.Infinite))
	require.NoError(t, node.Subscribe(pubsub.NewLocalSubscriber(2, nil), "btn", 1))

	assert.True(t, mw.handleMgmt(mgmtFrom(t, mw, tr, MgmtMsg{
		Type:   MgmtCmdSubscribeRequest,
		PubSub: PubSub{Topic: "led", PayloadSize: 4, QueueLength: 3},
	})))
	assert.Equal(t, eventbus.EvtRemoteSubscriber{Transport: "tcp", Topic: "led", QueueLength: 3}, nextEvent(t, subs))

	assert.True(t, mw.handleMgmt(mgmtFrom(t, mw, tr, MgmtMsg{
		Type:   MgmtCmdSubscribeResponse,
		PubSub: PubSub{Topic: "btn", PayloadSize: 1},
	})))
	assert.Equal(t, eventbus.EvtRemotePublisher{Transport: "tcp", Topic: "btn"}, nextEvent(t, pubs))
}

func TestEvents_RebootSource(t *testing.T) {
	mw := newTestMiddleware(t, testConfig(), WithBoard(BoardFunc(func() {})))
	sub, err := eventbus.Subscribe[eventbus.EvtRebootRequested](mw.Events())
	require.NoError(t, err)

	mw.Reboot()
	assert.Equal(t, "local", nextEvent(t, sub).Source)

	tr := newFakeTransport(mw, "can")
	require.NoError(t, mw.AddTransport(tr))
	assert.True(t, mw.handleMgmt(mgmtFrom(t, mw, tr, MgmtMsg{Type: MgmtCmdReboot})))
	assert.Equal(t, "can", nextEvent(t, sub).Source)
}

func TestEvents_StoppedIsStateful(t *testing.T) {
	mw := newTestMiddleware(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, mw.Stop(ctx))

	// 停止后订阅仍能收到最后的停止事件
	sub, err := eventbus.Subscribe[eventbus.EvtModuleStopped](mw.Events())
	require.NoError(t, err)
	assert.Equal(t, testConfig().ModuleName, nextEvent(t, sub).Module)
}

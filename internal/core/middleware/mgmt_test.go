package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMgmtMsg_PubSubLayout(t *testing.T) {
	m := MgmtMsg{
		Type:   MgmtCmdSubscribeRequest,
		PubSub: PubSub{Topic: "led", PayloadSize: 4, QueueLength: 2, RawParams: []byte{0xAB}},
	}
	b := make([]byte, MgmtMsgSize)
	require.NoError(t, m.MarshalTo(b))

	assert.Equal(t, byte(MgmtCmdSubscribeRequest), b[31])
	assert.Equal(t, []byte("led"), b[:3])
	assert.Zero(t, b[3])
	assert.Equal(t, byte(4), b[16])
	assert.Equal(t, byte(2), b[17])
	assert.Equal(t, byte(0xAB), b[18])

	var got MgmtMsg
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, m.Type, got.Type)
	assert.Equal(t, "led", got.PubSub.Topic)
	assert.Equal(t, uint8(4), got.PubSub.PayloadSize)
	assert.Equal(t, uint8(2), got.PubSub.QueueLength)
	assert.Len(t, got.PubSub.RawParams, MaxRawParamsLen)
	assert.Equal(t, byte(0xAB), got.PubSub.RawParams[0])
}

func TestMgmtMsg_PathLayout(t *testing.T) {
	m := MgmtMsg{
		Type: MgmtInfoAdvertisement,
		Path: Path{Module: "BOARD", Node: "sensors", Topic: "imu_raw"},
	}
	b := make([]byte, MgmtMsgSize)
	require.NoError(t, m.MarshalTo(b))
	assert.Equal(t, []byte("sensors"), b[7:14])
	assert.Equal(t, []byte("imu_raw"), b[15:22])

	var got MgmtMsg
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, m.Path, got.Path)
}

func TestMgmtMsg_ModuleInfo(t *testing.T) {
	m := MgmtMsg{Type: MgmtInfoModule, Module: ModuleInfo{Name: "R2P", Stopped: true}}
	b := make([]byte, MgmtMsgSize)
	require.NoError(t, m.MarshalTo(b))

	var got MgmtMsg
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, m.Module, got.Module)
}

func TestMgmtMsg_Errors(t *testing.T) {
	var m MgmtMsg
	assert.ErrorIs(t, m.Unmarshal(make([]byte, 8)), ErrInvalidMgmtMsg)

	b := make([]byte, MgmtMsgSize)
	b[31] = 0x7F
	assert.ErrorIs(t, m.Unmarshal(b), ErrInvalidMgmtMsg)

	m = MgmtMsg{Type: MgmtCmdAdvertise, PubSub: PubSub{Topic: "led", RawParams: make([]byte, MaxRawParamsLen+1)}}
	assert.ErrorIs(t, m.MarshalTo(b), ErrInvalidMgmtMsg)

	m = MgmtMsg{Type: MgmtCmdAdvertise, PubSub: PubSub{Topic: "a_topic_name_too_long"}}
	assert.ErrorIs(t, m.MarshalTo(b), ErrInvalidMgmtMsg)
}

func TestBootMsg(t *testing.T) {
	m := BootMsg{Type: BootIhexRecord}
	m.Data[0] = 0x10
	m.Data[BootDataLen-1] = 0x20

	b := make([]byte, BootMsgSize)
	require.NoError(t, m.MarshalTo(b))
	assert.Equal(t, byte(BootIhexRecord), b[BootDataLen])

	var got BootMsg
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, m, got)

	assert.ErrorIs(t, got.Unmarshal(b[:4]), ErrInvalidMgmtMsg)
}

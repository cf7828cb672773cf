package debug

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendData_KnownFrame(t *testing.T) {
	got := AppendData(nil, time.Time{}, "led", []byte{0x01})
	assert.Equal(t, "@0000000000000000:03led:0101:C6\r\n", string(got))
}

func TestDecode_Data(t *testing.T) {
	deadline := time.Unix(0, 1_700_000_000_123_456_789)
	frame := AppendData(nil, deadline, "imu", []byte{0xDE, 0xAD, 0xBE, 0xEF})

	f, err := NewDecoder(bytes.NewReader(frame)).Next()
	require.NoError(t, err)
	assert.False(t, f.IsMgmt())
	assert.Equal(t, "imu", f.Topic)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, f.Payload)
	assert.True(t, deadline.Equal(f.Deadline))
}

func TestDecode_PubSub(t *testing.T) {
	frame := AppendPubSub(nil, time.Time{}, CmdSubscribeRequest, 5, "BOARD", "led")

	f, err := NewDecoder(bytes.NewReader(frame)).Next()
	require.NoError(t, err)
	assert.True(t, f.IsMgmt())
	assert.Equal(t, CmdSubscribeRequest, f.Cmd)
	assert.Equal(t, uint8(5), f.QueueLength)
	assert.Equal(t, "BOARD", f.Module)
	assert.Equal(t, "led", f.Target)
}

func TestDecode_Commands(t *testing.T) {
	var stream []byte
	for _, cmd := range []byte{CmdStop, CmdReboot, CmdBootload} {
		stream = AppendCommand(stream, time.Time{}, cmd)
	}

	dec := NewDecoder(bytes.NewReader(stream))
	for _, cmd := range []byte{CmdStop, CmdReboot, CmdBootload} {
		f, err := dec.Next()
		require.NoError(t, err)
		assert.Equal(t, cmd, f.Cmd)
	}
	_, err := dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecode_Resync(t *testing.T) {
	bad := AppendData(nil, time.Time{}, "led", []byte{0x01})
	bad[len(bad)-3] = '0' // 破坏校验和

	var stream []byte
	stream = append(stream, "noise\r\n"...)
	stream = append(stream, bad...)
	stream = append(stream, "@zz"...)
	stream = append(stream, AppendData(nil, time.Time{}, "led", []byte{0x02})...)

	dec := NewDecoder(bytes.NewReader(stream))

	_, err := dec.Next()
	assert.ErrorIs(t, err, ErrChecksum)

	_, err = dec.Next()
	assert.ErrorIs(t, err, ErrFrame)

	f, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, f.Payload)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"主题过长", "@0000000000000000:11xxxxxxxxxxxxxxxxx:00:00\r\n"},
		{"未知命令", "@0000000000000000:00:q:00\r\n"},
		{"队列长度为零", "@0000000000000000:00:s00:01A:01b:00\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecoder(bytes.NewReader([]byte(tt.frame))).Next()
			assert.ErrorIs(t, err, ErrFrame)
		})
	}
}

func TestDecode_UppercaseCommand(t *testing.T) {
	frame := AppendCommand(nil, time.Time{}, CmdReboot)
	frame = bytes.Replace(frame, []byte(":r:"), []byte(":R:"), 1)

	// 命令字符先转小写再参与校验
	f, err := NewDecoder(bytes.NewReader(frame)).Next()
	require.NoError(t, err)
	assert.Equal(t, CmdReboot, f.Cmd)
}

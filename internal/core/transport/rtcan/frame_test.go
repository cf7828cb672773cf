package rtcan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControl_Topic(t *testing.T) {
	in := Control{Type: CtrlSubscribeRequest, QueueLength: 3, DataID: NewID(9, 2), PayloadSize: 8, Topic: "imu"}
	b := AppendControl(nil, &in)
	assert.Equal(t, []byte{'S', 3, 9, 2, 8, 3, 'i', 'm', 'u'}, b)

	out, err := ParseControl(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestControl_Commands(t *testing.T) {
	for _, typ := range []byte{CtrlStop, CtrlReboot, CtrlBootload} {
		b := AppendControl(nil, &Control{Type: typ, Topic: "ignored"})
		assert.Equal(t, []byte{typ}, b)
		c, err := ParseControl(b)
		require.NoError(t, err)
		assert.Equal(t, typ, c.Type)
	}
}

func TestControl_Rejects(t *testing.T) {
	cases := map[string][]byte{
		"empty":        nil,
		"unknown type": {'x'},
		"short":        {'P', 0, 0},
		"no topic":     {'P', 0, 0, 1, 1, 0},
		"length":       {'P', 0, 0, 1, 1, 4, 'l', 'e', 'd'},
		"too long":     append([]byte{'E', 0, 0, 1, 1, 17}, make([]byte, 17)...),
	}
	for name, b := range cases {
		_, err := ParseControl(b)
		assert.ErrorIs(t, err, ErrInvalidFrame, name)
	}
}

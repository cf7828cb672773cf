package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restore(t *testing.T) {
	prev, lv := slog.Default(), GetLevel()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		SetLevel(lv)
	})
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": LevelDebug, "INFO": LevelInfo, "": LevelInfo,
		"warning": LevelWarn, " error ": LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLazyLogger_FollowsDefault(t *testing.T) {
	restore(t)
	logger := Logger("core/test")

	var first, second bytes.Buffer
	SetOutput(&first)
	logger.Info("hello", "k", 1)
	SetOutput(&second)
	logger.Info("world")

	assert.Contains(t, first.String(), "component=core/test")
	assert.Contains(t, first.String(), "k=1")
	assert.NotContains(t, first.String(), "world")
	assert.Contains(t, second.String(), "world")
}

func TestSetLevel_KeepsOutput(t *testing.T) {
	restore(t)
	var buf bytes.Buffer
	SetOutput(&buf)
	logger := Logger("core/test")

	logger.Debug("hidden")
	assert.False(t, logger.Enabled(LevelDebug))
	SetLevel(LevelDebug)
	logger.Debug("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestConfigure_JSON(t *testing.T) {
	restore(t)
	var buf bytes.Buffer
	require.NoError(t, Configure(&buf, "warn", FormatJSON))

	Logger("core/test").Info("dropped")
	Warn("kept", "n", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, float64(2), rec["n"])

	assert.Error(t, Configure(&buf, "info", Format("xml")))
	assert.Error(t, Configure(&buf, "loud", FormatText))
}

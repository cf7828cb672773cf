package middleware

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestModule_Lifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModuleName = "FX"
	cfg.SpinTimeout = 10 * time.Millisecond

	var mw *Middleware
	app := fxtest.New(t,
		fx.Supply(&cfg),
		fx.Provide(func() clock.Clock { return clock.New() }),
		Module(),
		fx.Populate(&mw),
	)
	app.RequireStart()

	require.NotNil(t, mw)
	assert.Equal(t, "FX", mw.ModuleName())
	assert.NotNil(t, mw.MgmtTopic())
	assert.NotNil(t, mw.BootTopic())

	app.RequireStop()
}

func TestModule_DefaultConfig(t *testing.T) {
	var mw *Middleware
	app := fxtest.New(t, Module(), fx.Populate(&mw))
	defer app.RequireStart().RequireStop()

	assert.Equal(t, DefaultConfig().ModuleName, mw.ModuleName())
}

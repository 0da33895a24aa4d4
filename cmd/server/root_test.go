package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dkeye/Chorus/internal/app/sched"
	"github.com/dkeye/Chorus/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerConfigFromDefaults(t *testing.T) {
	cfg, err := config.LoadFile(writeConfig(t))
	require.NoError(t, err)

	sc := schedulerConfig(cfg)
	assert.Equal(t, sched.Simultaneous, sc.Mode)
	assert.Equal(t, 15*time.Second, sc.MinDelay)
	assert.Equal(t, 25*time.Second, sc.MaxDelay)
	assert.NoError(t, sc.Validate())
}

func TestServeReturnsListenError(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = busy.Close() })

	cfg, err := config.LoadFile(writeConfig(t))
	require.NoError(t, err)
	cfg.Port = busy.Addr().(*net.TCPAddr).Port
	cfg.StaticPath = t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = serve(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on")
	assert.NoError(t, ctx.Err(), "serve must fail fast instead of waiting for shutdown")
}

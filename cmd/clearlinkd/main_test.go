package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-clearlink/clearlink"
	"github.com/arloliu/go-clearlink/config"
	"github.com/arloliu/go-clearlink/control"
	"github.com/arloliu/go-clearlink/logger"
	"github.com/arloliu/go-clearlink/node"
	"github.com/arloliu/go-clearlink/simulator"
)

func newSimNode(t *testing.T) *node.Node {
	t.Helper()
	require := require.New(t)

	l := logger.NewMockLogger().AllowAll()

	cfg, err := clearlink.NewConfig("sim",
		clearlink.WithNumAxes(2),
		clearlink.WithSleeper(clearlink.NoSleep),
		clearlink.WithLogger(l),
	)
	require.NoError(err)

	driver, err := clearlink.NewDriver(cfg, simulator.NewDevice(simulator.WithNumAxes(2)))
	require.NoError(err)

	ctrl, err := control.NewController(driver, l)
	require.NoError(err)

	n, err := node.New(ctrl, node.WithClock(clock.NewMock()), node.WithLogger(l))
	require.NoError(err)

	return n
}

func TestConsole(t *testing.T) {
	require := require.New(t)

	n := newSimNode(t)
	require.True(n.Start())
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	in := strings.NewReader("\nenable 1\nbogus\ndrive 100,0\nstop\n")
	var out bytes.Buffer
	require.NoError(console(ctx, n, in, &out))

	cancel()
	require.NoError(<-done)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Equal([]string{
		"enable ok",
		`error: unknown command "bogus"`,
		"drive ok",
		"stop ok",
	}, lines)
}

func TestLoadConfigDefaults(t *testing.T) {
	require := require.New(t)

	cfg := config.Default()
	require.NoError(config.Validate(cfg))

	l := newLogger(cfg.Log)
	require.NotNil(l)
}

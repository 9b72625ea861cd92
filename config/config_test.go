package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/arloliu/go-clearlink/clearlink"
)

func TestParse(t *testing.T) {
	require := require.New(t)

	t.Run("Full File", func(t *testing.T) {
		cfg, err := Parse([]byte(`
device:
  address: 10.1.2.3
  port: 2222
  num_axes: 2
  register_map: per_axis
node:
  loop_hz: 20
  reconnect_interval: 2s
  deadman: 500ms
  auto_enable: false
  default_accel: 25000
log:
  level: debug
  format: console
simulate: true
`))
		require.NoError(err)
		require.Equal("10.1.2.3", cfg.Device.Address)
		require.Equal("10.1.2.3:2222", cfg.Device.Endpoint())
		require.Equal(2, cfg.Device.NumAxes)
		require.Equal(2*time.Second, cfg.Node.ReconnectInterval)
		require.Equal(500*time.Millisecond, cfg.Node.Deadman)
		require.Equal(50*time.Millisecond, cfg.Node.LoopInterval())
		require.False(cfg.Node.AutoEnable)
		require.Equal(uint32(25000), cfg.Node.DefaultAccel)
		require.Equal("console", cfg.Log.Format)
		require.True(cfg.Simulate)

		opts, err := cfg.DriverOptions()
		require.NoError(err)
		dcfg, err := clearlink.NewConfig(cfg.Device.Endpoint(), opts...)
		require.NoError(err)
		require.Equal(2, dcfg.NumAxes())
		require.Equal(clearlink.PerAxisClassMapName, dcfg.RegisterMap().Name())
	})

	t.Run("Defaults For Missing Fields", func(t *testing.T) {
		cfg, err := Parse([]byte("device:\n  address: 10.0.0.9\n"))
		require.NoError(err)
		require.Equal("10.0.0.9", cfg.Device.Endpoint())
		require.Equal(clearlink.MaxAxes, cfg.Device.NumAxes)
		require.Equal(100*time.Millisecond, cfg.Node.LoopInterval())
		require.Equal(5*time.Second, cfg.Node.ReconnectInterval)
		require.Zero(cfg.Node.Deadman)
		require.True(cfg.Node.AutoEnable)
		require.Equal(uint32(10000), cfg.Node.DefaultAccel)
		require.False(cfg.Simulate)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := Parse([]byte("device: [1, 2"))
		require.ErrorContains(err, "parse config")
	})

	t.Run("Every Problem Reported", func(t *testing.T) {
		_, err := Parse([]byte(`
device:
  address: ""
  num_axes: 6
  register_map: per_class
node:
  loop_hz: 0
  default_accel: 0
log:
  level: loud
  format: xml
`))
		require.Error(err)
		require.Len(multierr.Errors(err), 7)
		require.ErrorContains(err, "device.address is empty")
		require.ErrorContains(err, "device.num_axes 6 out of range [1, 4]")
		require.ErrorContains(err, `device.register_map: unknown register map "per_class"`)
		require.ErrorContains(err, "node.loop_hz 0 out of range (0, 100]")
		require.ErrorContains(err, "node.default_accel must be positive")
		require.ErrorContains(err, `log.level: unknown log level "loud"`)
		require.ErrorContains(err, `log.format: unknown log format "xml"`)
	})
}

func TestLoad(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "clearlink.yaml")
	require.NoError(os.WriteFile(path, []byte("device:\n  address: 192.168.20.240\n  port: 44818\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(err)
	require.Equal("192.168.20.240", cfg.Device.Endpoint())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(err, "read config")
}

func TestValidate(t *testing.T) {
	require := require.New(t)

	require.NoError(Validate(Default()))
	require.Error(Validate(nil))

	cfg := Default()
	cfg.Node.ReconnectInterval = 0
	cfg.Node.Deadman = -time.Second
	cfg.Device.Port = 70000
	require.Len(multierr.Errors(Validate(cfg)), 3)
}

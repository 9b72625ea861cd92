package config

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/arloliu/go-clearlink/clearlink"
	"github.com/arloliu/go-clearlink/logger"
)

// Validate checks configuration correctness and reports every problem found.
// It does not mutate the configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	var err error

	// ---- device ----
	if strings.TrimSpace(cfg.Device.Address) == "" {
		err = multierr.Append(err, errors.New("device.address is empty"))
	}
	if cfg.Device.Port < 0 || cfg.Device.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("device.port %d out of range [0, 65535]", cfg.Device.Port))
	}
	if cfg.Device.NumAxes < 1 || cfg.Device.NumAxes > clearlink.MaxAxes {
		err = multierr.Append(err, fmt.Errorf("device.num_axes %d out of range [1, %d]", cfg.Device.NumAxes, clearlink.MaxAxes))
	}
	if _, e := clearlink.RegisterMapByName(cfg.Device.RegisterMap); e != nil {
		err = multierr.Append(err, fmt.Errorf("device.register_map: %w", e))
	}

	// ---- node ----
	if cfg.Node.LoopHz <= 0 || cfg.Node.LoopHz > 100 {
		err = multierr.Append(err, fmt.Errorf("node.loop_hz %g out of range (0, 100]", cfg.Node.LoopHz))
	}
	if cfg.Node.ReconnectInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("node.reconnect_interval %s must be positive", cfg.Node.ReconnectInterval))
	}
	if cfg.Node.Deadman < 0 {
		err = multierr.Append(err, fmt.Errorf("node.deadman %s must not be negative", cfg.Node.Deadman))
	}
	if cfg.Node.DefaultAccel == 0 {
		err = multierr.Append(err, errors.New("node.default_accel must be positive"))
	}

	// ---- log ----
	if _, e := logger.ParseLevel(cfg.Log.Level); e != nil {
		err = multierr.Append(err, fmt.Errorf("log.level: %w", e))
	}
	if _, e := logger.ParseFormat(cfg.Log.Format); e != nil {
		err = multierr.Append(err, fmt.Errorf("log.format: %w", e))
	}

	return err
}

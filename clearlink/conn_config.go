package clearlink

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/arloliu/go-clearlink/logger"
)

// MaxAxes is the number of motor connectors on the controller.
const MaxAxes = 4

// Sleeper pauses the calling goroutine. clock.Clock from github.com/benbjohnson/clock satisfies it.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleeperFunc adapts an ordinary function to the Sleeper interface.
type SleeperFunc func(d time.Duration)

// Sleep calls f(d).
func (f SleeperFunc) Sleep(d time.Duration) { f(d) }

// NoSleep returns immediately. Intended for tests against the simulator.
var NoSleep Sleeper = SleeperFunc(func(time.Duration) {})

// Config represents the configuration of a Driver.
type Config struct {
	// address of the device passed to cip.Transport.Open.
	address string

	// numAxes is the number of configured axes, axis indices are [1, numAxes].
	// Defaults to 4.
	numAxes int

	// regMap resolves registers to attribute paths.
	// Defaults to DefaultRegisterMap().
	regMap RegisterMap

	// sleeper implements the fixed settle delays and poll intervals of the handshakes.
	// Defaults to the wall clock.
	sleeper Sleeper

	logger logger.Logger
}

// NewConfig creates a Driver configuration for the device at address with optional functional options.
//
// Returns the initialized Config and an error if any option is invalid.
func NewConfig(address string, opts ...Option) (*Config, error) {
	cfg := &Config{
		numAxes: MaxAxes,
		regMap:  DefaultRegisterMap(),
		sleeper: clock.New(),
		logger:  logger.GetLogger(),
	}

	if err := withAddress(address).apply(cfg); err != nil {
		return cfg, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// Address returns the device address.
func (cfg *Config) Address() string { return cfg.address }

// NumAxes returns the configured axis count.
func (cfg *Config) NumAxes() int { return cfg.numAxes }

// RegisterMap returns the configured register map.
func (cfg *Config) RegisterMap() RegisterMap { return cfg.regMap }

// Option represents a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc struct {
	name      string
	applyFunc func(*Config) error
}

func (o *optFunc) apply(cfg *Config) error {
	if cfg == nil {
		return ErrConfigNil
	}

	return o.applyFunc(cfg)
}

func newOptFunc(name string, f func(*Config) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

func withAddress(address string) Option {
	return newOptFunc("withAddress", func(cfg *Config) error {
		address = strings.TrimSpace(address)
		if address == "" {
			return errors.New("device address is empty")
		}
		cfg.address = address

		return nil
	})
}

// WithNumAxes sets the number of axes. It should be between 1 and MaxAxes.
//
// Defaults to MaxAxes.
func WithNumAxes(n int) Option {
	return newOptFunc("WithNumAxes", func(cfg *Config) error {
		if n < 1 || n > MaxAxes {
			return fmt.Errorf("number of axes out of range [1, %d]", MaxAxes)
		}
		cfg.numAxes = n

		return nil
	})
}

// WithRegisterMap sets the register map.
func WithRegisterMap(m RegisterMap) Option {
	return newOptFunc("WithRegisterMap", func(cfg *Config) error {
		if m == nil {
			return errors.New("register map is nil")
		}
		cfg.regMap = m

		return nil
	})
}

// WithSleeper sets the source of handshake delays.
func WithSleeper(s Sleeper) Option {
	return newOptFunc("WithSleeper", func(cfg *Config) error {
		if s == nil {
			return errors.New("sleeper is nil")
		}
		cfg.sleeper = s

		return nil
	})
}

// WithLogger sets the logger. The default is logger.GetLogger().
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

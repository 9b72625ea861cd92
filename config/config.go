// Package config loads the clearlinkd configuration file.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-clearlink/clearlink"
)

// DefaultPort is the EtherNet/IP explicit messaging port.
const DefaultPort = 44818

// Config is the root of the clearlinkd configuration file.
type Config struct {
	Device   DeviceConfig `yaml:"device"`
	Node     NodeConfig   `yaml:"node"`
	Log      LogConfig    `yaml:"log"`
	Simulate bool         `yaml:"simulate"`
}

// ---- DEVICE ----

// DeviceConfig describes how to reach the controller and how it is laid out.
type DeviceConfig struct {
	Address     string `yaml:"address"`
	Port        int    `yaml:"port"`
	NumAxes     int    `yaml:"num_axes"`
	RegisterMap string `yaml:"register_map"` // shared | per_axis
}

// Endpoint returns the address passed to the transport. The port is only appended when it isn't DefaultPort.
func (d DeviceConfig) Endpoint() string {
	if d.Port == 0 || d.Port == DefaultPort {
		return d.Address
	}

	return net.JoinHostPort(d.Address, strconv.Itoa(d.Port))
}

// ---- NODE ----

// NodeConfig holds the timing and behavior of the node loops.
type NodeConfig struct {
	LoopHz            float64       `yaml:"loop_hz"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	Deadman           time.Duration `yaml:"deadman"` // 0 disables
	AutoEnable        bool          `yaml:"auto_enable"`
	DefaultAccel      uint32        `yaml:"default_accel"`
}

// LoopInterval returns the period of the status loop.
func (n NodeConfig) LoopInterval() time.Duration {
	return time.Duration(float64(time.Second) / n.LoopHz)
}

// ---- LOG ----

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

// Default returns the configuration used for fields missing from the file.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Address:     "192.168.20.240",
			Port:        DefaultPort,
			NumAxes:     clearlink.MaxAxes,
			RegisterMap: clearlink.SharedClassMapName,
		},
		Node: NodeConfig{
			LoopHz:            10,
			ReconnectInterval: 5 * time.Second,
			AutoEnable:        true,
			DefaultAccel:      10000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads, parses and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes data over Default() and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DriverOptions returns the clearlink options described by the device section.
func (cfg *Config) DriverOptions() ([]clearlink.Option, error) {
	regMap, err := clearlink.RegisterMapByName(cfg.Device.RegisterMap)
	if err != nil {
		return nil, err
	}

	return []clearlink.Option{
		clearlink.WithNumAxes(cfg.Device.NumAxes),
		clearlink.WithRegisterMap(regMap),
	}, nil
}

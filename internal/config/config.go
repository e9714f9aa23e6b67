// Package config holds the service configuration. Every knob has a fixed
// default matching the contract with the companion application; an optional
// YAML file can override them at process start, but nothing is mutable at
// runtime.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults shared with the companion application.
const (
	DefaultControlAddr      = "127.0.0.1:5020"
	DefaultCompanionPingURL = "http://localhost:8081/ping"
)

// Duration wraps time.Duration for YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a textual duration, accepting empty strings.
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Logging configures the slog setup.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full service configuration document.
type Config struct {
	// ControlAddr is the listen address of the control API. Non-loopback
	// hosts are rewritten to 127.0.0.1 by the server; the loopback binding
	// is the entire trust boundary.
	ControlAddr string `yaml:"controlAddr"`

	// CompanionPingURL is the companion application's liveness endpoint.
	CompanionPingURL string `yaml:"companionPingUrl"`

	// ProbeInterval is the health-monitor cadence.
	ProbeInterval Duration `yaml:"probeInterval"`
	// ProbeTimeout bounds a single companion probe.
	ProbeTimeout Duration `yaml:"probeTimeout"`
	// FailureThreshold is the number of consecutive failed probes that
	// triggers a tunnel stop.
	FailureThreshold int `yaml:"failureThreshold"`

	// StartGrace is how long the supervisor waits after spawning before
	// re-checking that the tunnel did not exit immediately.
	StartGrace Duration `yaml:"startGrace"`
	// StopTimeout bounds the graceful-termination wait before escalating
	// to a kill.
	StopTimeout Duration `yaml:"stopTimeout"`

	// ReadyTimeout bounds the wait for the control API to become
	// reachable during startup.
	ReadyTimeout Duration `yaml:"readyTimeout"`

	Logging Logging `yaml:"logging"`
}

// Default returns a configuration populated with the contract constants.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset field with its fixed default.
func (c *Config) ApplyDefaults() {
	if c.ControlAddr == "" {
		c.ControlAddr = DefaultControlAddr
	}
	if c.CompanionPingURL == "" {
		c.CompanionPingURL = DefaultCompanionPingURL
	}
	if c.ProbeInterval.Duration <= 0 {
		c.ProbeInterval.Duration = 2 * time.Second
	}
	if c.ProbeTimeout.Duration <= 0 {
		c.ProbeTimeout.Duration = 2 * time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.StartGrace.Duration <= 0 {
		c.StartGrace.Duration = 500 * time.Millisecond
	}
	if c.StopTimeout.Duration <= 0 {
		c.StopTimeout.Duration = 5 * time.Second
	}
	if c.ReadyTimeout.Duration <= 0 {
		c.ReadyTimeout.Duration = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Load reads a configuration file from the provided path. Unknown fields
// are rejected so typos surface immediately.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	var cfg Config
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", absPath, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	return &cfg, nil
}

// Validate rejects values the defaults can not repair.
func (c *Config) Validate() error {
	if c.FailureThreshold < 1 {
		return fmt.Errorf("failureThreshold must be at least 1, got %d", c.FailureThreshold)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

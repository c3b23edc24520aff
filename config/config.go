// Package config loads the host configuration from TOML.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ruediste/micro-blocks/errors"
	"github.com/ruediste/micro-blocks/machine"
	"github.com/ruediste/micro-blocks/modules/pin"
)

// Config is the host configuration file.
type Config struct {
	Pins       Pins        `toml:"pins"`
	Log        Log         `toml:"log"`
	Extensions []Extension `toml:"extensions"`
	Machine    Machine     `toml:"machine"`
}

// Machine configures the virtual machine.
type Machine struct {
	FaultPolicy string   `toml:"fault_policy"`
	TimeSlice   Duration `toml:"time_slice"`
	Tick        Duration `toml:"tick"`
	MaxMemory   int      `toml:"max_memory"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Pins seeds the simulated pin driver. Keys are pin numbers.
type Pins struct {
	Initial map[string]bool `toml:"initial"`
}

// Extension is a WebAssembly module providing native functions.
type Extension struct {
	Path string `toml:"path"`
	Name string `toml:"name"`
}

// Duration is a time.Duration written as a string like "50ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Machine: Machine{
			FaultPolicy: "silent",
			TimeSlice:   Duration{machine.DefaultTimeSlice},
			Tick:        Duration{machine.DefaultTick},
			MaxMemory:   1<<16 - 1,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ParseFailed(path, err)
	}
	return Parse(data)
}

// Parse parses TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if _, err := toml.Decode(string(data), c); err != nil {
		return nil, errors.ParseFailed("config", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks values that TOML decoding alone cannot.
func (c *Config) Validate() error {
	if _, err := machine.ParseFaultPolicy(c.Machine.FaultPolicy); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("log", "level").Value(c.Log.Level).Cause(err).Build()
	}
	if c.Machine.TimeSlice.Duration < 0 || c.Machine.Tick.Duration < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "negative duration")
	}
	if c.Machine.MaxMemory < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "negative max_memory")
	}
	if _, err := c.InitialPins(); err != nil {
		return err
	}
	for i, e := range c.Extensions {
		if e.Path == "" {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path("extensions", strconv.Itoa(i), "path").Detail("missing path").Build()
		}
	}
	return nil
}

// InitialPins returns the seeded pin levels keyed by pin number.
func (c *Config) InitialPins() (map[uint8]bool, error) {
	pins := make(map[uint8]bool, len(c.Pins.Initial))
	for k, v := range c.Pins.Initial {
		n, err := strconv.ParseUint(k, 10, 8)
		if err != nil {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path("pins", "initial", k).Detail("pin must be 0..255").Cause(err).Build()
		}
		pins[uint8(n)] = v
	}
	return pins, nil
}

// SimDriver returns a simulated pin driver seeded from the configuration.
func (c *Config) SimDriver() (*pin.SimDriver, error) {
	pins, err := c.InitialPins()
	if err != nil {
		return nil, err
	}
	d := pin.NewSimDriver()
	for p, v := range pins {
		d.Set(p, v)
	}
	return d, nil
}

// MachineConfig converts to a machine configuration. The clock, pool and
// fault callback are left for the caller.
func (c *Config) MachineConfig() machine.Config {
	policy, _ := machine.ParseFaultPolicy(c.Machine.FaultPolicy)
	return machine.Config{
		TimeSlice:   c.Machine.TimeSlice.Duration,
		Tick:        c.Machine.Tick.Duration,
		MaxMemory:   c.Machine.MaxMemory,
		FaultPolicy: policy,
	}
}

// Logger builds the zap logger described by the log section.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.ParseFailed("log level", err)
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

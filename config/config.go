// Package config loads espcsi settings from TOML files in standard locations.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/vinayprograms/espcsi/bus"
	"github.com/vinayprograms/espcsi/errors"
	"github.com/vinayprograms/espcsi/heartbeat"
	"github.com/vinayprograms/espcsi/logging"
)

// FileName is the config file looked up in standard locations.
const FileName = "espcsi.toml"

// Sink kinds.
const (
	SinkStdout        = "stdout"
	SinkNATS          = "nats"
	SinkWebSocket     = "websocket"
	SinkStdoutAndNATS = "stdout+nats"
)

// Environment overrides, applied after the file.
const (
	EnvDeviceID = "ESPCSI_DEVICE_ID"
	EnvNATSURL  = "ESPCSI_NATS_URL"
	EnvLogLevel = "ESPCSI_LOG_LEVEL"
)

// Duration is a time.Duration written as a string ("1s", "500ms").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full settings tree.
type Config struct {
	Heartbeat HeartbeatConfig `toml:"heartbeat"`
	Device    DeviceConfig    `toml:"device"`
	Sink      SinkConfig      `toml:"sink"`
	Log       LogConfig       `toml:"log"`
	Monitor   MonitorConfig   `toml:"monitor"`
}

// HeartbeatConfig mirrors heartbeat.Config.
type HeartbeatConfig struct {
	Banner   string   `toml:"banner"`
	Message  string   `toml:"message"`
	Interval Duration `toml:"interval"`
	TickRate int      `toml:"tick_rate"`
}

// DeviceConfig identifies the device on the bus.
type DeviceConfig struct {
	// ID names the console subject. Empty means a generated UUID.
	ID string `toml:"id"`
}

// SinkConfig selects where console lines go.
type SinkConfig struct {
	Kind         string `toml:"kind"`
	NATSURL      string `toml:"nats_url"`
	WebSocketURL string `toml:"websocket_url"`
}

// LogConfig configures diagnostics.
type LogConfig struct {
	Level string `toml:"level"`
}

// MonitorConfig configures the liveness observer.
type MonitorConfig struct {
	Timeout       Duration `toml:"timeout"`
	CheckInterval Duration `toml:"check_interval"`
}

// Default returns the configuration of the stock firmware.
func Default() *Config {
	hb := heartbeat.DefaultConfig()
	mon := heartbeat.DefaultMonitorConfig()
	return &Config{
		Heartbeat: HeartbeatConfig{
			Banner:   hb.Banner,
			Message:  hb.Message,
			Interval: Duration{hb.Interval},
			TickRate: hb.TickRate,
		},
		Sink: SinkConfig{
			Kind:    SinkStdout,
			NATSURL: bus.DefaultNATSConfig().URL,
		},
		Log: LogConfig{Level: "info"},
		Monitor: MonitorConfig{
			Timeout:       Duration{mon.Timeout},
			CheckInterval: Duration{mon.CheckInterval},
		},
	}
}

// StandardPaths returns the config file locations in order of priority.
func StandardPaths() []string {
	paths := []string{FileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "espcsi", FileName))
	}
	return paths
}

// Load reads the config from explicit if set, otherwise from the first
// standard location that exists. No file at all yields the defaults.
// The returned path is empty when defaults were used.
func Load(explicit string) (*Config, string, error) {
	if explicit != "" {
		cfg, err := LoadFile(explicit)
		return cfg, explicit, err
	}

	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			cfg, err := LoadFile(path)
			if err != nil {
				return nil, path, err
			}
			return cfg, path, nil
		}
	}

	cfg := Default()
	cfg.applyEnv()
	if err := cfg.finish(); err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

// LoadFile reads one file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeConfigLoad, "load config",
			errors.WithMetadata("path", path))
	}
	if err := rejectUndecoded(md, errors.WithMetadata("path", path)); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML text on top of the defaults. Environment overrides
// are not applied.
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeConfigLoad, "parse config")
	}
	if err := rejectUndecoded(md); err != nil {
		return nil, err
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// rejectUndecoded fails on the first key that maps to no field.
func rejectUndecoded(md toml.MetaData, opts ...errors.Option) error {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.New(errors.ErrCodeConfigLoad, "unknown config key "+undecoded[0].String(), opts...)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDeviceID); v != "" {
		c.Device.ID = v
	}
	if v := os.Getenv(EnvNATSURL); v != "" {
		c.Sink.NATSURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// finish validates and fills generated values.
func (c *Config) finish() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Device.ID == "" {
		c.Device.ID = uuid.New().String()
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	hb := c.LoopConfig()
	if err := hb.Validate(); err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeInvalidConfig, "heartbeat")
	}
	if c.Heartbeat.Interval.Duration <= 0 {
		return errors.InvalidConfig("heartbeat.interval", "must be positive")
	}

	if c.Device.ID != "" {
		if err := bus.ValidateSubject(bus.ConsoleSubject(c.Device.ID)); err != nil {
			return errors.InvalidConfig("device.id", "not usable as a subject token")
		}
	}

	switch c.Sink.Kind {
	case SinkStdout:
	case SinkNATS, SinkStdoutAndNATS:
		if c.Sink.NATSURL == "" {
			return errors.InvalidConfig("sink.nats_url", "required for sink "+c.Sink.Kind)
		}
	case SinkWebSocket:
		if c.Sink.WebSocketURL == "" {
			return errors.InvalidConfig("sink.websocket_url", "required for sink websocket")
		}
	default:
		return errors.InvalidConfig("sink.kind", "unknown sink "+c.Sink.Kind)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.InvalidConfig("log.level", err.Error())
	}

	if c.Monitor.Timeout.Duration <= 0 {
		return errors.InvalidConfig("monitor.timeout", "must be positive")
	}
	if c.Monitor.CheckInterval.Duration <= 0 {
		return errors.InvalidConfig("monitor.check_interval", "must be positive")
	}
	return nil
}

// LoopConfig converts the [heartbeat] section.
func (c *Config) LoopConfig() heartbeat.Config {
	return heartbeat.Config{
		Banner:   c.Heartbeat.Banner,
		Message:  c.Heartbeat.Message,
		Interval: c.Heartbeat.Interval.Duration,
		TickRate: c.Heartbeat.TickRate,
	}
}

// WatchConfig converts the [monitor] section for a bus.
func (c *Config) WatchConfig(b bus.MessageBus, logger *logging.Logger) heartbeat.MonitorConfig {
	return heartbeat.MonitorConfig{
		Bus:           b,
		Banner:        c.Heartbeat.Banner,
		Message:       c.Heartbeat.Message,
		Timeout:       c.Monitor.Timeout.Duration,
		CheckInterval: c.Monitor.CheckInterval.Duration,
		Logger:        logger,
	}
}

// NATSConfig converts the sink settings for the NATS bus.
func (c *Config) NATSConfig(clientName string) bus.NATSConfig {
	cfg := bus.DefaultNATSConfig()
	cfg.URL = c.Sink.NATSURL
	cfg.Name = clientName
	return cfg
}

// LogLevel returns the parsed log level. Validate guarantees it parses.
func (c *Config) LogLevel() logging.Level {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.LevelInfo
	}
	return level
}

// UsesNATS reports whether the sink needs a NATS connection.
func (c *Config) UsesNATS() bool {
	return c.Sink.Kind == SinkNATS || c.Sink.Kind == SinkStdoutAndNATS
}

// UsesStdout reports whether lines go to stdout.
func (c *Config) UsesStdout() bool {
	return c.Sink.Kind == SinkStdout || c.Sink.Kind == SinkStdoutAndNATS
}

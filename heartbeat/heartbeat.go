package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors.
var (
	ErrAlreadyStarted = errors.New("heartbeat already started")
	ErrNotStarted     = errors.New("heartbeat not started")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Console lines written by the loop.
const (
	DefaultBanner  = "ESP-CSI project started!"
	DefaultMessage = "Running..."
)

// DefaultTickRate is the FreeRTOS tick rate ESP-IDF ships with.
const DefaultTickRate = 100

// State is the loop's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateHeartbeat
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateHeartbeat:
		return "HEARTBEAT"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// LineWriter is a console sink. WriteLine appends the line break itself.
type LineWriter interface {
	WriteLine(text string) error
}

// LineWriterFunc adapts a function to LineWriter.
type LineWriterFunc func(text string) error

// WriteLine implements LineWriter.
func (f LineWriterFunc) WriteLine(text string) error {
	return f(text)
}

// Sleeper suspends the calling goroutine.
// Sleep returns ctx.Err() if the context ends first.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Config configures a Loop.
type Config struct {
	// Banner is written once before the first sleep.
	// Default: "ESP-CSI project started!"
	Banner string

	// Message is written after every sleep.
	// Default: "Running..."
	Message string

	// Interval between heartbeats before tick quantization.
	// Default: 1 second
	Interval time.Duration

	// TickRate is the host scheduler frequency in Hz.
	// Default: 100
	TickRate int
}

// DefaultConfig returns the configuration of the stock firmware.
func DefaultConfig() Config {
	return Config{
		Banner:   DefaultBanner,
		Message:  DefaultMessage,
		Interval: time.Second,
		TickRate: DefaultTickRate,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Interval < 0 {
		return fmt.Errorf("%w: negative interval %v", ErrInvalidConfig, c.Interval)
	}
	if c.TickRate < 0 {
		return fmt.Errorf("%w: negative tick rate %d", ErrInvalidConfig, c.TickRate)
	}
	if c.Banner == c.Message && c.Banner != "" {
		return fmt.Errorf("%w: banner and message must differ", ErrInvalidConfig)
	}
	// Each must stay a single console line.
	if strings.ContainsAny(c.Banner, "\r\n") {
		return fmt.Errorf("%w: banner contains a line break", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.Message, "\r\n") {
		return fmt.Errorf("%w: message contains a line break", ErrInvalidConfig)
	}
	return nil
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Banner == "" {
		c.Banner = def.Banner
	}
	if c.Message == "" {
		c.Message = def.Message
	}
	if c.Interval == 0 {
		c.Interval = def.Interval
	}
	if c.TickRate == 0 {
		c.TickRate = def.TickRate
	}
	return c
}

// EffectiveInterval returns the interval after tick quantization.
func (c Config) EffectiveInterval() time.Duration {
	c = c.withDefaults()
	return Quantize(c.Interval, TickPeriod(c.TickRate))
}

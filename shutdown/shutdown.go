package shutdown

import (
	"context"
	"errors"
	"time"

	"github.com/vinayprograms/espcsi/logging"
)

var (
	// ErrAlreadyShutdown is returned by a second Shutdown call.
	ErrAlreadyShutdown = errors.New("shutdown already initiated")

	// ErrTimeout indicates the deadline passed before every phase ran.
	ErrTimeout = errors.New("shutdown timeout exceeded")

	// ErrHandlerFailed indicates one or more handlers returned an error.
	ErrHandlerFailed = errors.New("one or more handlers failed")
)

// Standard phases for a device process.
const (
	PhaseLoop  = 10
	PhaseSinks = 20
	PhaseBus   = 30
)

// Handler is implemented by components torn down on reset.
type Handler interface {
	OnShutdown(ctx context.Context) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context) error

// OnShutdown implements Handler.
func (f HandlerFunc) OnShutdown(ctx context.Context) error {
	return f(ctx)
}

// Step records one handler's outcome.
type Step struct {
	Name     string
	Phase    int
	Duration time.Duration
	Err      error
}

// Report summarizes a completed shutdown.
type Report struct {
	// Reason is the signal name or the reason passed to Trigger.
	Reason   string
	Duration time.Duration
	Steps    []Step
	Err      error
}

// Failed returns the names of handlers that returned an error.
func (r *Report) Failed() []string {
	var failed []string
	for _, s := range r.Steps {
		if s.Err != nil {
			failed = append(failed, s.Name)
		}
	}
	return failed
}

// Config configures a Coordinator.
type Config struct {
	// Timeout bounds the whole shutdown.
	// Default: 10 seconds
	Timeout time.Duration

	// Logger receives one line per step. Nil discards.
	Logger *logging.Logger
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout: 10 * time.Second,
	}
}

type registration struct {
	name    string
	phase   int
	handler Handler
}

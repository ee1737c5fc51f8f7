package heartbeat

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vinayprograms/espcsi/logging"
)

// Loop is the device heartbeat task.
type Loop struct {
	cfg     Config
	delay   time.Duration
	out     LineWriter
	sleeper Sleeper
	logger  *logging.Logger

	state   atomic.Int32
	beats   atomic.Uint64
	running atomic.Bool

	mu   sync.Mutex
	done chan struct{}
	err  error
}

// NewLoop creates a heartbeat loop writing to out.
// A nil sleeper uses RealSleeper; a nil logger discards diagnostics.
func NewLoop(cfg Config, out LineWriter, sleeper Sleeper, logger *logging.Logger) (*Loop, error) {
	if out == nil {
		return nil, fmt.Errorf("%w: nil console sink", ErrInvalidConfig)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sleeper == nil {
		sleeper = RealSleeper{}
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &Loop{
		cfg:     cfg,
		delay:   Quantize(cfg.Interval, TickPeriod(cfg.TickRate)),
		out:     out,
		sleeper: sleeper,
		logger:  logger.WithComponent("heartbeat"),
	}, nil
}

// Run writes the banner, then sleeps and writes the message forever.
// It returns only when ctx is done, with ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	if l.running.Swap(true) {
		return ErrAlreadyStarted
	}
	defer l.running.Store(false)
	return l.run(ctx)
}

// Start runs the loop on its own goroutine and returns immediately.
func (l *Loop) Start(ctx context.Context) error {
	if l.running.Swap(true) {
		return ErrAlreadyStarted
	}

	done := make(chan struct{})
	l.mu.Lock()
	l.done = done
	l.err = nil
	l.mu.Unlock()

	go func() {
		err := l.run(ctx)
		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
		l.running.Store(false)
		close(done)
	}()
	return nil
}

// Wait blocks until a loop launched by Start exits and returns its error.
func (l *Loop) Wait() error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done == nil {
		return ErrNotStarted
	}

	<-done
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Beats returns how many heartbeat lines the current run has written.
func (l *Loop) Beats() uint64 {
	return l.beats.Load()
}

// Delay returns the quantized sleep between heartbeats.
func (l *Loop) Delay() time.Duration {
	return l.delay
}

func (l *Loop) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer l.state.Store(int32(StateIdle))

	l.beats.Store(0)
	l.state.Store(int32(StateStarting))
	l.emit(l.cfg.Banner)

	l.state.Store(int32(StateHeartbeat))
	l.logger.LoopStart(l.cfg.Interval, l.delay, l.cfg.TickRate)

	last := time.Now()
	for {
		if err := l.sleeper.Sleep(ctx, l.delay); err != nil {
			return err
		}
		l.emit(l.cfg.Message)

		seq := l.beats.Add(1)
		now := time.Now()
		l.logger.Beat(seq, now.Sub(last)-l.delay)
		last = now
	}
}

// emit writes one console line. Sink failures never stop the loop.
func (l *Loop) emit(text string) {
	if err := l.out.WriteLine(text); err != nil {
		l.logger.SinkError(sinkName(l.out), err)
	}
}

// Run starts a default loop on out and blocks like Loop.Run.
func Run(ctx context.Context, out LineWriter, sleeper Sleeper) error {
	loop, err := NewLoop(DefaultConfig(), out, sleeper, nil)
	if err != nil {
		return err
	}
	return loop.Run(ctx)
}

func sinkName(w LineWriter) string {
	if n, ok := w.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", w)
}

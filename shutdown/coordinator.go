package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/vinayprograms/espcsi/logging"
)

// Coordinator runs registered handlers once, in phase order.
type Coordinator struct {
	timeout time.Duration
	logger  *logging.Logger

	mu       sync.Mutex
	handlers []registration
	started  bool
	report   *Report
	done     chan struct{}

	signals chan os.Signal
	trigger chan string
}

// NewCoordinator creates a coordinator.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Coordinator{
		timeout: cfg.Timeout,
		logger:  logger.WithComponent("shutdown"),
		done:    make(chan struct{}),
		signals: make(chan os.Signal, 1),
		trigger: make(chan string, 1),
	}
}

// Register adds a handler to a phase.
func (c *Coordinator) Register(name string, phase int, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, registration{name: name, phase: phase, handler: h})
}

// RegisterFunc adds a function handler to a phase.
func (c *Coordinator) RegisterFunc(name string, phase int, fn func(ctx context.Context) error) {
	c.Register(name, phase, HandlerFunc(fn))
}

// Shutdown runs every phase. Only the first call does work; later calls
// return ErrAlreadyShutdown.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	return c.shutdown(ctx, "shutdown")
}

// ShutdownWithTimeout runs Shutdown bounded by the configured timeout.
func (c *Coordinator) ShutdownWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.Shutdown(ctx)
}

func (c *Coordinator) shutdown(ctx context.Context, reason string) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyShutdown
	}
	c.started = true
	handlers := make([]registration, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	c.logger.Info("reset", map[string]interface{}{"reason": reason, "handlers": len(handlers)})

	start := time.Now()
	report := &Report{Reason: reason}
	report.Err = c.runPhases(ctx, handlers, report)
	report.Duration = time.Since(start)

	c.mu.Lock()
	c.report = report
	c.mu.Unlock()
	close(c.done)

	return report.Err
}

func (c *Coordinator) runPhases(ctx context.Context, handlers []registration, report *Report) error {
	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].phase < handlers[j].phase
	})

	for len(handlers) > 0 {
		n := 1
		for n < len(handlers) && handlers[n].phase == handlers[0].phase {
			n++
		}
		group := handlers[:n]
		handlers = handlers[n:]

		if ctx.Err() != nil {
			return ErrTimeout
		}
		report.Steps = append(report.Steps, c.runPhase(ctx, group)...)
	}

	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%w: %v", ErrHandlerFailed, failed)
	}
	return nil
}

// runPhase runs one phase's handlers concurrently.
func (c *Coordinator) runPhase(ctx context.Context, group []registration) []Step {
	steps := make([]Step, len(group))
	var wg sync.WaitGroup

	for i, reg := range group {
		wg.Add(1)
		go func(i int, reg registration) {
			defer wg.Done()
			start := time.Now()
			err := reg.handler.OnShutdown(ctx)
			steps[i] = Step{Name: reg.name, Phase: reg.phase, Duration: time.Since(start), Err: err}
		}(i, reg)
	}
	wg.Wait()

	for _, s := range steps {
		fields := map[string]interface{}{"step": s.Name, "phase": s.Phase, "took": s.Duration}
		if s.Err != nil {
			fields["error"] = s.Err.Error()
			c.logger.Warn("reset step failed", fields)
		} else {
			c.logger.Debug("reset step", fields)
		}
	}
	return steps
}

// HandleSignals shuts down on SIGINT or SIGTERM, or on Trigger.
func (c *Coordinator) HandleSignals() {
	signal.Notify(c.signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(c.signals)

		var reason string
		select {
		case sig := <-c.signals:
			reason = sig.String()
		case reason = <-c.trigger:
		case <-c.done:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		c.shutdown(ctx, reason)
	}()
}

// Trigger starts the same path as a signal. It needs HandleSignals.
func (c *Coordinator) Trigger(reason string) {
	select {
	case c.trigger <- reason:
	default:
	}
}

// Done is closed when shutdown has finished.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Err returns the shutdown error once Done is closed.
func (c *Coordinator) Err() error {
	if r := c.Report(); r != nil {
		return r.Err
	}
	return nil
}

// Report returns the shutdown report, or nil before Done is closed.
func (c *Coordinator) Report() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report
}

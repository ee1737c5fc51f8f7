// Command espcsi is the device entry point: it prints the startup banner,
// then a heartbeat line every second until the process is reset.
//
// Usage:
//
//	espcsi [-config espcsi.toml]
//
// Console lines go to stdout by default. The [sink] section of the config
// can route them to NATS (console.<device id>) or a websocket observer
// instead. Diagnostics go to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/vinayprograms/espcsi/bus"
	"github.com/vinayprograms/espcsi/config"
	"github.com/vinayprograms/espcsi/console"
	"github.com/vinayprograms/espcsi/errors"
	"github.com/vinayprograms/espcsi/heartbeat"
	"github.com/vinayprograms/espcsi/logging"
	"github.com/vinayprograms/espcsi/shutdown"
)

func main() {
	configPath := flag.String("config", "", "path to espcsi.toml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "espcsi: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, path, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.New().WithDevice(cfg.Device.ID)
	logger.SetLevel(cfg.LogLevel())
	if path != "" {
		logger.Debug("config loaded", map[string]interface{}{"path": path})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := openOutputs(ctx, cfg, os.Stdout, logger)
	if err != nil {
		return err
	}

	loop, err := heartbeat.NewLoop(cfg.LoopConfig(), out.sink, nil, logger)
	if err != nil {
		out.Close()
		return err
	}

	coord := shutdown.NewCoordinator(shutdown.Config{Logger: logger})
	coord.RegisterFunc("loop", shutdown.PhaseLoop, func(ctx context.Context) error {
		return stopLoop(ctx, cancel, loop)
	})
	coord.RegisterFunc("sinks", shutdown.PhaseSinks, func(ctx context.Context) error {
		return out.sink.Close()
	})
	if out.bus != nil {
		coord.RegisterFunc("bus", shutdown.PhaseBus, func(ctx context.Context) error {
			return out.bus.Close()
		})
	}

	if err := loop.Start(ctx); err != nil {
		out.Close()
		return err
	}
	coord.HandleSignals()

	<-coord.Done()
	return coord.Err()
}

// stopLoop cancels the loop and waits for it to exit, giving up when ctx
// ends first. A sink blocked in a write cannot hold the reset past ctx.
func stopLoop(ctx context.Context, cancel context.CancelFunc, loop interface{ Wait() error }) error {
	cancel()

	exited := make(chan error, 1)
	go func() { exited <- loop.Wait() }()

	select {
	case err := <-exited:
		if err != nil && err != context.Canceled {
			return err
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// outputs are the console sinks of one device process and the bus they
// may share.
type outputs struct {
	sink *console.MultiWriter
	bus  bus.MessageBus
}

// Close releases the sinks and the bus.
func (o *outputs) Close() error {
	err := o.sink.Close()
	if o.bus != nil {
		if berr := o.bus.Close(); err == nil {
			err = berr
		}
	}
	return err
}

// openOutputs builds the sinks selected by cfg.Sink.Kind.
func openOutputs(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *logging.Logger) (*outputs, error) {
	out := &outputs{}
	var sinks []console.Writer

	if cfg.UsesStdout() {
		if stdout == os.Stdout {
			sinks = append(sinks, console.Stdout())
		} else {
			sinks = append(sinks, console.NewStreamWriter(stdout))
		}
	}

	if cfg.UsesNATS() {
		nc := cfg.NATSConfig("espcsi-" + cfg.Device.ID)
		nc.Logger = logger
		nb, err := bus.NewNATSBus(nc)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrCodeBusUnavailable, "connect nats",
				errors.WithMetadata("url", cfg.Sink.NATSURL))
		}
		w, err := console.NewBusWriter(nb, cfg.Device.ID)
		if err != nil {
			nb.Close()
			return nil, err
		}
		out.bus = nb
		sinks = append(sinks, w)
	}

	if cfg.Sink.Kind == config.SinkWebSocket {
		w, err := console.DialWebSocket(ctx, console.DefaultWebSocketConfig(cfg.Sink.WebSocketURL))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, w)
	}

	out.sink = console.NewMultiWriter(sinks...)
	return out, nil
}

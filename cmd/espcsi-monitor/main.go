// Command espcsi-monitor watches device consoles over NATS and reports
// restarts, unexpected output and devices that stop beating.
//
// Usage:
//
//	espcsi-monitor [-config espcsi.toml] [-nats url] -device id[,id...]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vinayprograms/espcsi/bus"
	"github.com/vinayprograms/espcsi/config"
	"github.com/vinayprograms/espcsi/errors"
	"github.com/vinayprograms/espcsi/heartbeat"
	"github.com/vinayprograms/espcsi/logging"
	"github.com/vinayprograms/espcsi/shutdown"
)

func main() {
	configPath := flag.String("config", "", "path to espcsi.toml")
	natsURL := flag.String("nats", "", "NATS server URL (overrides config)")
	devices := flag.String("device", "", "comma-separated device ids to watch")
	flag.Parse()

	if err := run(*configPath, *natsURL, *devices); err != nil {
		fmt.Fprintf(os.Stderr, "espcsi-monitor: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, natsURL, devices string) error {
	ids := parseDevices(devices)
	if len(ids) == 0 {
		return errors.InvalidConfig("device", "at least one device id is required")
	}

	cfg, _, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if natsURL != "" {
		cfg.Sink.NATSURL = natsURL
	}

	logger := logging.New()
	logger.SetLevel(cfg.LogLevel())

	session := uuid.New().String()
	nc := cfg.NATSConfig("espcsi-monitor-" + session)
	nc.Logger = logger
	nb, err := bus.NewNATSBus(nc)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeBusUnavailable, "connect nats",
			errors.WithMetadata("url", cfg.Sink.NATSURL))
	}

	mon, err := watch(cfg.WatchConfig(nb, logger), ids, os.Stdout)
	if err != nil {
		nb.Close()
		return err
	}
	logger.Info("watching", map[string]interface{}{"devices": strings.Join(ids, ","), "session": session})

	coord := shutdown.NewCoordinator(shutdown.Config{Logger: logger})
	coord.RegisterFunc("monitor", shutdown.PhaseLoop, func(ctx context.Context) error {
		return mon.Stop()
	})
	coord.RegisterFunc("bus", shutdown.PhaseBus, func(ctx context.Context) error {
		return nb.Close()
	})
	coord.HandleSignals()

	<-coord.Done()
	return coord.Err()
}

// watch starts a monitor on every id and prints each line as
// "<device> <kind> <text>".
func watch(cfg heartbeat.MonitorConfig, ids []string, w io.Writer) (*heartbeat.BusMonitor, error) {
	mon, err := heartbeat.NewBusMonitor(cfg)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	for _, id := range ids {
		lines, err := mon.Watch(id)
		if err != nil {
			mon.Stop()
			return nil, errors.WrapWithCode(err, errors.ErrCodeBusUnavailable, "watch "+id)
		}
		go func() {
			for line := range lines {
				mu.Lock()
				fmt.Fprintf(w, "%s %s %s\n", line.DeviceID, line.Kind, line.Text)
				mu.Unlock()
			}
		}()
	}
	return mon, nil
}

func parseDevices(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

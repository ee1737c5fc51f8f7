package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vinayprograms/espcsi/config"
	"github.com/vinayprograms/espcsi/console"
	"github.com/vinayprograms/espcsi/errors"
	"github.com/vinayprograms/espcsi/heartbeat"
	"github.com/vinayprograms/espcsi/logging"
)

func TestOpenOutputs_Stdout(t *testing.T) {
	cfg := config.Default()
	cfg.Device.ID = "esp-1"

	var buf bytes.Buffer
	out, err := openOutputs(context.Background(), cfg, &buf, logging.Discard())
	if err != nil {
		t.Fatalf("openOutputs error: %v", err)
	}
	defer out.Close()

	if out.bus != nil {
		t.Error("stdout sink should not open a bus")
	}
	out.sink.WriteLine("Running...")
	if buf.String() != "Running...\n" {
		t.Errorf("stdout = %q", buf.String())
	}
}

func TestOpenOutputs_NATSUnavailable(t *testing.T) {
	cfg := config.Default()
	cfg.Device.ID = "esp-1"
	cfg.Sink.Kind = config.SinkNATS
	cfg.Sink.NATSURL = "nats://127.0.0.1:1"

	_, err := openOutputs(context.Background(), cfg, &bytes.Buffer{}, logging.Discard())
	if !errors.Is(err, errors.ErrCodeBusUnavailable) {
		t.Errorf("err = %v, want BUS_UNAVAILABLE", err)
	}
}

func TestOpenOutputs_WebSocket(t *testing.T) {
	upgrader := console.NewUpgrader()
	frames := make(chan string, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- string(data)
		}
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Device.ID = "esp-1"
	cfg.Sink.Kind = config.SinkWebSocket
	cfg.Sink.WebSocketURL = "ws" + strings.TrimPrefix(server.URL, "http")

	var stdout bytes.Buffer
	out, err := openOutputs(context.Background(), cfg, &stdout, logging.Discard())
	if err != nil {
		t.Fatalf("openOutputs error: %v", err)
	}
	defer out.Close()

	out.sink.WriteLine(heartbeat.DefaultBanner)
	select {
	case got := <-frames:
		if got != heartbeat.DefaultBanner+"\n" {
			t.Errorf("frame = %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for frame")
	}
	if stdout.Len() != 0 {
		t.Errorf("websocket sink should not write stdout, got %q", stdout.String())
	}
}

func TestStopLoop_Exits(t *testing.T) {
	loop, err := heartbeat.NewLoop(heartbeat.Config{Interval: time.Millisecond, TickRate: 1000},
		console.NewRecorder(), nil, nil)
	if err != nil {
		t.Fatalf("NewLoop error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	loop.Start(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := stopLoop(stopCtx, cancel, loop); err != nil {
		t.Errorf("stopLoop = %v, want nil", err)
	}
}

func TestStopLoop_BlockedSinkBoundedByContext(t *testing.T) {
	blocked := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	sink := heartbeat.LineWriterFunc(func(text string) error {
		if text == heartbeat.DefaultMessage {
			once.Do(func() { close(blocked) })
			<-release
		}
		return nil
	})

	loop, err := heartbeat.NewLoop(heartbeat.Config{Interval: time.Millisecond, TickRate: 1000}, sink, nil, nil)
	if err != nil {
		t.Fatalf("NewLoop error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	loop.Start(ctx)
	defer func() {
		close(release)
		loop.Wait()
	}()

	select {
	case <-blocked:
	case <-time.After(time.Second):
		t.Fatal("sink never blocked")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stopCancel()

	start := time.Now()
	if err := stopLoop(stopCtx, cancel, loop); err != context.DeadlineExceeded {
		t.Errorf("stopLoop = %v, want context.DeadlineExceeded", err)
	}
	if took := time.Since(start); took > time.Second {
		t.Errorf("stopLoop took %v, should be bounded by its context", took)
	}
}

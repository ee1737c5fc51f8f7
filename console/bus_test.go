package console

import (
	"testing"
	"time"

	"github.com/vinayprograms/espcsi/bus"
	"github.com/vinayprograms/espcsi/errors"
)

func TestNewBusWriter_Validation(t *testing.T) {
	if _, err := NewBusWriter(nil, "esp-1"); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("nil bus: err = %v", err)
	}

	b := bus.NewMemoryBus(bus.DefaultConfig())
	defer b.Close()
	if _, err := NewBusWriter(b, "bad id"); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("bad id: err = %v", err)
	}
}

func TestBusWriter_Publishes(t *testing.T) {
	b := bus.NewMemoryBus(bus.DefaultConfig())
	defer b.Close()

	sub, err := b.Subscribe(bus.ConsoleSubject("esp-1"))
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	w, err := NewBusWriter(b, "esp-1")
	if err != nil {
		t.Fatalf("NewBusWriter error: %v", err)
	}
	if w.Subject() != "console.esp-1" {
		t.Errorf("Subject() = %q", w.Subject())
	}

	if err := w.WriteLine("Running..."); err != nil {
		t.Fatalf("WriteLine error: %v", err)
	}

	select {
	case msg := <-sub.Messages():
		if string(msg.Data) != "Running...\n" {
			t.Errorf("payload = %q", msg.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestBusWriter_ClosedAndBusErrors(t *testing.T) {
	b := bus.NewMemoryBus(bus.DefaultConfig())
	w, _ := NewBusWriter(b, "esp-1")

	b.Close()
	err := w.WriteLine("Running...")
	if !errors.Is(err, errors.ErrCodeBusUnavailable) {
		t.Errorf("closed bus: err = %v", err)
	}

	w.Close()
	if err := w.WriteLine("Running..."); err != ErrClosed {
		t.Errorf("closed writer: err = %v, want ErrClosed", err)
	}
}

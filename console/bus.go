package console

import (
	"sync/atomic"

	"github.com/vinayprograms/espcsi/bus"
	"github.com/vinayprograms/espcsi/errors"
)

// BusWriter publishes each line to the device's console subject.
type BusWriter struct {
	bus      bus.MessageBus
	subject  string
	deviceID string
	closed   atomic.Bool
}

// NewBusWriter creates a writer for deviceID. The bus is not owned by the
// writer; Close only stops further publishing.
func NewBusWriter(b bus.MessageBus, deviceID string) (*BusWriter, error) {
	if b == nil {
		return nil, errors.InvalidConfig("bus", "message bus is required")
	}
	subject := bus.ConsoleSubject(deviceID)
	if err := bus.ValidateSubject(subject); err != nil {
		return nil, errors.InvalidConfig("device.id", err.Error())
	}
	return &BusWriter{bus: b, subject: subject, deviceID: deviceID}, nil
}

// WriteLine publishes text plus a line break.
func (w *BusWriter) WriteLine(text string) error {
	if w.closed.Load() {
		return ErrClosed
	}
	if err := w.bus.Publish(w.subject, []byte(text+LineBreak)); err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeBusUnavailable, "publish console line",
			errors.WithMetadata("subject", w.subject))
	}
	return nil
}

// Subject returns the subject lines are published to.
func (w *BusWriter) Subject() string {
	return w.subject
}

// Name identifies the sink in diagnostics.
func (w *BusWriter) Name() string {
	return "bus"
}

// Close stops publishing. It is safe to call more than once.
func (w *BusWriter) Close() error {
	w.closed.Store(true)
	return nil
}

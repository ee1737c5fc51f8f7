package console

import (
	"io"
	"os"
	"sync"
)

// StreamWriter writes lines to an io.Writer. Writes are serialized so a
// line is never interleaved with another.
type StreamWriter struct {
	mu   sync.Mutex
	w    io.Writer
	name string
}

// NewStreamWriter wraps w.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w, name: "stream"}
}

// Stdout returns a StreamWriter on os.Stdout.
func Stdout() *StreamWriter {
	return &StreamWriter{w: os.Stdout, name: "stdout"}
}

// WriteLine writes text followed by a line break in a single Write call.
func (s *StreamWriter) WriteLine(text string) error {
	buf := make([]byte, 0, len(text)+len(LineBreak))
	buf = append(buf, text...)
	buf = append(buf, LineBreak...)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(buf)
	return err
}

// Name identifies the sink in diagnostics.
func (s *StreamWriter) Name() string {
	return s.name
}

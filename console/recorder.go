package console

import (
	"sync"
	"time"
)

// RecordedLine is a line captured by a Recorder.
type RecordedLine struct {
	Text string
	At   time.Time
}

// Recorder collects lines in memory.
type Recorder struct {
	mu    sync.Mutex
	lines []RecordedLine
	now   func() time.Time
}

// NewRecorder creates an empty recorder stamped with the wall clock.
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// NewRecorderWithClock stamps lines using now instead of the wall clock.
func NewRecorderWithClock(now func() time.Time) *Recorder {
	return &Recorder{now: now}
}

// WriteLine records text. It never fails.
func (r *Recorder) WriteLine(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, RecordedLine{Text: text, At: r.now()})
	return nil
}

// Lines returns a copy of the recorded lines.
func (r *Recorder) Lines() []RecordedLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedLine, len(r.lines))
	copy(out, r.lines)
	return out
}

// Texts returns just the recorded text.
func (r *Recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	for i, l := range r.lines {
		out[i] = l.Text
	}
	return out
}

// Len returns the number of recorded lines.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines)
}

// Reset discards everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = nil
}

// Name identifies the sink in diagnostics.
func (r *Recorder) Name() string {
	return "recorder"
}

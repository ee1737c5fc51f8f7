package console

import (
	"testing"
	"time"
)

func TestRecorder(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	r := NewRecorderWithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	r.WriteLine("a")
	r.WriteLine("b")

	lines := r.Lines()
	if len(lines) != 2 {
		t.Fatalf("len = %d, want 2", len(lines))
	}
	if lines[0].Text != "a" || lines[1].Text != "b" {
		t.Errorf("texts = %v", r.Texts())
	}
	if got := lines[1].At.Sub(lines[0].At); got != time.Second {
		t.Errorf("gap = %v, want 1s", got)
	}

	// Lines returns a copy.
	lines[0].Text = "mutated"
	if r.Texts()[0] != "a" {
		t.Error("Lines() should return a copy")
	}

	r.Reset()
	if r.Len() != 0 {
		t.Errorf("Len after Reset = %d", r.Len())
	}
}

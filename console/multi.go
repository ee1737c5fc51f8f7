package console

import "strings"

// MultiWriter writes every line to all of its sinks.
type MultiWriter struct {
	sinks []Writer
}

// NewMultiWriter fans out to sinks in order. Nil sinks are skipped.
func NewMultiWriter(sinks ...Writer) *MultiWriter {
	m := &MultiWriter{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// WriteLine attempts every sink and returns the first error.
func (m *MultiWriter) WriteLine(text string) error {
	var first error
	for _, s := range m.sinks {
		if err := s.WriteLine(text); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Name lists the sink names joined with "+".
func (m *MultiWriter) Name() string {
	names := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		if n, ok := s.(interface{ Name() string }); ok {
			names = append(names, n.Name())
		} else {
			names = append(names, "sink")
		}
	}
	return strings.Join(names, "+")
}

// Len returns the number of sinks.
func (m *MultiWriter) Len() int {
	return len(m.sinks)
}

// Close closes every sink that implements io.Closer and returns the first
// error.
func (m *MultiWriter) Close() error {
	var first error
	for _, s := range m.sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

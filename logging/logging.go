// Package logging provides diagnostic log output for espcsi processes.
// Diagnostics go to stderr by default so they never interleave with the
// console lines the heartbeat loop writes to its sink.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel converts a config string (case-insensitive) to a Level.
func ParseLevel(s string) (Level, error) {
	level := Level(strings.ToUpper(strings.TrimSpace(s)))
	if level == "WARNING" {
		level = LevelWarn
	}
	if _, ok := levelPriority[level]; !ok {
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Logger writes levelled key=value lines.
type Logger struct {
	mu        *sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
	device    string
}

// New creates a new Logger writing to stderr at INFO.
func New() *Logger {
	return &Logger{
		mu:       &sync.Mutex{},
		output:   os.Stderr,
		minLevel: LevelInfo,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	l := New()
	l.output = io.Discard
	return l
}

// WithComponent returns a new logger with the given component name.
// The returned logger shares the parent's output lock.
func (l *Logger) WithComponent(component string) *Logger {
	c := *l
	c.component = component
	return &c
}

// WithDevice returns a new logger tagging every line with device=<id>.
func (l *Logger) WithDevice(deviceID string) *Logger {
	c := *l
	c.device = deviceID
	return &c
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats fields as sorted key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

// log writes: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	merged := make(map[string]interface{})
	if len(fields) > 0 {
		for k, v := range fields[0] {
			merged[k] = v
		}
	}
	if l.device != "" {
		merged["device"] = l.device
	}
	fieldStr := formatFields(merged)

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Lifecycle events ---

// LoopStart logs the transition out of STARTING.
func (l *Logger) LoopStart(interval, effective time.Duration, tickRate int) {
	l.Info("loop_start", map[string]interface{}{
		"interval":  interval.String(),
		"effective": effective.String(),
		"tick_rate": tickRate,
	})
}

// Beat logs a single heartbeat at debug level.
func (l *Logger) Beat(seq uint64, drift time.Duration) {
	l.Debug("beat", map[string]interface{}{
		"seq":   seq,
		"drift": drift.String(),
	})
}

// SinkError logs a failed write to the console sink.
func (l *Logger) SinkError(sink string, err error) {
	l.Warn("sink_error", map[string]interface{}{
		"sink":  sink,
		"error": err.Error(),
	})
}

// DeviceDead logs that an observed device stopped beating.
func (l *Logger) DeviceDead(deviceID string, silence time.Duration) {
	l.Error("device_dead", map[string]interface{}{
		"watched": deviceID,
		"silence": silence.Round(time.Millisecond).String(),
	})
}

// DeviceRestart logs that an observed device printed its banner again.
func (l *Logger) DeviceRestart(deviceID string, restarts int) {
	l.Warn("device_restart", map[string]interface{}{
		"watched":  deviceID,
		"restarts": restarts,
	})
}

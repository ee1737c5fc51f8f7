package heartbeat

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vinayprograms/espcsi/bus"
	"github.com/vinayprograms/espcsi/logging"
)

// LineKind classifies a console line seen by the monitor.
type LineKind int

const (
	LineBanner LineKind = iota
	LineBeat
	LineUnexpected
)

// String returns the kind name.
func (k LineKind) String() string {
	switch k {
	case LineBanner:
		return "banner"
	case LineBeat:
		return "beat"
	default:
		return "unexpected"
	}
}

// Line is one console line received from a device.
type Line struct {
	DeviceID   string
	Text       string
	Kind       LineKind
	ReceivedAt time.Time
}

// DeviceStatus is the monitor's view of one device.
type DeviceStatus struct {
	DeviceID   string
	Booted     bool
	Restarts   int
	Beats      uint64
	Unexpected int
	LastLine   string
	LastSeen   time.Time
	Dead       bool
}

// MonitorConfig configures a BusMonitor.
type MonitorConfig struct {
	// Bus carries device console lines.
	Bus bus.MessageBus

	// Banner and Message are the lines a healthy device prints.
	// Default: DefaultBanner / DefaultMessage
	Banner  string
	Message string

	// Timeout of silence after which a device is presumed dead.
	// Default: 3 seconds
	Timeout time.Duration

	// CheckInterval for the dead device checker.
	// Default: 500 milliseconds
	CheckInterval time.Duration

	// Logger for diagnostics. Default: discard.
	Logger *logging.Logger
}

// Validate checks the configuration.
func (c *MonitorConfig) Validate() error {
	if c.Bus == nil {
		return ErrInvalidConfig
	}
	if c.Timeout < 0 || c.CheckInterval < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// DefaultMonitorConfig returns configuration with sensible defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Banner:        DefaultBanner,
		Message:       DefaultMessage,
		Timeout:       3 * time.Second,
		CheckInterval: 500 * time.Millisecond,
	}
}

// BusMonitor watches device consoles on a message bus.
type BusMonitor struct {
	bus           bus.MessageBus
	banner        string
	message       string
	timeout       time.Duration
	checkInterval time.Duration
	logger        *logging.Logger

	mu      sync.RWMutex
	devices map[string]*DeviceStatus
	subs    map[string]bus.Subscription
	deadCBs []func(string)

	// lifecycle serializes Watch and Stop.
	lifecycle sync.Mutex
	running   atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	wg        sync.WaitGroup
}

// NewBusMonitor creates a new console monitor.
func NewBusMonitor(cfg MonitorConfig) (*BusMonitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	def := DefaultMonitorConfig()
	if cfg.Banner == "" {
		cfg.Banner = def.Banner
	}
	if cfg.Message == "" {
		cfg.Message = def.Message
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = def.CheckInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	return &BusMonitor{
		bus:           cfg.Bus,
		banner:        cfg.Banner,
		message:       cfg.Message,
		timeout:       cfg.Timeout,
		checkInterval: cfg.CheckInterval,
		logger:        cfg.Logger.WithComponent("monitor"),
		devices:       make(map[string]*DeviceStatus),
		subs:          make(map[string]bus.Subscription),
	}, nil
}

// Watch subscribes to a device's console and returns its classified lines.
// The silence clock starts now, so a device that never boots is reported
// dead after Timeout. The channel closes when the monitor stops.
// It holds 64 lines; while it is full, further lines still update the
// device status but are not delivered on the channel.
func (m *BusMonitor) Watch(deviceID string) (<-chan *Line, error) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	sub, err := m.bus.Subscribe(bus.ConsoleSubject(deviceID))
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if old, ok := m.subs[deviceID]; ok {
		old.Unsubscribe()
	}
	m.subs[deviceID] = sub
	if _, ok := m.devices[deviceID]; !ok {
		m.devices[deviceID] = &DeviceStatus{DeviceID: deviceID, LastSeen: time.Now()}
	}
	m.mu.Unlock()

	m.ensureChecker()

	ch := make(chan *Line, 64)
	m.wg.Add(1)
	go m.forward(deviceID, sub, ch)
	return ch, nil
}

func (m *BusMonitor) ensureChecker() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running.Load() {
		return
	}
	m.running.Store(true)
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.run(m.stopCh, m.doneCh)
}

// run checks for silent devices until stop closes.
func (m *BusMonitor) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.checkDead(time.Now())
		}
	}
}

// forward classifies subscription messages and relays them.
func (m *BusMonitor) forward(deviceID string, sub bus.Subscription, ch chan *Line) {
	defer m.wg.Done()
	defer close(ch)

	for msg := range sub.Messages() {
		id := bus.DeviceFromSubject(msg.Subject)
		if id == "" {
			id = deviceID
		}
		for _, text := range splitLines(msg.Data) {
			line := m.record(id, text, time.Now())
			select {
			case ch <- line:
			default:
				// Consumer is behind; status is already recorded.
				m.logger.Debug("line dropped", map[string]interface{}{
					"watched": id,
					"kind":    line.Kind.String(),
				})
			}
		}
	}
}

// record updates device status for one line.
func (m *BusMonitor) record(deviceID, text string, at time.Time) *Line {
	line := &Line{DeviceID: deviceID, Text: text, ReceivedAt: at}
	switch text {
	case m.banner:
		line.Kind = LineBanner
	case m.message:
		line.Kind = LineBeat
	default:
		line.Kind = LineUnexpected
	}

	m.mu.Lock()
	st, ok := m.devices[deviceID]
	if !ok {
		st = &DeviceStatus{DeviceID: deviceID}
		m.devices[deviceID] = st
	}
	restarted := false
	switch line.Kind {
	case LineBanner:
		if st.Booted {
			st.Restarts++
			restarted = true
		}
		st.Booted = true
		st.Beats = 0
	case LineBeat:
		st.Beats++
	default:
		st.Unexpected++
	}
	st.LastLine = text
	st.LastSeen = at
	st.Dead = false
	restarts := st.Restarts
	m.mu.Unlock()

	if restarted {
		m.logger.DeviceRestart(deviceID, restarts)
	}
	return line
}

// checkDead marks devices silent for longer than timeout and fires
// OnDead callbacks once per silence.
func (m *BusMonitor) checkDead(now time.Time) {
	type dead struct {
		id      string
		silence time.Duration
	}
	var found []dead

	m.mu.Lock()
	for id, st := range m.devices {
		silence := now.Sub(st.LastSeen)
		if !st.Dead && silence > m.timeout {
			st.Dead = true
			found = append(found, dead{id, silence})
		}
	}
	callbacks := make([]func(string), len(m.deadCBs))
	copy(callbacks, m.deadCBs)
	m.mu.Unlock()

	for _, d := range found {
		m.logger.DeviceDead(d.id, d.silence)
		for _, cb := range callbacks {
			cb(d.id)
		}
	}
}

// Status returns a snapshot of a device's status.
func (m *BusMonitor) Status(deviceID string) (DeviceStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.devices[deviceID]
	if !ok {
		return DeviceStatus{}, false
	}
	return *st, true
}

// IsAlive reports whether a device printed a line within the timeout.
func (m *BusMonitor) IsAlive(deviceID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.devices[deviceID]
	if !ok || st.LastLine == "" {
		return false
	}
	return time.Since(st.LastSeen) <= m.timeout
}

// OnDead registers a callback for when a device is presumed dead.
func (m *BusMonitor) OnDead(callback func(deviceID string)) {
	m.mu.Lock()
	m.deadCBs = append(m.deadCBs, callback)
	m.mu.Unlock()
}

// Stop unsubscribes from every device and stops the dead checker.
func (m *BusMonitor) Stop() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	if !m.running.Load() {
		m.mu.Unlock()
		return ErrNotStarted
	}
	m.running.Store(false)
	for id, sub := range m.subs {
		sub.Unsubscribe()
		delete(m.subs, id)
	}
	stop, done := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stop)
	<-done
	m.wg.Wait()
	return nil
}

func splitLines(data []byte) []string {
	var lines []string
	for _, raw := range strings.Split(string(data), "\n") {
		text := strings.TrimRight(raw, "\r")
		if text == "" {
			continue
		}
		lines = append(lines, text)
	}
	return lines
}

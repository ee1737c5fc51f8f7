package console

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vinayprograms/espcsi/errors"
)

// WebSocketConfig holds websocket sink configuration.
type WebSocketConfig struct {
	// URL of the observer endpoint (ws:// or wss://).
	URL string

	// Header is sent with the handshake.
	Header http.Header

	// HandshakeTimeout bounds the dial.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration
}

// DefaultWebSocketConfig returns configuration with sensible defaults.
func DefaultWebSocketConfig(url string) WebSocketConfig {
	return WebSocketConfig{
		URL:              url,
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// WebSocketWriter sends every line as one text frame.
type WebSocketWriter struct {
	conn   *websocket.Conn
	config WebSocketConfig

	mu     sync.Mutex
	closed bool
}

// DialWebSocket connects to an observer.
func DialWebSocket(ctx context.Context, cfg WebSocketConfig) (*WebSocketWriter, error) {
	if cfg.URL == "" {
		return nil, errors.InvalidConfig("sink.websocket_url", "url is required")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWebSocketConfig("").WriteTimeout
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, cfg.URL, cfg.Header)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeSinkUnavailable, "dial websocket observer",
			errors.WithMetadata("url", cfg.URL))
	}

	return &WebSocketWriter{conn: conn, config: cfg}, nil
}

// WriteLine sends text plus a line break as a text frame.
func (w *WebSocketWriter) WriteLine(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
	if err := w.conn.WriteMessage(websocket.TextMessage, []byte(text+LineBreak)); err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeSinkUnavailable, "write websocket frame")
	}
	return nil
}

// Name identifies the sink in diagnostics.
func (w *WebSocketWriter) Name() string {
	return "websocket"
}

// Close sends a close frame and closes the connection.
func (w *WebSocketWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	w.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return w.conn.Close()
}

// NewUpgrader creates an upgrader for observers accepting console streams.
func NewUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

package bus

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vinayprograms/espcsi/logging"
)

// NATSBus implements MessageBus using NATS.
type NATSBus struct {
	conn   *nats.Conn
	config NATSConfig
}

// NATSConfig holds NATS connection configuration.
type NATSConfig struct {
	Config

	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Name is the client name, usually the device ID.
	Name string

	// Token for token-based auth.
	Token string

	// ReconnectWait is the time to wait between reconnection attempts.
	ReconnectWait time.Duration

	// MaxReconnects is the maximum number of reconnection attempts.
	// -1 = unlimited
	MaxReconnects int

	// ConnectTimeout for initial connection.
	ConnectTimeout time.Duration

	// ReconnectBuffer is how many bytes of console output are held while
	// the server is unreachable. Lines beyond it are lost.
	// Default: 64KiB
	ReconnectBuffer int

	// Logger receives connection state changes. Nil discards.
	Logger *logging.Logger
}

// DefaultNATSConfig returns configuration with sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		Config:          DefaultConfig(),
		URL:             nats.DefaultURL,
		ReconnectWait:   2 * time.Second,
		MaxReconnects:   -1,
		ConnectTimeout:  5 * time.Second,
		ReconnectBuffer: 64 * 1024,
	}
}

// NewNATSBus connects to a NATS server.
func NewNATSBus(cfg NATSConfig) (*NATSBus, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}

	conn, err := nats.Connect(cfg.URL, buildNATSOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &NATSBus{
		conn:   conn,
		config: cfg,
	}, nil
}

func buildNATSOptions(cfg NATSConfig) []nats.Option {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("nats")

	opts := []nats.Option{
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			fields := map[string]interface{}{"url": cfg.URL}
			if err != nil {
				fields["error"] = err.Error()
			}
			logger.Warn("disconnected", fields)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected", map[string]interface{}{"url": nc.ConnectedUrl()})
		}),
	}
	if cfg.ReconnectBuffer != 0 {
		opts = append(opts, nats.ReconnectBufSize(cfg.ReconnectBuffer))
	}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}
	return opts
}

// Publish sends a message to a subject.
func (b *NATSBus) Publish(subject string, data []byte) error {
	if err := ValidateSubject(subject); err != nil {
		return err
	}
	if b.conn.IsClosed() {
		return ErrClosed
	}
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Subscribe creates a subscription to a subject.
func (b *NATSBus) Subscribe(subject string) (Subscription, error) {
	if err := ValidateSubject(subject); err != nil {
		return nil, err
	}
	if b.conn.IsClosed() {
		return nil, ErrClosed
	}

	// nats.go delivers into its own channel; ChanSubscribe keeps our
	// buffer size authoritative.
	natsCh := make(chan *nats.Msg, b.config.BufferSize)
	natsSub, err := b.conn.ChanSubscribe(subject, natsCh)
	if err != nil {
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}

	s := &natsSubscription{
		sub:  natsSub,
		in:   natsCh,
		ch:   make(chan *Message, b.config.BufferSize),
		done: make(chan struct{}),
	}
	go s.forward()
	return s, nil
}

// Close drains and closes the NATS connection.
func (b *NATSBus) Close() error {
	if b.conn.IsClosed() {
		return nil
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}

// Connected reports whether the connection is currently up.
func (b *NATSBus) Connected() bool {
	return b.conn.IsConnected()
}

// Conn returns the underlying NATS connection.
func (b *NATSBus) Conn() *nats.Conn {
	return b.conn
}

type natsSubscription struct {
	sub  *nats.Subscription
	in   chan *nats.Msg
	ch   chan *Message
	done chan struct{}
}

func (s *natsSubscription) forward() {
	defer close(s.ch)
	for {
		select {
		case <-s.done:
			return
		case m := <-s.in:
			select {
			case s.ch <- &Message{Subject: m.Subject, Data: m.Data}:
			default:
			}
		}
	}
}

// Messages returns the message channel.
func (s *natsSubscription) Messages() <-chan *Message {
	return s.ch
}

// Unsubscribe cancels the subscription.
func (s *natsSubscription) Unsubscribe() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	return s.sub.Unsubscribe()
}

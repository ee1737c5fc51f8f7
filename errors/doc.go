// Package errors provides the structured error taxonomy used by the
// ambient layers of espcsi: configuration loading, sink construction and
// the message bus.
//
// The heartbeat loop itself treats its sink and delay primitive as
// infallible, so nothing on the beat path returns these errors. They
// surface at startup (bad config, unreachable NATS server) and during
// shutdown.
//
// # Categories
//
//   - Transient: a retry may succeed (bus unreachable, timeout)
//   - Permanent: a retry will not help (invalid config)
//   - Internal: unexpected failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "tick_rate must be positive")
//	wrapped := errors.Wrap(err, "loading espcsi.toml")
//	if errors.Is(wrapped, errors.ErrCodeInvalidConfig) {
//	    // exit non-zero
//	}
package errors

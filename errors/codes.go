package errors

// ErrorCategory classifies errors by their retry semantics.
type ErrorCategory string

const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryInternal indicates unexpected errors or bugs.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	return c == CategoryTransient
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

const (
	// Transient errors
	ErrCodeTimeout         ErrorCode = "TIMEOUT"          // Operation timed out
	ErrCodeBusUnavailable  ErrorCode = "BUS_UNAVAILABLE"  // Message bus unreachable
	ErrCodeSinkUnavailable ErrorCode = "SINK_UNAVAILABLE" // Output sink could not be opened

	// Permanent errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG" // Configuration value out of range
	ErrCodeConfigLoad    ErrorCode = "CONFIG_LOAD"    // Configuration file unreadable or malformed
	ErrCodeCanceled      ErrorCode = "CANCELED"       // Operation was canceled

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL" // Unexpected internal error
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeTimeout, ErrCodeBusUnavailable, ErrCodeSinkUnavailable:
		return CategoryTransient
	case ErrCodeInvalidConfig, ErrCodeConfigLoad, ErrCodeCanceled:
		return CategoryPermanent
	default:
		return CategoryInternal
	}
}

var codeDescriptions = map[ErrorCode]string{
	ErrCodeTimeout:         "operation timed out",
	ErrCodeBusUnavailable:  "message bus unavailable",
	ErrCodeSinkUnavailable: "output sink unavailable",
	ErrCodeInvalidConfig:   "invalid configuration",
	ErrCodeConfigLoad:      "configuration could not be loaded",
	ErrCodeCanceled:        "operation canceled",
	ErrCodeInternal:        "internal error",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}

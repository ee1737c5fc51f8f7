package console

import "github.com/vinayprograms/espcsi/errors"

// ErrClosed is returned by WriteLine after a sink has been closed.
var ErrClosed = errors.New(errors.ErrCodeSinkUnavailable, "console: sink closed")

// LineBreak terminates every line a sink emits.
const LineBreak = "\n"

// Writer is the sink contract shared by everything in this package.
type Writer interface {
	WriteLine(text string) error
}

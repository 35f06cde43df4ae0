package floppydump

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// FatalError marks a condition that must abort the entire acquisition run.
// Anything that is not a FatalError is contained by the per-track retry loop.
type FatalError interface {
	error
	WithMessage(message string) FatalError
	Wrap(err error) FatalError
}

type baseFatalError string

// Every fatal condition in an acquisition run is one of these. Recoverable
// probe and read failures are ordinary errors owned by the acquire package.
var ErrProtocolFault = baseFatalError("Floppy controller protocol fault")
var ErrMixedFormats = baseFatalError("Mixed sector formats within track")
var ErrRetriesExhausted = baseFatalError("Track failed to read after retrying")
var ErrDiskUnreadable = baseFatalError("Reference cylinder unreadable on either side")
var ErrUnsupportedMedium = baseFatalError("Unsupported medium and drive combination")

func (e baseFatalError) Error() string {
	return string(e)
}

func (e baseFatalError) WithMessage(message string) FatalError {
	return customFatalError{
		message:       fmt.Sprintf("%s: %s", e.Error(), message),
		originalError: e,
	}
}

func (e baseFatalError) Wrap(err error) FatalError {
	return customFatalError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customFatalError struct {
	message       string
	originalError error
}

func (e customFatalError) Error() string {
	return e.message
}

func (e customFatalError) WithMessage(message string) FatalError {
	return customFatalError{
		message:       message,
		originalError: e,
	}
}

func (e customFatalError) Wrap(err error) FatalError {
	return customFatalError{
		message:       fmt.Sprintf("%s: %s", e.message, err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customFatalError) Unwrap() error {
	return e.originalError
}

// IsFatal reports whether err, anywhere along its chain, is a FatalError.
func IsFatal(err error) bool {
	var fatal FatalError
	return errors.As(err, &fatal)
}

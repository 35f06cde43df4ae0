package floppydump_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/floppydump/floppydump"
)

func TestIsFatal__PlainErrorsAreNot(t *testing.T) {
	assert.False(t, floppydump.IsFatal(errors.New("sector unreadable")))
	assert.False(t, floppydump.IsFatal(nil))
}

func TestIsFatal__Sentinels(t *testing.T) {
	assert.True(t, floppydump.IsFatal(floppydump.ErrProtocolFault))
	assert.True(t, floppydump.IsFatal(floppydump.ErrMixedFormats))
	assert.True(t, floppydump.IsFatal(floppydump.ErrRetriesExhausted))
	assert.True(t, floppydump.IsFatal(floppydump.ErrDiskUnreadable))
	assert.True(t, floppydump.IsFatal(floppydump.ErrUnsupportedMedium))
}

func TestWithMessage__KeepsIdentity(t *testing.T) {
	err := floppydump.ErrRetriesExhausted.WithMessage("track 03.1")

	assert.True(t, floppydump.IsFatal(err))
	assert.True(t, errors.Is(err, floppydump.ErrRetriesExhausted))
	assert.Contains(t, err.Error(), "track 03.1")
	assert.Contains(t, err.Error(), floppydump.ErrRetriesExhausted.Error())
}

func TestWrap__BothCausesSurvive(t *testing.T) {
	cause := errors.New("ioctl: no such device")
	err := floppydump.ErrProtocolFault.Wrap(cause)

	assert.True(t, floppydump.IsFatal(err))
	assert.True(t, errors.Is(err, floppydump.ErrProtocolFault))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), cause.Error())
}

func TestIsFatal__SurvivesPlainWrapping(t *testing.T) {
	err := fmt.Errorf("reading cylinder 2: %w",
		floppydump.ErrMixedFormats.WithMessage("sizes 2 and 3"))
	assert.True(t, floppydump.IsFatal(err))
	assert.True(t, errors.Is(err, floppydump.ErrMixedFormats))
}

package sandbox

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tetratelabs/wazero/sys"
)

func TestExitCodeExtractsSysExitError(t *testing.T) {
	code, ok := exitCode(sys.NewExitError(7))
	assert.True(t, ok)
	assert.Equal(t, 7, code)
}

func TestExitCodeWrappedSysExitError(t *testing.T) {
	code, ok := exitCode(fmtWrap(sys.NewExitError(2)))
	assert.True(t, ok)
	assert.Equal(t, 2, code)
}

func TestExitCodeNonExitError(t *testing.T) {
	_, ok := exitCode(errors.New("trap"))
	assert.False(t, ok)
}

func fmtWrap(err error) error {
	return &wrapErr{err: err}
}

type wrapErr struct{ err error }

func (w *wrapErr) Error() string { return "wrap: " + w.err.Error() }
func (w *wrapErr) Unwrap() error { return w.err }

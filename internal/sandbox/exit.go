package sandbox

import (
	"errors"

	"github.com/tetratelabs/wazero/sys"
)

// exitCode extracts the guest's WASI exit status from err, if err is
// exactly a sys.ExitError (the normal way a WASI program signals its exit
// code rather than trapping).
func exitCode(err error) (int, bool) {
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		return int(exitErr.ExitCode()), true
	}
	return 0, false
}

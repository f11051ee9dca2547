package ffi

import (
	"github.com/c360/livebridge/errors"
)

// APIVersion is returned by GetVersion. It changes when the C contract does.
const APIVersion int32 = 1

// ReturnCode is the int result of the C functions.
type ReturnCode int32

const (
	ReturnOK             ReturnCode = 0
	ReturnError          ReturnCode = -1
	ReturnNotConnected   ReturnCode = -2
	ReturnNotInitialized ReturnCode = -3
)

// ErrCallFailed is reported by ReturnCode.Err for ReturnError.
var ErrCallFailed = errors.New("bridge call failed")

func (c ReturnCode) String() string {
	switch c {
	case ReturnOK:
		return "ok"
	case ReturnError:
		return "error"
	case ReturnNotConnected:
		return "not_connected"
	case ReturnNotInitialized:
		return "not_initialized"
	default:
		return "unknown"
	}
}

// Err converts the code back to the error it stands for.
func (c ReturnCode) Err() error {
	switch c {
	case ReturnOK:
		return nil
	case ReturnNotInitialized:
		return errors.ErrNotInitialized
	case ReturnNotConnected:
		return errors.ErrNoSource
	default:
		return ErrCallFailed
	}
}

// codeFor maps a registry error to a return code.
func codeFor(err error) ReturnCode {
	switch {
	case err == nil:
		return ReturnOK
	case errors.Is(err, errors.ErrNotInitialized):
		return ReturnNotInitialized
	case errors.Is(err, errors.ErrNoSource):
		return ReturnNotConnected
	default:
		return ReturnError
	}
}

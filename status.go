package xcall

import (
	"errors"
	"fmt"
)

// RetCode is the status a contract entry point reports to the host.
type RetCode uint32

const (
	RetSuccess RetCode = iota
	RetCalleeTrapped
	RetCalleeReverted
	RetCalleeDidNotExist
	RetInvalidArgs
	RetUnknownSelector
	RetDataTooShort
	RetOutputEncoding
)

var retCodeNames = map[RetCode]string{
	RetSuccess:           "success",
	RetCalleeTrapped:     "callee trapped",
	RetCalleeReverted:    "callee reverted",
	RetCalleeDidNotExist: "callee did not exist",
	RetInvalidArgs:       "invalid arguments",
	RetUnknownSelector:   "unknown selector",
	RetDataTooShort:      "data too short",
	RetOutputEncoding:    "output encoding failed",
}

func (c RetCode) String() string {
	if name, ok := retCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("retcode(%d)", uint32(c))
}

// Uint32 returns the code as the integer handed across the host boundary.
func (c RetCode) Uint32() uint32 {
	return uint32(c)
}

// RetCodeOf maps the error returned by Dispatch to a status code.
// RetCalleeDidNotExist is never produced here; it belongs to the host.
func RetCodeOf(err error) RetCode {
	var handlerErr *HandlerError
	switch {
	case err == nil:
		return RetSuccess
	case errors.As(err, &handlerErr):
		return RetCalleeReverted
	case errors.Is(err, ErrDataTooShort):
		return RetDataTooShort
	case errors.Is(err, ErrUnknownSelector):
		return RetUnknownSelector
	case errors.Is(err, ErrInvalidArgs):
		return RetInvalidArgs
	default:
		var encErr *EncodingError
		if errors.As(err, &encErr) {
			return RetOutputEncoding
		}
		return RetCalleeTrapped
	}
}

package x64

import (
	"fmt"

	"kestrel/internal/diag"
)

const (
	codeUnsupported   = diag.GenUnsupported
	codeUndefinedSlot = diag.GenUndefinedSlot
	codeFrameOverflow = diag.GenFrameOverflow
	codeUnknownTarget = diag.GenUnknownTarget
	codeUnknownStruct = diag.GenUnknownStruct
	codeLoopControl   = diag.GenLoopControl
	codeInternal      = diag.GenInternalFailed
)

// Error aborts generation of a whole unit.
type Error struct {
	Code diag.Code
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func errorf(code diag.Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func unsupported(what string) *Error {
	return errorf(codeUnsupported, "%s is not supported by the x86-64 backend", what)
}

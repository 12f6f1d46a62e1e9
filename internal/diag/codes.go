package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// I/O and decoding
	IOLoadFileError  Code = 1001
	IODecodeError    Code = 1002
	IOWriteFileError Code = 1003

	// Ownership verification
	SemaInfo               Code = 3000
	SemaUndefined          Code = 3001
	SemaUseAfterMove       Code = 3002
	SemaAssignImmutable    Code = 3003
	SemaBorrowImmutable    Code = 3004
	SemaUnknownField       Code = 3005
	SemaAssignMoved        Code = 3006
	SemaIllegalOutsideLoop Code = 3007

	// Code generation
	GenInfo           Code = 6000
	GenUnsupported    Code = 6001
	GenUndefinedSlot  Code = 6002
	GenFrameOverflow  Code = 6003
	GenUnknownTarget  Code = 6004
	GenUnknownStruct  Code = 6005
	GenLoopControl    Code = 6006
	GenInternalFailed Code = 6099
)

var codeDescription = map[Code]string{
	UnknownCode:            "Unknown error",
	IOLoadFileError:        "I/O load file error",
	IODecodeError:          "Malformed syntax tree",
	IOWriteFileError:       "I/O write file error",
	SemaInfo:               "Ownership information",
	SemaUndefined:          "Undefined variable",
	SemaUseAfterMove:       "Use of moved value",
	SemaAssignImmutable:    "Assignment to immutable binding",
	SemaBorrowImmutable:    "Cannot take mutable borrow of immutable value",
	SemaUnknownField:       "Unknown struct field",
	SemaAssignMoved:        "Assignment to moved binding",
	SemaIllegalOutsideLoop: "Loop control outside of a loop",
	GenInfo:                "Code generation information",
	GenUnsupported:         "Construct not supported by the code generator",
	GenUndefinedSlot:       "Variable has no stack slot",
	GenFrameOverflow:       "Stack frame too large",
	GenUnknownTarget:       "Unknown target platform",
	GenUnknownStruct:       "Unknown struct type",
	GenLoopControl:         "Loop control outside of a loop",
	GenInternalFailed:      "Internal code generator failure",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("GEN%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

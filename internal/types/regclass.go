package types

// RegClass is the ABI register class a value is passed in.
type RegClass uint8

const (
	RegNone RegClass = iota
	RegInteger
	RegSSE
	RegMemory
)

func (c RegClass) String() string {
	switch c {
	case RegInteger:
		return "integer"
	case RegSSE:
		return "sse"
	case RegMemory:
		return "memory"
	default:
		return "none"
	}
}

// RegClass returns the register class hint for passing a value of type t.
// Records larger than a word travel by address.
func (t Type) RegClass() RegClass {
	switch t.Kind {
	case KindVoid, KindNever:
		return RegNone
	case KindFloat:
		return RegSSE
	case KindBool, KindChar, KindInt, KindUint, KindRef, KindUnknown:
		return RegInteger
	default:
		return RegMemory
	}
}

// Accumulator names the sub-register of rax (or xmm0) that holds a value of t.
func (t Type) Accumulator() string {
	if t.Kind == KindFloat {
		return "xmm0"
	}
	switch t.Size() {
	case 1:
		return "al"
	case 2:
		return "ax"
	case 4:
		return "eax"
	default:
		return "rax"
	}
}

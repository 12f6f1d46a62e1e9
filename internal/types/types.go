// Package types describes runtime value shapes: their size, alignment,
// register class and copy semantics.
package types

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// Kind enumerates all supported kinds of value types.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindVoid
	KindNever
	KindBool
	KindChar
	KindInt
	KindUint
	KindFloat
	KindString
	KindArray
	KindTuple
	KindOption
	KindResult
	KindRef
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindVoid:
		return "void"
	case KindNever:
		return "never"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	case KindOption:
		return "option"
	case KindResult:
		return "result"
	case KindRef:
		return "ref"
	case KindStruct:
		return "struct"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of integers and floats.
type Width uint8

const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// ArrayDynamicLength marks arrays whose length is only known at runtime.
const ArrayDynamicLength = ^uint32(0)

// WordSize is the size of a pointer and of every stack slot.
const WordSize = 8

// Type is a structural value type descriptor.
type Type struct {
	Kind    Kind
	Width   Width  // int, uint, float
	Elem    *Type  // array element, option payload, result ok value, ref target
	ErrType *Type  // result error value
	Len     uint32 // array length or ArrayDynamicLength
	Members []Type // tuple elements or struct fields in declaration order
	Mutable bool   // ref
	Name    string // struct
}

var (
	unknown = Type{Kind: KindUnknown}
	i64     = Type{Kind: KindInt, Width: Width64}
)

func Unknown() Type            { return unknown }
func Void() Type               { return Type{Kind: KindVoid} }
func Never() Type              { return Type{Kind: KindNever} }
func Bool() Type               { return Type{Kind: KindBool} }
func Char() Type               { return Type{Kind: KindChar} }
func String() Type             { return Type{Kind: KindString} }
func Int(w Width) Type         { return Type{Kind: KindInt, Width: w} }
func Uint(w Width) Type        { return Type{Kind: KindUint, Width: w} }
func Float(w Width) Type       { return Type{Kind: KindFloat, Width: w} }
func Int64() Type              { return i64 }
func Float64() Type            { return Float(Width64) }
func Tuple(elems ...Type) Type { return Type{Kind: KindTuple, Members: elems} }
func Option(payload Type) Type { return Type{Kind: KindOption, Elem: &payload} }

func Result(ok, errType Type) Type {
	return Type{Kind: KindResult, Elem: &ok, ErrType: &errType}
}

func Array(elem Type, n uint32) Type {
	return Type{Kind: KindArray, Elem: &elem, Len: n}
}

// DynArray is an array whose length is decided at runtime.
func DynArray(elem Type) Type {
	return Array(elem, ArrayDynamicLength)
}

func Ref(target Type, mutable bool) Type {
	return Type{Kind: KindRef, Elem: &target, Mutable: mutable}
}

// Struct describes a named aggregate with the given field types.
func Struct(name string, fields ...Type) Type {
	return Type{Kind: KindStruct, Name: name, Members: fields}
}

func (t Type) elem() Type {
	if t.Elem == nil {
		return unknown
	}
	return *t.Elem
}

func (t Type) errType() Type {
	if t.ErrType == nil {
		return unknown
	}
	return *t.ErrType
}

// Size returns the byte size of a value of type t.
func (t Type) Size() uint64 {
	switch t.Kind {
	case KindVoid, KindNever:
		return 0
	case KindBool:
		return 1
	case KindChar:
		return 4
	case KindInt, KindUint, KindFloat:
		return uint64(t.Width) / 8
	case KindString:
		return 2 * WordSize // pointer + length
	case KindArray:
		if t.Len == ArrayDynamicLength {
			return 2 * WordSize // pointer + capacity
		}
		return t.elem().Size() * uint64(t.Len)
	case KindTuple, KindStruct:
		size, align := layoutMembers(t.Members)
		return alignUp(size, align)
	case KindOption:
		return WordSize + payloadSize(t.elem())
	case KindResult:
		return WordSize + max(payloadSize(t.elem()), payloadSize(t.errType()))
	case KindRef, KindUnknown:
		return WordSize
	default:
		return WordSize
	}
}

// Align returns the byte alignment of type t.
func (t Type) Align() uint64 {
	switch t.Kind {
	case KindVoid, KindNever:
		return 1
	case KindBool, KindChar, KindInt, KindUint, KindFloat:
		return t.Size()
	case KindArray:
		if t.Len == ArrayDynamicLength {
			return WordSize
		}
		return t.elem().Align()
	case KindTuple, KindStruct:
		_, align := layoutMembers(t.Members)
		return align
	default:
		return WordSize
	}
}

// Offsets returns the byte offset of each member of a tuple or struct.
func (t Type) Offsets() []uint64 {
	if t.Kind != KindTuple && t.Kind != KindStruct {
		return nil
	}
	offs := make([]uint64, len(t.Members))
	var off uint64
	for i, m := range t.Members {
		off = alignUp(off, m.Align())
		offs[i] = off
		off += m.Size()
	}
	return offs
}

// SlotSize is the stack space a value occupies, rounded up to whole words.
func (t Type) SlotSize() (int32, error) {
	size := alignUp(max(t.Size(), WordSize), WordSize)
	n, err := safecast.Conv[int32](size)
	if err != nil {
		return 0, fmt.Errorf("type %s too large for a stack slot: %w", t, err)
	}
	return n, nil
}

// IsCopy reports whether assigning a value of type t duplicates it instead of
// moving ownership. Only scalars and references qualify.
func (t Type) IsCopy() bool {
	switch t.Kind {
	case KindBool, KindChar, KindInt, KindUint, KindFloat, KindRef, KindVoid, KindNever:
		return true
	default:
		return false
	}
}

// IsFloat reports whether t lives in SSE registers.
func (t Type) IsFloat() bool { return t.Kind == KindFloat }

func (t Type) String() string {
	switch t.Kind {
	case KindInt:
		return fmt.Sprintf("int%d", t.Width)
	case KindUint:
		return fmt.Sprintf("uint%d", t.Width)
	case KindFloat:
		return fmt.Sprintf("float%d", t.Width)
	case KindArray:
		if t.Len == ArrayDynamicLength {
			return "[" + t.elem().String() + "]"
		}
		return fmt.Sprintf("[%s; %d]", t.elem(), t.Len)
	case KindTuple:
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = m.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindOption:
		return "Option<" + t.elem().String() + ">"
	case KindResult:
		return "Result<" + t.elem().String() + ", " + t.errType().String() + ">"
	case KindRef:
		if t.Mutable {
			return "&mut " + t.elem().String()
		}
		return "&" + t.elem().String()
	case KindStruct:
		return t.Name
	default:
		return t.Kind.String()
	}
}

func layoutMembers(members []Type) (size, align uint64) {
	align = 1
	for _, m := range members {
		a := m.Align()
		size = alignUp(size, a) + m.Size()
		align = max(align, a)
	}
	return size, align
}

// payloadSize is the word-rounded payload of a tagged union, at least one word.
func payloadSize(t Type) uint64 {
	return alignUp(max(t.Size(), WordSize), WordSize)
}

func alignUp(n, a uint64) uint64 {
	if a <= 1 {
		return n
	}
	return (n + a - 1) / a * a
}

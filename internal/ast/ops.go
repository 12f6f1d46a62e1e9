package ast

// BinaryOp enumerates binary operator kinds.
type BinaryOp uint8

const (
	BinaryAdd BinaryOp = iota
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryMod
	BinaryEq
	BinaryNe
	BinaryLt
	BinaryLe
	BinaryGt
	BinaryGe
	BinaryAnd
	BinaryOr
)

func (op BinaryOp) String() string {
	switch op {
	case BinaryAdd:
		return "+"
	case BinarySub:
		return "-"
	case BinaryMul:
		return "*"
	case BinaryDiv:
		return "/"
	case BinaryMod:
		return "%"
	case BinaryEq:
		return "=="
	case BinaryNe:
		return "!="
	case BinaryLt:
		return "<"
	case BinaryLe:
		return "<="
	case BinaryGt:
		return ">"
	case BinaryGe:
		return ">="
	case BinaryAnd:
		return "&&"
	case BinaryOr:
		return "||"
	default:
		return "?"
	}
}

// ParseBinaryOp is the inverse of BinaryOp.String.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for op := BinaryAdd; op <= BinaryOr; op++ {
		if op.String() == s {
			return op, true
		}
	}
	return 0, false
}

// IsComparison reports whether op produces a boolean from two operands.
func (op BinaryOp) IsComparison() bool {
	return op >= BinaryEq && op <= BinaryGe
}

// IsLogical reports whether op short-circuits.
func (op BinaryOp) IsLogical() bool {
	return op == BinaryAnd || op == BinaryOr
}

// Visibility of functions, fields and methods.
type Visibility uint8

const (
	VisPrivate Visibility = iota
	VisPublic
)

func (v Visibility) String() string {
	if v == VisPublic {
		return "pub"
	}
	return "private"
}

// BorrowMode describes how a parameter receives its argument.
type BorrowMode uint8

const (
	BorrowOwned BorrowMode = iota
	BorrowShared
	BorrowMut
)

func (m BorrowMode) String() string {
	switch m {
	case BorrowShared:
		return "&"
	case BorrowMut:
		return "&mut"
	default:
		return "owned"
	}
}

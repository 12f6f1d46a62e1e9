package ast

import "kestrel/internal/source"

// Expr is implemented by every expression node.
type Expr interface {
	exprNode()
	Span() source.Span
}

// Literals and names.
type (
	IntLit struct {
		Node
		Value int64
	}

	FloatLit struct {
		Node
		Value float64
	}

	BoolLit struct {
		Node
		Value bool
	}

	StringLit struct {
		Node
		Value string
	}

	Ident struct {
		Node
		Name string
	}
)

// Operators and assignment.
type (
	Binary struct {
		Node
		Op    BinaryOp
		Left  Expr
		Right Expr
	}

	Not struct {
		Node
		X Expr
	}

	Assign struct {
		Node
		Name  string
		Value Expr
	}

	// CompoundAssign is `Name Op= Value`.
	CompoundAssign struct {
		Node
		Name  string
		Op    BinaryOp
		Value Expr
	}

	Ternary struct {
		Node
		Cond Expr
		Then Expr
		Else Expr
	}
)

// Calls.
type (
	// Call invokes Name, or Module::Name when Module is set.
	Call struct {
		Node
		Module string
		Name   string
		Args   []Expr
	}

	MethodCall struct {
		Node
		Recv   Expr
		Method string
		Args   []Expr
	}

	Lambda struct {
		Node
		Params []string
		Body   Expr
	}
)

// Ownership.
type (
	Borrow struct {
		Node
		X       Expr
		Mutable bool
	}

	Deref struct {
		Node
		X Expr
	}
)

// Tagged unions.
type (
	SomeExpr struct {
		Node
		X Expr
	}

	NoneExpr struct {
		Node
	}

	OkExpr struct {
		Node
		X Expr
	}

	ErrExpr struct {
		Node
		X Expr
	}

	Match struct {
		Node
		X    Expr
		Arms []MatchArm
	}

	// Propagate is the postfix `?` operator.
	Propagate struct {
		Node
		X Expr
	}
)

// MatchArm pairs a pattern with the expression evaluated when it matches.
type MatchArm struct {
	Pattern Pattern
	Body    Expr
}

// Aggregates.
type (
	StructLit struct {
		Node
		Name   string
		Fields []FieldInit
	}

	FieldAccess struct {
		Node
		X     Expr
		Field string
	}

	FieldAssign struct {
		Node
		X     Expr
		Field string
		Value Expr
	}
)

// FieldInit is one `name: value` entry of a struct literal.
type FieldInit struct {
	Name  string
	Value Expr
}

// Collections.
type (
	ArrayLit struct {
		Node
		Elems []Expr
	}

	TupleLit struct {
		Node
		Elems []Expr
	}

	SetLit struct {
		Node
		Elems []Expr
	}

	DictLit struct {
		Node
		Entries []DictEntry
	}

	Index struct {
		Node
		X     Expr
		Index Expr
	}

	// Slice is X[Start:End]; either bound may be nil.
	Slice struct {
		Node
		X     Expr
		Start Expr
		End   Expr
	}

	// Comprehension covers list, set and dict comprehensions.
	// Key is set only for dict comprehensions.
	Comprehension struct {
		Node
		Kind CompKind
		Key  Expr
		Elem Expr
		Var  string
		Iter Expr
		Cond Expr
	}
)

// DictEntry is one `key: value` pair of a dict literal.
type DictEntry struct {
	Key   Expr
	Value Expr
}

// CompKind selects the collection a comprehension builds.
type CompKind uint8

const (
	CompList CompKind = iota
	CompSet
	CompDict
)

func (k CompKind) String() string {
	switch k {
	case CompSet:
		return "set"
	case CompDict:
		return "dict"
	default:
		return "list"
	}
}

func (*IntLit) exprNode()         {}
func (*FloatLit) exprNode()       {}
func (*BoolLit) exprNode()        {}
func (*StringLit) exprNode()      {}
func (*Ident) exprNode()          {}
func (*Binary) exprNode()         {}
func (*Not) exprNode()            {}
func (*Assign) exprNode()         {}
func (*CompoundAssign) exprNode() {}
func (*Ternary) exprNode()        {}
func (*Call) exprNode()           {}
func (*MethodCall) exprNode()     {}
func (*Lambda) exprNode()         {}
func (*Borrow) exprNode()         {}
func (*Deref) exprNode()          {}
func (*SomeExpr) exprNode()       {}
func (*NoneExpr) exprNode()       {}
func (*OkExpr) exprNode()         {}
func (*ErrExpr) exprNode()        {}
func (*Match) exprNode()          {}
func (*Propagate) exprNode()      {}
func (*StructLit) exprNode()      {}
func (*FieldAccess) exprNode()    {}
func (*FieldAssign) exprNode()    {}
func (*ArrayLit) exprNode()       {}
func (*TupleLit) exprNode()       {}
func (*SetLit) exprNode()         {}
func (*DictLit) exprNode()        {}
func (*Index) exprNode()          {}
func (*Slice) exprNode()          {}
func (*Comprehension) exprNode()  {}

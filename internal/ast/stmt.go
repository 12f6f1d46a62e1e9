package ast

import "kestrel/internal/source"

// Stmt is implemented by every statement node.
type Stmt interface {
	stmtNode()
	Span() source.Span
}

type (
	// PrintStmt writes a value followed by a newline to stdout.
	PrintStmt struct {
		Node
		Value Expr
	}

	LetStmt struct {
		Node
		Mutable bool
		Name    string
		Value   Expr
	}

	IfStmt struct {
		Node
		Cond Expr
		Then []Stmt
		Else []Stmt
	}

	WhileStmt struct {
		Node
		Cond Expr
		Body []Stmt
	}

	// ForStmt iterates Var over the half-open range [Start, End).
	ForStmt struct {
		Node
		Var   string
		Start Expr
		End   Expr
		Body  []Stmt
	}

	BreakStmt struct {
		Node
	}

	ContinueStmt struct {
		Node
	}

	FnStmt struct {
		Node
		Visibility Visibility
		Name       string
		Params     []Param
		Body       []Stmt
	}

	// StructStmt declares an aggregate with optional init/destroy hooks.
	StructStmt struct {
		Node
		Name    string
		Parent  string
		Fields  []Field
		Init    *Method
		Destroy *Method
		Methods []*Method
	}

	// ReturnStmt returns Value, or nothing when Value is nil.
	ReturnStmt struct {
		Node
		Value Expr
	}

	ImportStmt struct {
		Node
		Module string
	}

	ExprStmt struct {
		Node
		X Expr
	}
)

// Param is a function or method parameter.
type Param struct {
	Name   string
	Borrow BorrowMode
}

// Mutable reports whether the body may assign through the parameter.
func (p Param) Mutable() bool { return p.Borrow == BorrowMut }

// Field is a struct field declaration.
type Field struct {
	Visibility Visibility
	Mutable    bool
	Name       string
	Type       string
}

// Method is a struct method, constructor or destructor. Methods receive the
// record address as an implicit first parameter named self.
type Method struct {
	Visibility Visibility
	Name       string
	Params     []Param
	Body       []Stmt
}

// FieldIndex returns the declaration index of name, or -1.
func (s *StructStmt) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Method looks up a regular method by name.
func (s *StructStmt) Method(name string) *Method {
	for _, m := range s.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func (*PrintStmt) stmtNode()    {}
func (*LetStmt) stmtNode()      {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*ForStmt) stmtNode()      {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*FnStmt) stmtNode()       {}
func (*StructStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode()   {}
func (*ImportStmt) stmtNode()   {}
func (*ExprStmt) stmtNode()     {}

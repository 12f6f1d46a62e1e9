package ast

// Span-less constructors for building trees by hand.

func Int(v int64) *IntLit       { return &IntLit{Value: v} }
func Float(v float64) *FloatLit { return &FloatLit{Value: v} }
func Bool(v bool) *BoolLit      { return &BoolLit{Value: v} }
func Str(v string) *StringLit   { return &StringLit{Value: v} }
func Name(n string) *Ident      { return &Ident{Name: n} }
func NoneValue() *NoneExpr      { return &NoneExpr{} }
func SomeOf(x Expr) *SomeExpr   { return &SomeExpr{X: x} }
func OkOf(x Expr) *OkExpr       { return &OkExpr{X: x} }
func ErrOf(x Expr) *ErrExpr     { return &ErrExpr{X: x} }
func Ref(x Expr) *Borrow        { return &Borrow{X: x} }
func RefMut(x Expr) *Borrow     { return &Borrow{X: x, Mutable: true} }
func Print(x Expr) *PrintStmt   { return &PrintStmt{Value: x} }
func Eval(x Expr) *ExprStmt     { return &ExprStmt{X: x} }
func Return(x Expr) *ReturnStmt { return &ReturnStmt{Value: x} }
func Let(n string, v Expr) *LetStmt {
	return &LetStmt{Name: n, Value: v}
}

func LetMut(n string, v Expr) *LetStmt {
	return &LetStmt{Mutable: true, Name: n, Value: v}
}

func Set(n string, v Expr) *ExprStmt {
	return &ExprStmt{X: &Assign{Name: n, Value: v}}
}

func Bin(op BinaryOp, l, r Expr) *Binary {
	return &Binary{Op: op, Left: l, Right: r}
}

func CallOf(name string, args ...Expr) *Call {
	return &Call{Name: name, Args: args}
}

func MatchOf(x Expr, arms ...MatchArm) *Match {
	return &Match{X: x, Arms: arms}
}

func Arm(p Pattern, body Expr) MatchArm {
	return MatchArm{Pattern: p, Body: body}
}

func Lit(name string, fields ...FieldInit) *StructLit {
	return &StructLit{Name: name, Fields: fields}
}

// NewProgram wraps stmts into a Program.
func NewProgram(stmts ...Stmt) *Program {
	return &Program{Stmts: stmts}
}

// Package borrow verifies ownership rules before code generation: no use of a
// moved binding, no mutation of an immutable binding, no &mut of an immutable
// binding, and no access to fields a known struct does not declare.
//
// Checking stops at the first violation.
package borrow

import (
	"errors"

	"kestrel/internal/ast"
	"kestrel/internal/source"
	"kestrel/internal/types"
)

// aggregate records a struct's member visibility. Visibility is recorded but
// never enforced: every unit is a single module.
type aggregate struct {
	decl    *ast.StructStmt
	fields  map[string]ast.Visibility
	methods map[string]ast.Visibility
}

// Checker holds the verifier state for one program.
type Checker struct {
	scopes  scopeStack
	structs map[string]*aggregate
	fns     map[string]*ast.FnStmt
}

// NewChecker returns an empty checker.
func NewChecker() *Checker {
	return &Checker{
		scopes:  scopeStack{globals: make(map[string]*binding)},
		structs: make(map[string]*aggregate),
		fns:     make(map[string]*ast.FnStmt),
	}
}

// Check verifies prog with a fresh checker.
func Check(prog *ast.Program) error {
	return NewChecker().Check(prog)
}

// Check runs both passes over prog. It returns nil or a *Violation.
func (c *Checker) Check(prog *ast.Program) error {
	if prog == nil {
		return nil
	}
	c.register(prog.Stmts)
	for _, st := range prog.Stmts {
		if err := c.checkStmt(st); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the ownership record visible at top level for name.
func (c *Checker) Lookup(name string) (Binding, bool) {
	b := c.scopes.lookup(name)
	if b == nil {
		return Binding{}, false
	}
	return b.snapshot(), true
}

// AsViolation unwraps err into a *Violation.
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// register is the first pass: aggregates, functions and top-level bindings.
func (c *Checker) register(stmts []ast.Stmt) {
	for _, st := range stmts {
		switch s := st.(type) {
		case *ast.StructStmt:
			agg := &aggregate{
				decl:    s,
				fields:  make(map[string]ast.Visibility, len(s.Fields)),
				methods: make(map[string]ast.Visibility, len(s.Methods)+2),
			}
			for _, f := range s.Fields {
				agg.fields[f.Name] = f.Visibility
			}
			for _, m := range s.Methods {
				agg.methods[m.Name] = m.Visibility
			}
			if s.Init != nil {
				agg.methods["init"] = s.Init.Visibility
			}
			if s.Destroy != nil {
				agg.methods["destroy"] = s.Destroy.Visibility
			}
			c.structs[s.Name] = agg
		case *ast.FnStmt:
			c.fns[s.Name] = s
		}
	}
	for _, st := range stmts {
		if s, ok := st.(*ast.LetStmt); ok {
			c.scopes.globals[s.Name] = &binding{
				name:    s.Name,
				mutable: s.Mutable,
				typ:     c.staticType(s.Value),
				decl:    s.Span(),
			}
		}
	}
}

func (c *Checker) checkBlock(stmts []ast.Stmt) error {
	for _, st := range stmts {
		if err := c.checkStmt(st); err != nil {
			return err
		}
	}
	return nil
}

// scoped runs fn inside a fresh scope.
func (c *Checker) scoped(fn func() error) error {
	c.scopes.push()
	defer c.scopes.pop()
	return fn()
}

func (c *Checker) checkStmt(st ast.Stmt) error {
	switch s := st.(type) {
	case *ast.PrintStmt:
		return c.checkExpr(s.Value)
	case *ast.LetStmt:
		return c.checkLet(s)
	case *ast.IfStmt:
		if err := c.checkExpr(s.Cond); err != nil {
			return err
		}
		if err := c.scoped(func() error { return c.checkBlock(s.Then) }); err != nil {
			return err
		}
		return c.scoped(func() error { return c.checkBlock(s.Else) })
	case *ast.WhileStmt:
		if err := c.checkExpr(s.Cond); err != nil {
			return err
		}
		return c.scoped(func() error { return c.checkBlock(s.Body) })
	case *ast.ForStmt:
		if err := c.checkExpr(s.Start); err != nil {
			return err
		}
		if err := c.checkExpr(s.End); err != nil {
			return err
		}
		return c.scoped(func() error {
			c.scopes.declare(&binding{name: s.Var, typ: types.Int64(), decl: s.Span()})
			return c.checkBlock(s.Body)
		})
	case *ast.FnStmt:
		return c.scoped(func() error {
			c.declareParams(s.Params, s.Span())
			return c.checkBlock(s.Body)
		})
	case *ast.StructStmt:
		return c.checkStruct(s)
	case *ast.ReturnStmt:
		if s.Value == nil {
			return nil
		}
		return c.checkExpr(s.Value)
	case *ast.ExprStmt:
		return c.checkExpr(s.X)
	case *ast.BreakStmt, *ast.ContinueStmt, *ast.ImportStmt:
		return nil
	default:
		return nil
	}
}

func (c *Checker) checkLet(s *ast.LetStmt) error {
	if err := c.consume(s.Value); err != nil {
		return err
	}
	b := &binding{
		name:    s.Name,
		mutable: s.Mutable,
		typ:     c.staticType(s.Value),
		decl:    s.Span(),
	}
	if br, ok := s.Value.(*ast.Borrow); ok {
		b.state = Borrowed
		if br.Mutable {
			b.state = MutBorrowed
		}
		if id, ok := br.X.(*ast.Ident); ok {
			if target := c.scopes.lookup(id.Name); target != nil {
				target.addBorrower(s.Name)
			}
		}
	}
	c.scopes.declare(b)
	return nil
}

func (c *Checker) declareParams(params []ast.Param, sp source.Span) {
	for _, p := range params {
		b := &binding{name: p.Name, mutable: p.Mutable(), typ: types.Unknown(), decl: sp}
		switch p.Borrow {
		case ast.BorrowShared:
			b.state = Borrowed
			b.typ = types.Ref(types.Unknown(), false)
		case ast.BorrowMut:
			b.state = MutBorrowed
			b.typ = types.Ref(types.Unknown(), true)
		}
		c.scopes.declare(b)
	}
}

// checkStruct verifies init, destroy and every method with an implicit self.
func (c *Checker) checkStruct(s *ast.StructStmt) error {
	methods := make([]*ast.Method, 0, len(s.Methods)+2)
	if s.Init != nil {
		methods = append(methods, s.Init)
	}
	if s.Destroy != nil {
		methods = append(methods, s.Destroy)
	}
	methods = append(methods, s.Methods...)
	for _, m := range methods {
		err := c.scoped(func() error {
			c.scopes.declare(&binding{name: "self", typ: c.structType(s.Name), decl: s.Span()})
			c.declareParams(m.Params, s.Span())
			return c.checkBlock(m.Body)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

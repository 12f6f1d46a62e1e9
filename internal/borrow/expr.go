package borrow

import (
	"kestrel/internal/ast"
	"kestrel/internal/source"
)

func (c *Checker) checkExpr(e ast.Expr) error {
	switch x := e.(type) {
	case nil:
		return nil
	case *ast.IntLit, *ast.FloatLit, *ast.BoolLit, *ast.StringLit, *ast.NoneExpr:
		return nil
	case *ast.Ident:
		return c.use(x.Name, x.Span())
	case *ast.Binary:
		if err := c.checkExpr(x.Left); err != nil {
			return err
		}
		return c.checkExpr(x.Right)
	case *ast.Not:
		return c.checkExpr(x.X)
	case *ast.Ternary:
		return c.checkAll(x.Cond, x.Then, x.Else)
	case *ast.Assign:
		if err := c.consume(x.Value); err != nil {
			return err
		}
		target, err := c.assignable(x.Name, x.Span())
		if err != nil {
			return err
		}
		target.state = Owned
		return nil
	case *ast.CompoundAssign:
		if err := c.checkExpr(x.Value); err != nil {
			return err
		}
		_, err := c.assignable(x.Name, x.Span())
		return err
	case *ast.Call:
		var params []ast.Param
		if x.Module == "" {
			if fn := c.fns[x.Name]; fn != nil {
				params = fn.Params
			}
		}
		return c.checkArgs(x.Args, params)
	case *ast.MethodCall:
		if err := c.checkExpr(x.Recv); err != nil {
			return err
		}
		var params []ast.Param
		if agg := c.receiverStruct(x.Recv); agg != nil {
			if m := agg.decl.Method(x.Method); m != nil {
				params = m.Params
			}
		}
		return c.checkArgs(x.Args, params)
	case *ast.Lambda:
		return c.scoped(func() error {
			for _, p := range x.Params {
				c.scopes.declare(&binding{name: p, typ: c.staticType(nil), decl: x.Span()})
			}
			return c.checkExpr(x.Body)
		})
	case *ast.Borrow:
		if err := c.checkExpr(x.X); err != nil {
			return err
		}
		if !x.Mutable {
			return nil
		}
		if id, ok := x.X.(*ast.Ident); ok {
			if b := c.scopes.lookup(id.Name); b != nil && !b.mutable {
				return borrowImmutable(b, x.Span())
			}
		}
		return nil
	case *ast.Deref:
		return c.checkExpr(x.X)
	case *ast.SomeExpr:
		return c.consume(x.X)
	case *ast.OkExpr:
		return c.consume(x.X)
	case *ast.ErrExpr:
		return c.consume(x.X)
	case *ast.Match:
		if err := c.checkExpr(x.X); err != nil {
			return err
		}
		for _, arm := range x.Arms {
			if err := c.checkArm(arm, x.Span()); err != nil {
				return err
			}
		}
		return nil
	case *ast.Propagate:
		return c.checkExpr(x.X)
	case *ast.StructLit:
		agg := c.structs[x.Name]
		for _, f := range x.Fields {
			if agg != nil && !c.hasField(agg, f.Name) {
				return unknownField(f.Name, x.Name, x.Span())
			}
			if err := c.consume(f.Value); err != nil {
				return err
			}
		}
		return nil
	case *ast.FieldAccess:
		if err := c.checkExpr(x.X); err != nil {
			return err
		}
		return c.checkField(x.X, x.Field, x.Span())
	case *ast.FieldAssign:
		if err := c.checkExpr(x.X); err != nil {
			return err
		}
		if err := c.checkField(x.X, x.Field, x.Span()); err != nil {
			return err
		}
		return c.consume(x.Value)
	case *ast.ArrayLit:
		return c.consumeAll(x.Elems)
	case *ast.TupleLit:
		return c.consumeAll(x.Elems)
	case *ast.SetLit:
		return c.consumeAll(x.Elems)
	case *ast.DictLit:
		for _, en := range x.Entries {
			if err := c.checkExpr(en.Key); err != nil {
				return err
			}
			if err := c.consume(en.Value); err != nil {
				return err
			}
		}
		return nil
	case *ast.Index:
		return c.checkAll(x.X, x.Index)
	case *ast.Slice:
		return c.checkAll(x.X, x.Start, x.End)
	case *ast.Comprehension:
		if err := c.checkExpr(x.Iter); err != nil {
			return err
		}
		return c.scoped(func() error {
			c.scopes.declare(&binding{name: x.Var, typ: c.staticType(nil), decl: x.Span()})
			return c.checkAll(x.Cond, x.Key, x.Elem)
		})
	default:
		return nil
	}
}

func (c *Checker) checkAll(exprs ...ast.Expr) error {
	for _, e := range exprs {
		if err := c.checkExpr(e); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) consumeAll(exprs []ast.Expr) error {
	for _, e := range exprs {
		if err := c.consume(e); err != nil {
			return err
		}
	}
	return nil
}

// use checks a read of name.
func (c *Checker) use(name string, sp source.Span) error {
	b := c.scopes.lookup(name)
	if b == nil {
		return undefined(name, sp)
	}
	if b.state == Moved {
		return useAfterMove(b, sp)
	}
	return nil
}

// consume checks e as a by-value use. A bare identifier whose static type is
// known and not trivially copyable is moved.
func (c *Checker) consume(e ast.Expr) error {
	if err := c.checkExpr(e); err != nil {
		return err
	}
	id, ok := e.(*ast.Ident)
	if !ok {
		return nil
	}
	if b := c.scopes.lookup(id.Name); b != nil && movable(b) {
		b.state = Moved
	}
	return nil
}

// assignable returns the binding for name if it may be assigned.
func (c *Checker) assignable(name string, sp source.Span) (*binding, error) {
	b := c.scopes.lookup(name)
	switch {
	case b == nil:
		return nil, undefined(name, sp)
	case b.state == Moved:
		return nil, assignMoved(b, sp)
	case !b.mutable:
		return nil, assignImmutable(b, sp)
	}
	return b, nil
}

// checkArgs checks call arguments; by-value parameters consume their argument.
// Arguments beyond the known parameter list, or to unknown callees, are
// treated as by-value.
func (c *Checker) checkArgs(args []ast.Expr, params []ast.Param) error {
	for i, a := range args {
		byRef := i < len(params) && params[i].Borrow != ast.BorrowOwned
		var err error
		if byRef {
			err = c.checkExpr(a)
		} else {
			err = c.consume(a)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkArm(arm ast.MatchArm, sp source.Span) error {
	if arm.Pattern.Bind == "" {
		return c.checkExpr(arm.Body)
	}
	return c.scoped(func() error {
		c.scopes.declare(&binding{name: arm.Pattern.Bind, typ: c.staticType(nil), decl: sp})
		return c.checkExpr(arm.Body)
	})
}

// receiverStruct resolves the struct of a direct identifier receiver.
func (c *Checker) receiverStruct(recv ast.Expr) *aggregate {
	id, ok := recv.(*ast.Ident)
	if !ok {
		return nil
	}
	b := c.scopes.lookup(id.Name)
	if b == nil {
		return nil
	}
	return c.structs[structName(b.typ)]
}

func (c *Checker) checkField(recv ast.Expr, field string, sp source.Span) error {
	agg := c.receiverStruct(recv)
	if agg == nil || c.hasField(agg, field) {
		return nil
	}
	return unknownField(field, agg.decl.Name, sp)
}

// hasField searches agg and its parent chain.
func (c *Checker) hasField(agg *aggregate, field string) bool {
	seen := make(map[string]bool)
	for agg != nil && !seen[agg.decl.Name] {
		if _, ok := agg.fields[field]; ok {
			return true
		}
		seen[agg.decl.Name] = true
		agg = c.structs[agg.decl.Parent]
	}
	return false
}

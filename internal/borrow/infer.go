package borrow

import (
	"kestrel/internal/ast"
	"kestrel/internal/types"
)

// staticType infers the shape of e where that is obvious from syntax alone.
// Everything else is Unknown.
func (c *Checker) staticType(e ast.Expr) types.Type {
	switch x := e.(type) {
	case *ast.IntLit:
		return types.Int64()
	case *ast.FloatLit:
		return types.Float64()
	case *ast.BoolLit, *ast.Not:
		return types.Bool()
	case *ast.StringLit:
		return types.String()
	case *ast.Ident:
		if b := c.scopes.lookup(x.Name); b != nil {
			return b.typ
		}
	case *ast.StructLit:
		return c.structType(x.Name)
	case *ast.SomeExpr:
		return types.Option(c.staticType(x.X))
	case *ast.NoneExpr:
		return types.Option(types.Unknown())
	case *ast.OkExpr:
		return types.Result(c.staticType(x.X), types.Unknown())
	case *ast.ErrExpr:
		return types.Result(types.Unknown(), c.staticType(x.X))
	case *ast.ArrayLit:
		elem := types.Unknown()
		if len(x.Elems) > 0 {
			elem = c.staticType(x.Elems[0])
		}
		return types.DynArray(elem)
	case *ast.TupleLit:
		elems := make([]types.Type, len(x.Elems))
		for i, el := range x.Elems {
			elems[i] = c.staticType(el)
		}
		return types.Tuple(elems...)
	case *ast.Borrow:
		return types.Ref(c.staticType(x.X), x.Mutable)
	case *ast.Deref:
		if t := c.staticType(x.X); t.Kind == types.KindRef && t.Elem != nil {
			return *t.Elem
		}
	case *ast.Binary:
		if x.Op.IsComparison() || x.Op.IsLogical() {
			return types.Bool()
		}
		l, r := c.staticType(x.Left), c.staticType(x.Right)
		switch {
		case l.IsFloat() || r.IsFloat():
			return types.Float64()
		case l.Kind == types.KindInt && r.Kind == types.KindInt:
			return types.Int64()
		}
	case *ast.Ternary:
		return c.staticType(x.Then)
	}
	return types.Unknown()
}

// structType builds the descriptor for a declared struct, with untyped fields.
func (c *Checker) structType(name string) types.Type {
	agg := c.structs[name]
	if agg == nil {
		return types.Struct(name)
	}
	fields := make([]types.Type, len(agg.decl.Fields))
	for i := range fields {
		fields[i] = types.Unknown()
	}
	return types.Struct(name, fields...)
}

func structName(t types.Type) string {
	if t.Kind == types.KindStruct {
		return t.Name
	}
	return ""
}

// movable reports whether using b by value transfers ownership.
func movable(b *binding) bool {
	return b.typ.Kind != types.KindUnknown && !b.typ.IsCopy()
}

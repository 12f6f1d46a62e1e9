package astio

import (
	"fmt"

	"kestrel/internal/ast"
	"kestrel/internal/source"
)

func toWire(prog *ast.Program) (*wireFile, error) {
	f := &wireFile{Magic: magic, Version: schemaVersion}
	if prog == nil {
		return f, nil
	}
	stmts, err := encodeBlock(prog.Stmts)
	if err != nil {
		return nil, err
	}
	f.Stmts = stmts
	return f, nil
}

func spanOf(sp source.Span) *wireSpan {
	if sp.Start == 0 && sp.End == 0 {
		return nil
	}
	return &wireSpan{Start: sp.Start, End: sp.End}
}

func encodeBlock(stmts []ast.Stmt) ([]*wireNode, error) {
	if len(stmts) == 0 {
		return nil, nil
	}
	out := make([]*wireNode, len(stmts))
	for i, s := range stmts {
		n, err := encodeStmt(s)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func encodeParams(ps []ast.Param) []wireParam {
	out := make([]wireParam, len(ps))
	for i, p := range ps {
		out[i] = wireParam{Name: p.Name}
		if p.Borrow != ast.BorrowOwned {
			out[i].Borrow = p.Borrow.String()
		}
	}
	return out
}

func encodeMethod(role string, m *ast.Method) (*wireMethod, error) {
	body, err := encodeBlock(m.Body)
	if err != nil {
		return nil, err
	}
	return &wireMethod{
		Role:   role,
		Name:   m.Name,
		Public: m.Visibility == ast.VisPublic,
		Params: encodeParams(m.Params),
		Body:   body,
	}, nil
}

func encodeStmt(st ast.Stmt) (*wireNode, error) {
	n := &wireNode{Span: spanOf(st.Span())}
	var err error
	switch s := st.(type) {
	case *ast.PrintStmt:
		n.T = "print"
		n.Kids, err = encodeExprs(s.Value)
	case *ast.LetStmt:
		n.T, n.Name, n.Flag = "let", s.Name, s.Mutable
		n.Kids, err = encodeExprs(s.Value)
	case *ast.IfStmt:
		n.T = "if"
		if n.Kids, err = encodeExprs(s.Cond); err != nil {
			return nil, err
		}
		if n.Body, err = encodeBlock(s.Then); err != nil {
			return nil, err
		}
		n.Else, err = encodeBlock(s.Else)
	case *ast.WhileStmt:
		n.T = "while"
		if n.Kids, err = encodeExprs(s.Cond); err != nil {
			return nil, err
		}
		n.Body, err = encodeBlock(s.Body)
	case *ast.ForStmt:
		n.T, n.Name = "for", s.Var
		if n.Kids, err = encodeExprs(s.Start, s.End); err != nil {
			return nil, err
		}
		n.Body, err = encodeBlock(s.Body)
	case *ast.BreakStmt:
		n.T = "break"
	case *ast.ContinueStmt:
		n.T = "continue"
	case *ast.FnStmt:
		n.T, n.Name, n.Flag = "fn", s.Name, s.Visibility == ast.VisPublic
		n.Params = encodeParams(s.Params)
		n.Body, err = encodeBlock(s.Body)
	case *ast.StructStmt:
		n.T, n.Name, n.Aux = "struct", s.Name, s.Parent
		for _, f := range s.Fields {
			n.Fields = append(n.Fields, wireField{
				Name:    f.Name,
				Type:    f.Type,
				Public:  f.Visibility == ast.VisPublic,
				Mutable: f.Mutable,
			})
		}
		hooks := []struct {
			role string
			m    *ast.Method
		}{{roleInit, s.Init}, {roleDestroy, s.Destroy}}
		for _, h := range hooks {
			if h.m == nil {
				continue
			}
			wm, err := encodeMethod(h.role, h.m)
			if err != nil {
				return nil, err
			}
			n.Methods = append(n.Methods, wm)
		}
		for _, m := range s.Methods {
			wm, err := encodeMethod("", m)
			if err != nil {
				return nil, err
			}
			n.Methods = append(n.Methods, wm)
		}
	case *ast.ReturnStmt:
		n.T = "return"
		if s.Value != nil {
			n.Kids, err = encodeExprs(s.Value)
		}
	case *ast.ImportStmt:
		n.T, n.Name = "import", s.Module
	case *ast.ExprStmt:
		n.T = "expr"
		n.Kids, err = encodeExprs(s.X)
	default:
		return nil, fmt.Errorf("astio: cannot encode statement %T", st)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// encodeExprs encodes xs in order. A nil expression becomes a nil entry.
func encodeExprs(xs ...ast.Expr) ([]*wireNode, error) {
	out := make([]*wireNode, len(xs))
	for i, x := range xs {
		if x == nil {
			continue
		}
		n, err := encodeExpr(x)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func encodeExpr(x ast.Expr) (*wireNode, error) {
	n := &wireNode{Span: spanOf(x.Span())}
	var err error
	switch v := x.(type) {
	case *ast.IntLit:
		n.T, n.Int = "int", v.Value
	case *ast.FloatLit:
		n.T, n.Float = "float", v.Value
	case *ast.BoolLit:
		n.T, n.Flag = "bool", v.Value
	case *ast.StringLit:
		n.T, n.Str = "string", v.Value
	case *ast.Ident:
		n.T, n.Name = "ident", v.Name
	case *ast.Binary:
		n.T, n.Op = "binary", v.Op.String()
		n.Kids, err = encodeExprs(v.Left, v.Right)
	case *ast.Not:
		n.T = "not"
		n.Kids, err = encodeExprs(v.X)
	case *ast.Assign:
		n.T, n.Name = "assign", v.Name
		n.Kids, err = encodeExprs(v.Value)
	case *ast.CompoundAssign:
		n.T, n.Name, n.Op = "compound", v.Name, v.Op.String()
		n.Kids, err = encodeExprs(v.Value)
	case *ast.Ternary:
		n.T = "ternary"
		n.Kids, err = encodeExprs(v.Cond, v.Then, v.Else)
	case *ast.Call:
		n.T, n.Aux, n.Name = "call", v.Module, v.Name
		n.Kids, err = encodeExprs(v.Args...)
	case *ast.MethodCall:
		n.T, n.Name = "method_call", v.Method
		n.Kids, err = encodeExprs(append([]ast.Expr{v.Recv}, v.Args...)...)
	case *ast.Lambda:
		n.T = "lambda"
		for _, p := range v.Params {
			n.Params = append(n.Params, wireParam{Name: p})
		}
		n.Kids, err = encodeExprs(v.Body)
	case *ast.Borrow:
		n.T, n.Flag = "borrow", v.Mutable
		n.Kids, err = encodeExprs(v.X)
	case *ast.Deref:
		n.T = "deref"
		n.Kids, err = encodeExprs(v.X)
	case *ast.SomeExpr:
		n.T = "some"
		n.Kids, err = encodeExprs(v.X)
	case *ast.NoneExpr:
		n.T = "none"
	case *ast.OkExpr:
		n.T = "ok"
		n.Kids, err = encodeExprs(v.X)
	case *ast.ErrExpr:
		n.T = "err"
		n.Kids, err = encodeExprs(v.X)
	case *ast.Match:
		n.T = "match"
		if n.Kids, err = encodeExprs(v.X); err != nil {
			return nil, err
		}
		for _, arm := range v.Arms {
			body, err := encodeExpr(arm.Body)
			if err != nil {
				return nil, err
			}
			p := arm.Pattern
			n.Arms = append(n.Arms, wireArm{
				Pattern: wirePattern{Kind: p.Kind.String(), Bind: p.Bind, Int: p.Int, Str: p.Str},
				Body:    body,
			})
		}
	case *ast.Propagate:
		n.T = "propagate"
		n.Kids, err = encodeExprs(v.X)
	case *ast.StructLit:
		n.T, n.Name = "struct_lit", v.Name
		vals := make([]ast.Expr, len(v.Fields))
		for i, f := range v.Fields {
			n.Labels = append(n.Labels, f.Name)
			vals[i] = f.Value
		}
		n.Kids, err = encodeExprs(vals...)
	case *ast.FieldAccess:
		n.T, n.Name = "field", v.Field
		n.Kids, err = encodeExprs(v.X)
	case *ast.FieldAssign:
		n.T, n.Name = "field_assign", v.Field
		n.Kids, err = encodeExprs(v.X, v.Value)
	case *ast.ArrayLit:
		n.T = "array"
		n.Kids, err = encodeExprs(v.Elems...)
	case *ast.TupleLit:
		n.T = "tuple"
		n.Kids, err = encodeExprs(v.Elems...)
	case *ast.SetLit:
		n.T = "set"
		n.Kids, err = encodeExprs(v.Elems...)
	case *ast.DictLit:
		n.T = "dict"
		pairs := make([]ast.Expr, 0, 2*len(v.Entries))
		for _, e := range v.Entries {
			pairs = append(pairs, e.Key, e.Value)
		}
		n.Kids, err = encodeExprs(pairs...)
	case *ast.Index:
		n.T = "index"
		n.Kids, err = encodeExprs(v.X, v.Index)
	case *ast.Slice:
		n.T = "slice"
		n.Kids, err = encodeExprs(v.X, v.Start, v.End)
	case *ast.Comprehension:
		n.T, n.Aux, n.Name = "comprehension", v.Kind.String(), v.Var
		n.Kids, err = encodeExprs(v.Key, v.Elem, v.Iter, v.Cond)
	default:
		return nil, fmt.Errorf("astio: cannot encode expression %T", x)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

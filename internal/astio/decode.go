package astio

import (
	"fmt"
	"strings"

	"kestrel/internal/ast"
	"kestrel/internal/source"
)

// DecodeError locates a malformed node inside the tree.
type DecodeError struct {
	Path string // e.g. stmts[2].body[0].kids[1]
	Msg  string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return "astio: " + e.Msg
	}
	return fmt.Sprintf("astio: %s: %s", e.Path, e.Msg)
}

type decoder struct {
	file source.FileID
}

func fail(path, format string, args ...any) error {
	return &DecodeError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) program(f *wireFile) (*ast.Program, error) {
	if f.Magic != magic {
		return nil, fail("", "not a kast document (magic %q)", f.Magic)
	}
	if f.Version != schemaVersion {
		return nil, fail("", "unsupported schema version %d (want %d)", f.Version, schemaVersion)
	}
	stmts, err := d.block("stmts", f.Stmts)
	if err != nil {
		return nil, err
	}
	return &ast.Program{Stmts: stmts}, nil
}

func (d *decoder) node(n *wireNode) ast.Node {
	if n.Span == nil {
		return ast.Node{Pos: source.Span{File: d.file}}
	}
	return ast.Node{Pos: source.Span{File: d.file, Start: n.Span.Start, End: n.Span.End}}
}

func (d *decoder) block(path string, ns []*wireNode) ([]ast.Stmt, error) {
	if len(ns) == 0 {
		return nil, nil
	}
	out := make([]ast.Stmt, len(ns))
	for i, n := range ns {
		s, err := d.stmt(fmt.Sprintf("%s[%d]", path, i), n)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (d *decoder) params(path string, ps []wireParam) ([]ast.Param, error) {
	out := make([]ast.Param, len(ps))
	for i, p := range ps {
		out[i].Name = p.Name
		switch p.Borrow {
		case "", "owned":
			out[i].Borrow = ast.BorrowOwned
		case "&":
			out[i].Borrow = ast.BorrowShared
		case "&mut":
			out[i].Borrow = ast.BorrowMut
		default:
			return nil, fail(fmt.Sprintf("%s.params[%d]", path, i), "unknown borrow mode %q", p.Borrow)
		}
	}
	return out, nil
}

func visibility(public bool) ast.Visibility {
	if public {
		return ast.VisPublic
	}
	return ast.VisPrivate
}

// kids checks the child count and decodes each child. Entries listed in
// optional may be null.
func (d *decoder) kids(path string, n *wireNode, want int, optional ...int) ([]ast.Expr, error) {
	if want >= 0 && len(n.Kids) != want {
		return nil, fail(path, "%s expects %d operands, got %d", n.T, want, len(n.Kids))
	}
	out := make([]ast.Expr, len(n.Kids))
	for i, k := range n.Kids {
		kp := fmt.Sprintf("%s.kids[%d]", path, i)
		if k == nil {
			ok := false
			for _, o := range optional {
				ok = ok || o == i
			}
			if !ok {
				return nil, fail(kp, "missing operand")
			}
			continue
		}
		x, err := d.expr(kp, k)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func (d *decoder) stmt(path string, n *wireNode) (ast.Stmt, error) {
	if n == nil {
		return nil, fail(path, "null statement")
	}
	base := d.node(n)
	switch n.T {
	case "print":
		k, err := d.kids(path, n, 1)
		if err != nil {
			return nil, err
		}
		return &ast.PrintStmt{Node: base, Value: k[0]}, nil
	case "let":
		k, err := d.kids(path, n, 1)
		if err != nil {
			return nil, err
		}
		return &ast.LetStmt{Node: base, Mutable: n.Flag, Name: n.Name, Value: k[0]}, nil
	case "if":
		k, err := d.kids(path, n, 1)
		if err != nil {
			return nil, err
		}
		then, err := d.block(path+".body", n.Body)
		if err != nil {
			return nil, err
		}
		els, err := d.block(path+".else", n.Else)
		if err != nil {
			return nil, err
		}
		return &ast.IfStmt{Node: base, Cond: k[0], Then: then, Else: els}, nil
	case "while":
		k, err := d.kids(path, n, 1)
		if err != nil {
			return nil, err
		}
		body, err := d.block(path+".body", n.Body)
		if err != nil {
			return nil, err
		}
		return &ast.WhileStmt{Node: base, Cond: k[0], Body: body}, nil
	case "for":
		k, err := d.kids(path, n, 2)
		if err != nil {
			return nil, err
		}
		body, err := d.block(path+".body", n.Body)
		if err != nil {
			return nil, err
		}
		return &ast.ForStmt{Node: base, Var: n.Name, Start: k[0], End: k[1], Body: body}, nil
	case "break":
		return &ast.BreakStmt{Node: base}, nil
	case "continue":
		return &ast.ContinueStmt{Node: base}, nil
	case "fn":
		ps, err := d.params(path, n.Params)
		if err != nil {
			return nil, err
		}
		body, err := d.block(path+".body", n.Body)
		if err != nil {
			return nil, err
		}
		return &ast.FnStmt{Node: base, Visibility: visibility(n.Flag), Name: n.Name, Params: ps, Body: body}, nil
	case "struct":
		return d.structStmt(path, n, base)
	case "return":
		k, err := d.kids(path, n, -1)
		if err != nil {
			return nil, err
		}
		switch len(k) {
		case 0:
			return &ast.ReturnStmt{Node: base}, nil
		case 1:
			return &ast.ReturnStmt{Node: base, Value: k[0]}, nil
		}
		return nil, fail(path, "return takes at most one value")
	case "import":
		return &ast.ImportStmt{Node: base, Module: n.Name}, nil
	case "expr":
		k, err := d.kids(path, n, 1)
		if err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Node: base, X: k[0]}, nil
	}
	return nil, fail(path, "unknown statement kind %q", n.T)
}

func (d *decoder) structStmt(path string, n *wireNode, base ast.Node) (ast.Stmt, error) {
	s := &ast.StructStmt{Node: base, Name: n.Name, Parent: n.Aux}
	for _, f := range n.Fields {
		s.Fields = append(s.Fields, ast.Field{
			Visibility: visibility(f.Public),
			Mutable:    f.Mutable,
			Name:       f.Name,
			Type:       f.Type,
		})
	}
	for i, wm := range n.Methods {
		mp := fmt.Sprintf("%s.methods[%d]", path, i)
		if wm == nil {
			return nil, fail(mp, "null method")
		}
		ps, err := d.params(mp, wm.Params)
		if err != nil {
			return nil, err
		}
		body, err := d.block(mp+".body", wm.Body)
		if err != nil {
			return nil, err
		}
		m := &ast.Method{Visibility: visibility(wm.Public), Name: wm.Name, Params: ps, Body: body}
		switch wm.Role {
		case roleInit:
			s.Init = m
		case roleDestroy:
			s.Destroy = m
		case "":
			s.Methods = append(s.Methods, m)
		default:
			return nil, fail(mp, "unknown method role %q", wm.Role)
		}
	}
	return s, nil
}

func (d *decoder) unary(path string, n *wireNode) (ast.Expr, error) {
	k, err := d.kids(path, n, 1)
	if err != nil {
		return nil, err
	}
	return k[0], nil
}

func (d *decoder) expr(path string, n *wireNode) (ast.Expr, error) {
	base := d.node(n)
	switch n.T {
	case "int":
		return &ast.IntLit{Node: base, Value: n.Int}, nil
	case "float":
		return &ast.FloatLit{Node: base, Value: n.Float}, nil
	case "bool":
		return &ast.BoolLit{Node: base, Value: n.Flag}, nil
	case "string":
		return &ast.StringLit{Node: base, Value: n.Str}, nil
	case "ident":
		return &ast.Ident{Node: base, Name: n.Name}, nil
	case "binary":
		op, ok := ast.ParseBinaryOp(n.Op)
		if !ok {
			return nil, fail(path, "unknown operator %q", n.Op)
		}
		k, err := d.kids(path, n, 2)
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Node: base, Op: op, Left: k[0], Right: k[1]}, nil
	case "not":
		x, err := d.unary(path, n)
		return &ast.Not{Node: base, X: x}, err
	case "assign":
		x, err := d.unary(path, n)
		return &ast.Assign{Node: base, Name: n.Name, Value: x}, err
	case "compound":
		op, ok := ast.ParseBinaryOp(n.Op)
		if !ok {
			op, ok = ast.ParseBinaryOp(strings.TrimSuffix(n.Op, "="))
		}
		if !ok {
			return nil, fail(path, "unknown operator %q", n.Op)
		}
		x, err := d.unary(path, n)
		return &ast.CompoundAssign{Node: base, Name: n.Name, Op: op, Value: x}, err
	case "ternary":
		k, err := d.kids(path, n, 3)
		if err != nil {
			return nil, err
		}
		return &ast.Ternary{Node: base, Cond: k[0], Then: k[1], Else: k[2]}, nil
	case "call":
		k, err := d.kids(path, n, -1)
		return &ast.Call{Node: base, Module: n.Aux, Name: n.Name, Args: k}, err
	case "method_call":
		if len(n.Kids) == 0 {
			return nil, fail(path, "method call without receiver")
		}
		k, err := d.kids(path, n, -1)
		if err != nil {
			return nil, err
		}
		return &ast.MethodCall{Node: base, Recv: k[0], Method: n.Name, Args: k[1:]}, nil
	case "lambda":
		x, err := d.unary(path, n)
		if err != nil {
			return nil, err
		}
		l := &ast.Lambda{Node: base, Body: x}
		for _, p := range n.Params {
			l.Params = append(l.Params, p.Name)
		}
		return l, nil
	case "borrow":
		x, err := d.unary(path, n)
		return &ast.Borrow{Node: base, X: x, Mutable: n.Flag}, err
	case "deref":
		x, err := d.unary(path, n)
		return &ast.Deref{Node: base, X: x}, err
	case "some":
		x, err := d.unary(path, n)
		return &ast.SomeExpr{Node: base, X: x}, err
	case "none":
		return &ast.NoneExpr{Node: base}, nil
	case "ok":
		x, err := d.unary(path, n)
		return &ast.OkExpr{Node: base, X: x}, err
	case "err":
		x, err := d.unary(path, n)
		return &ast.ErrExpr{Node: base, X: x}, err
	case "match":
		return d.match(path, n, base)
	case "propagate":
		x, err := d.unary(path, n)
		return &ast.Propagate{Node: base, X: x}, err
	case "struct_lit":
		if len(n.Labels) != len(n.Kids) {
			return nil, fail(path, "struct literal has %d labels for %d values", len(n.Labels), len(n.Kids))
		}
		k, err := d.kids(path, n, -1)
		if err != nil {
			return nil, err
		}
		lit := &ast.StructLit{Node: base, Name: n.Name}
		for i, name := range n.Labels {
			lit.Fields = append(lit.Fields, ast.FieldInit{Name: name, Value: k[i]})
		}
		return lit, nil
	case "field":
		x, err := d.unary(path, n)
		return &ast.FieldAccess{Node: base, X: x, Field: n.Name}, err
	case "field_assign":
		k, err := d.kids(path, n, 2)
		if err != nil {
			return nil, err
		}
		return &ast.FieldAssign{Node: base, X: k[0], Field: n.Name, Value: k[1]}, nil
	case "array":
		k, err := d.kids(path, n, -1)
		return &ast.ArrayLit{Node: base, Elems: k}, err
	case "tuple":
		k, err := d.kids(path, n, -1)
		return &ast.TupleLit{Node: base, Elems: k}, err
	case "set":
		k, err := d.kids(path, n, -1)
		return &ast.SetLit{Node: base, Elems: k}, err
	case "dict":
		if len(n.Kids)%2 != 0 {
			return nil, fail(path, "dict literal has an odd number of operands")
		}
		k, err := d.kids(path, n, -1)
		if err != nil {
			return nil, err
		}
		lit := &ast.DictLit{Node: base}
		for i := 0; i < len(k); i += 2 {
			lit.Entries = append(lit.Entries, ast.DictEntry{Key: k[i], Value: k[i+1]})
		}
		return lit, nil
	case "index":
		k, err := d.kids(path, n, 2)
		if err != nil {
			return nil, err
		}
		return &ast.Index{Node: base, X: k[0], Index: k[1]}, nil
	case "slice":
		k, err := d.kids(path, n, 3, 1, 2)
		if err != nil {
			return nil, err
		}
		return &ast.Slice{Node: base, X: k[0], Start: k[1], End: k[2]}, nil
	case "comprehension":
		return d.comprehension(path, n, base)
	}
	return nil, fail(path, "unknown expression kind %q", n.T)
}

func (d *decoder) match(path string, n *wireNode, base ast.Node) (ast.Expr, error) {
	x, err := d.unary(path, n)
	if err != nil {
		return nil, err
	}
	m := &ast.Match{Node: base, X: x}
	for i, arm := range n.Arms {
		ap := fmt.Sprintf("%s.arms[%d]", path, i)
		kind, ok := parsePatternKind(arm.Pattern.Kind)
		if !ok {
			return nil, fail(ap, "unknown pattern %q", arm.Pattern.Kind)
		}
		if arm.Body == nil {
			return nil, fail(ap, "arm without body")
		}
		body, err := d.expr(ap+".body", arm.Body)
		if err != nil {
			return nil, err
		}
		p := ast.Pattern{Kind: kind, Bind: arm.Pattern.Bind, Int: arm.Pattern.Int, Str: arm.Pattern.Str}
		m.Arms = append(m.Arms, ast.Arm(p, body))
	}
	return m, nil
}

func (d *decoder) comprehension(path string, n *wireNode, base ast.Node) (ast.Expr, error) {
	var kind ast.CompKind
	switch n.Aux {
	case "", "list":
		kind = ast.CompList
	case "set":
		kind = ast.CompSet
	case "dict":
		kind = ast.CompDict
	default:
		return nil, fail(path, "unknown comprehension kind %q", n.Aux)
	}
	k, err := d.kids(path, n, 4, 0, 3)
	if err != nil {
		return nil, err
	}
	if kind == ast.CompDict && k[0] == nil {
		return nil, fail(path, "dict comprehension without key")
	}
	return &ast.Comprehension{Node: base, Kind: kind, Key: k[0], Elem: k[1], Var: n.Name, Iter: k[2], Cond: k[3]}, nil
}

func parsePatternKind(s string) (ast.PatternKind, bool) {
	switch s {
	case "_", "wildcard":
		return ast.PatWildcard, true
	case "Some":
		return ast.PatSome, true
	case "None":
		return ast.PatNone, true
	case "Ok":
		return ast.PatOk, true
	case "Err":
		return ast.PatErr, true
	case "ident":
		return ast.PatIdent, true
	case "int":
		return ast.PatInt, true
	case "string":
		return ast.PatString, true
	}
	return 0, false
}

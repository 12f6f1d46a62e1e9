package x64

import (
	"fmt"

	"kestrel/internal/ast"
	"kestrel/internal/types"
)

// lowerExpr evaluates x into rax. Float results are also left in xmm0.
func (e *Emitter) lowerExpr(x ast.Expr) error {
	if e.isFloat(x) {
		if err := e.lowerFloat(x); err != nil {
			return err
		}
		e.emit("movq rax, xmm0")
		return nil
	}
	switch v := x.(type) {
	case *ast.IntLit:
		e.emit(fmt.Sprintf("mov rax, %d", v.Value))
	case *ast.BoolLit:
		if v.Value {
			e.emit("mov rax, 1")
		} else {
			e.emit("xor eax, eax")
		}
	case *ast.StringLit:
		return e.lowerString(v)
	case *ast.Ident:
		s, err := e.fn.lookup(v.Name)
		if err != nil {
			return err
		}
		e.emit(fmt.Sprintf("mov rax, %s", mem(s.off, 0)))
	case *ast.Binary:
		return e.lowerBinary(v)
	case *ast.Not:
		if err := e.lowerExpr(v.X); err != nil {
			return err
		}
		e.emit("cmp rax, 0")
		e.emit("sete al")
		e.emit("movzx rax, al")
	case *ast.Assign:
		return e.lowerAssign(v)
	case *ast.CompoundAssign:
		return e.lowerCompoundAssign(v)
	case *ast.Ternary:
		return e.lowerTernary(v)
	case *ast.Call:
		return e.lowerCall(v)
	case *ast.MethodCall:
		return e.lowerMethodCall(v)
	case *ast.Borrow:
		if id, ok := v.X.(*ast.Ident); ok {
			s, err := e.fn.lookup(id.Name)
			if err != nil {
				return err
			}
			e.emit(fmt.Sprintf("lea rax, %s", mem(s.off, 0)))
			return nil
		}
		return e.lowerExpr(v.X)
	case *ast.Deref:
		if err := e.lowerExpr(v.X); err != nil {
			return err
		}
		e.emit("mov rax, [rax]")
	case *ast.SomeExpr:
		return e.lowerTagged(tagSome, v.X)
	case *ast.NoneExpr:
		return e.lowerTagged(tagNone, nil)
	case *ast.OkExpr:
		return e.lowerTagged(tagOk, v.X)
	case *ast.ErrExpr:
		return e.lowerTagged(tagErr, v.X)
	case *ast.Match:
		return e.lowerMatch(v)
	case *ast.Propagate:
		return e.lowerPropagate(v)
	case *ast.StructLit:
		return e.lowerStructLit(v)
	case *ast.FieldAccess:
		return e.lowerFieldAccess(v)
	case *ast.FieldAssign:
		return e.lowerFieldAssign(v)
	case *ast.ArrayLit:
		return e.lowerSequence(v.Elems)
	case *ast.TupleLit:
		return e.lowerSequence(v.Elems)
	case *ast.Index:
		return e.lowerIndex(v)
	case *ast.Slice:
		return unsupported("slicing")
	case *ast.SetLit:
		return unsupported("set literal")
	case *ast.DictLit:
		return unsupported("dict literal")
	case *ast.Comprehension:
		return unsupported(v.Kind.String() + " comprehension")
	case *ast.Lambda:
		return unsupported("lambda")
	default:
		return unsupported(fmt.Sprintf("expression %T", x))
	}
	return nil
}

// lowerString builds a {pointer, length} record for a string literal.
func (e *Emitter) lowerString(s *ast.StringLit) error {
	lbl := e.consts.str(s.Value)
	off, err := e.fn.allocType(types.String())
	if err != nil {
		return err
	}
	e.emit(fmt.Sprintf("lea rax, [rel %s]", lbl))
	e.emit(fmt.Sprintf("mov %s, rax", mem(off, 0)))
	e.emit(fmt.Sprintf("mov qword %s, %s_len - 1", mem(off, 8), lbl))
	e.emit(fmt.Sprintf("lea rax, %s", mem(off, 0)))
	return nil
}

// lowerAssign stores into name, allocating a slot on first assignment.
func (e *Emitter) lowerAssign(a *ast.Assign) error {
	kind, sname := e.staticKind(a.Value)
	if err := e.lowerExpr(a.Value); err != nil {
		return err
	}
	s, err := e.fn.bind(a.Name, kind, sname)
	if err != nil {
		return err
	}
	e.emit(fmt.Sprintf("mov %s, rax", mem(s.off, 0)))
	return nil
}

func (e *Emitter) lowerCompoundAssign(a *ast.CompoundAssign) error {
	s, err := e.fn.lookup(a.Name)
	if err != nil {
		return err
	}
	if s.kind == kindFloat || e.isFloat(a.Value) {
		return unsupported("compound assignment on floats")
	}
	if err := e.rejectString(a.Value); err != nil {
		return err
	}
	if err := e.lowerExpr(a.Value); err != nil {
		return err
	}
	e.emit("mov rbx, rax")
	e.emit(fmt.Sprintf("mov rax, %s", mem(s.off, 0)))
	if err := e.intOp(a.Op); err != nil {
		return err
	}
	e.emit(fmt.Sprintf("mov %s, rax", mem(s.off, 0)))
	return nil
}

func (e *Emitter) lowerTernary(t *ast.Ternary) error {
	elseL := e.fn.newLabel("tern_else")
	endL := e.fn.newLabel("tern_end")
	if err := e.condJump(t.Cond, elseL); err != nil {
		return err
	}
	if err := e.lowerExpr(t.Then); err != nil {
		return err
	}
	e.emit("jmp " + endL)
	e.label(elseL)
	if err := e.lowerExpr(t.Else); err != nil {
		return err
	}
	e.label(endL)
	return nil
}

// staticKind classifies x from syntax and known slot kinds. It never emits.
func (e *Emitter) staticKind(x ast.Expr) (valueKind, string) {
	switch v := x.(type) {
	case *ast.IntLit:
		return kindInt, ""
	case *ast.FloatLit:
		return kindFloat, ""
	case *ast.BoolLit, *ast.Not:
		return kindBool, ""
	case *ast.StringLit:
		return kindString, ""
	case *ast.Ident:
		if s, ok := e.fn.slots[v.Name]; ok {
			return s.kind, s.structName
		}
	case *ast.Binary:
		if v.Op.IsComparison() || v.Op.IsLogical() {
			return kindBool, ""
		}
		if e.isFloat(v) {
			return kindFloat, ""
		}
		return kindInt, ""
	case *ast.StructLit:
		return kindStruct, v.Name
	case *ast.SomeExpr, *ast.NoneExpr, *ast.OkExpr, *ast.ErrExpr:
		return kindTagged, ""
	case *ast.ArrayLit, *ast.TupleLit:
		return kindArray, ""
	case *ast.Borrow:
		return kindRef, ""
	case *ast.Ternary:
		return e.staticKind(v.Then)
	case *ast.Assign:
		return e.staticKind(v.Value)
	}
	return kindUnknown, ""
}

// rejectString fails when x is statically a string, which has no integer
// representation.
func (e *Emitter) rejectString(x ast.Expr) error {
	if k, _ := e.staticKind(x); k == kindString {
		return unsupported("a string value in an integer expression")
	}
	return nil
}

package x64

import (
	"fmt"

	"kestrel/internal/ast"
)

// isFloat is the conservative float predicate: a float literal, a float
// slot, or arithmetic with a float on either side.
func (e *Emitter) isFloat(x ast.Expr) bool {
	switch v := x.(type) {
	case *ast.FloatLit:
		return true
	case *ast.Ident:
		s, ok := e.fn.slots[v.Name]
		return ok && s.kind == kindFloat
	case *ast.Binary:
		if v.Op.IsComparison() || v.Op.IsLogical() {
			return false
		}
		return e.isFloat(v.Left) || e.isFloat(v.Right)
	}
	return false
}

var sseOp = map[ast.BinaryOp]string{
	ast.BinaryAdd: "addsd",
	ast.BinarySub: "subsd",
	ast.BinaryMul: "mulsd",
	ast.BinaryDiv: "divsd",
}

// lowerFloat evaluates x into xmm0, converting integer operands.
func (e *Emitter) lowerFloat(x ast.Expr) error {
	switch v := x.(type) {
	case *ast.FloatLit:
		e.emit(fmt.Sprintf("movsd xmm0, [rel %s]", e.consts.float(v.Value)))
		return nil
	case *ast.Ident:
		if s, ok := e.fn.slots[v.Name]; ok && s.kind == kindFloat {
			e.emit(fmt.Sprintf("movsd xmm0, %s", mem(s.off, 0)))
			return nil
		}
	case *ast.Binary:
		if !e.isFloat(v) {
			break
		}
		op, ok := sseOp[v.Op]
		if !ok {
			return unsupported("floating-point operator " + v.Op.String())
		}
		if err := e.lowerFloat(v.Left); err != nil {
			return err
		}
		e.emit("movq rax, xmm0")
		e.push("rax")
		if err := e.lowerFloat(v.Right); err != nil {
			return err
		}
		e.emit("movsd xmm1, xmm0")
		e.pop("rax")
		e.emit("movq xmm0, rax")
		e.emit(op + " xmm0, xmm1")
		return nil
	}
	if err := e.rejectString(x); err != nil {
		return err
	}
	if err := e.lowerExpr(x); err != nil {
		return err
	}
	e.emit("cvtsi2sd xmm0, rax")
	return nil
}

package x64

import (
	"kestrel/internal/ast"
)

var setcc = map[ast.BinaryOp]string{
	ast.BinaryEq: "sete",
	ast.BinaryNe: "setne",
	ast.BinaryLt: "setl",
	ast.BinaryLe: "setle",
	ast.BinaryGt: "setg",
	ast.BinaryGe: "setge",
}

// lowerBinary lowers integer arithmetic and comparisons with the accumulator
// pattern: left in rax, pushed; right in rax, moved to rbx; left popped.
func (e *Emitter) lowerBinary(b *ast.Binary) error {
	if b.Op.IsLogical() {
		return e.lowerLogical(b)
	}
	if b.Op.IsComparison() && (e.isFloat(b.Left) || e.isFloat(b.Right)) {
		return unsupported("floating-point comparison")
	}
	if err := e.rejectString(b.Left); err != nil {
		return err
	}
	if err := e.rejectString(b.Right); err != nil {
		return err
	}
	if err := e.lowerExpr(b.Left); err != nil {
		return err
	}
	e.push("rax")
	if err := e.lowerExpr(b.Right); err != nil {
		return err
	}
	e.emit("mov rbx, rax")
	e.pop("rax")
	return e.intOp(b.Op)
}

// intOp combines rax (left) and rbx (right) into rax.
func (e *Emitter) intOp(op ast.BinaryOp) error {
	switch op {
	case ast.BinaryAdd:
		e.emit("add rax, rbx")
	case ast.BinarySub:
		e.emit("sub rax, rbx")
	case ast.BinaryMul:
		e.emit("imul rax, rbx")
	case ast.BinaryDiv:
		e.emit("cqo")
		e.emit("idiv rbx")
	case ast.BinaryMod:
		e.emit("cqo")
		e.emit("idiv rbx")
		e.emit("mov rax, rdx")
	default:
		set, ok := setcc[op]
		if !ok {
			return unsupported("operator " + op.String())
		}
		e.emit("cmp rax, rbx")
		e.emit(set + " al")
		e.emit("movzx rax, al")
	}
	return nil
}

// lowerLogical short-circuits && and ||, producing 0 or 1.
func (e *Emitter) lowerLogical(b *ast.Binary) error {
	shortL := e.fn.newLabel("short")
	endL := e.fn.newLabel("logic_end")
	jump, short, long := "je", "xor eax, eax", "mov rax, 1"
	if b.Op == ast.BinaryOr {
		jump, short, long = "jne", "mov rax, 1", "xor eax, eax"
	}
	for _, side := range []ast.Expr{b.Left, b.Right} {
		if err := e.lowerExpr(side); err != nil {
			return err
		}
		e.emit("cmp rax, 0")
		e.emit(jump + " " + shortL)
	}
	e.emit(long)
	e.emit("jmp " + endL)
	e.label(shortL)
	e.emit(short)
	e.label(endL)
	return nil
}

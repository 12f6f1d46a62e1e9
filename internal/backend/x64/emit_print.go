package x64

import (
	"fmt"

	"kestrel/internal/ast"
	"kestrel/internal/consteval"
	"kestrel/internal/target"
)

// emitPrint writes the value of x followed by a newline to stdout.
func (e *Emitter) emitPrint(x ast.Expr) error {
	switch v := x.(type) {
	case *ast.StringLit:
		e.writeConst(v.Value)
		return nil
	case *ast.BoolLit:
		e.writeConst(boolText(v.Value))
		return nil
	}
	if val, ok := consteval.Fold(x); ok {
		e.writeConst(val.String())
		return nil
	}
	if e.isFloat(x) {
		return unsupported("printing a non-constant float")
	}

	kind, _ := e.staticKind(x)
	switch kind {
	case kindString:
		if err := e.lowerExpr(x); err != nil {
			return err
		}
		e.emit("mov rsi, [rax]")
		e.emit("mov rdx, [rax + 8]")
		e.write()
		e.writeNewline()
		return nil
	case kindBool:
		if err := e.lowerExpr(x); err != nil {
			return err
		}
		falseL := e.fn.newLabel("print_false")
		endL := e.fn.newLabel("print_end")
		e.emit("cmp rax, 0")
		e.emit("je " + falseL)
		e.writeConst("true")
		e.emit("jmp " + endL)
		e.label(falseL)
		e.writeConst("false")
		e.label(endL)
		return nil
	case kindStruct, kindTagged, kindArray:
		return unsupported("printing an aggregate value")
	}

	if err := e.lowerExpr(x); err != nil {
		return err
	}
	e.needItoa = true
	e.emit(fmt.Sprintf("lea rsi, [rel %s]", symItoaBuf))
	e.emit("call " + symItoa)
	e.write()
	e.writeNewline()
	return nil
}

func boolText(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// writeConst writes an interned constant; its length includes the newline.
func (e *Emitter) writeConst(s string) {
	lbl := e.consts.str(s)
	e.emit(fmt.Sprintf("lea rsi, [rel %s]", lbl))
	e.emit(fmt.Sprintf("mov rdx, %s_len", lbl))
	e.write()
}

func (e *Emitter) writeNewline() {
	e.emit(fmt.Sprintf("lea rsi, [rel %s]", symNewline))
	e.emit("mov rdx, 1")
	e.write()
}

// write emits a stdout write of rdx bytes starting at rsi.
func (e *Emitter) write() {
	switch e.conv.IO {
	case target.IOWin32:
		e.emit("mov r8, rdx")
		e.emit("mov rdx, rsi")
		e.emit(fmt.Sprintf("mov rcx, [rel %s]", symStdout))
		e.emit(fmt.Sprintf("lea r9, [rel %s]", symWritten))
		e.callWith("WriteFile", 5, func() {
			e.emit("mov qword [rsp + 32], 0")
		})
	default:
		e.emit("mov rax, 1")
		e.emit("mov rdi, 1")
		e.emit("syscall")
	}
}

// emitItoa emits the integer formatting routine. It takes the value in rax
// and the buffer in rsi, and returns the first digit in rsi and the length
// in rdx. Digits are written backwards from the end of the buffer.
func (e *Emitter) emitItoa() {
	e.label(symItoa)
	for _, ins := range []string{
		"push rbx",
		"push rcx",
		"push rdi",
		"push r8",
		fmt.Sprintf("lea rdi, [rsi + %d]", itoaBufLen),
		"mov r8, rdi",
		"xor ecx, ecx",
		"test rax, rax",
		"jns .digits",
		"neg rax",
		"mov ecx, 1",
	} {
		e.emit(ins)
	}
	e.label(".digits")
	e.emit("mov rbx, 10")
	e.label(".next")
	for _, ins := range []string{
		"xor edx, edx",
		"div rbx",
		"add dl, '0'",
		"dec rdi",
		"mov [rdi], dl",
		"test rax, rax",
		"jnz .next",
		"test ecx, ecx",
		"jz .done",
		"dec rdi",
		"mov byte [rdi], '-'",
	} {
		e.emit(ins)
	}
	e.label(".done")
	for _, ins := range []string{
		"mov rsi, rdi",
		"mov rdx, r8",
		"sub rdx, rdi",
		"pop r8",
		"pop rdi",
		"pop rcx",
		"pop rbx",
		"ret",
	} {
		e.emit(ins)
	}
}

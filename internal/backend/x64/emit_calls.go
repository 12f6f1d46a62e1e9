package x64

import (
	"fmt"

	"kestrel/internal/ast"
)

// param describes one incoming argument of a lowered function.
type param struct {
	name       string
	kind       valueKind
	structName string
}

// callWith reserves the call area (shadow space plus stack arguments, padded
// to keep rsp aligned), lets fill place arguments, and calls sym.
func (e *Emitter) callWith(sym string, nargs int, fill func()) {
	area := e.conv.CallArea(nargs)
	if e.fn.depth%2 == 1 {
		area += 8
	}
	if area > 0 {
		e.emit(fmt.Sprintf("sub rsp, %d", area))
	}
	if fill != nil {
		fill()
	}
	e.emit("call " + sym)
	if area > 0 {
		e.emit(fmt.Sprintf("add rsp, %d", area))
	}
}

// callSym calls sym whose register arguments are already loaded.
func (e *Emitter) callSym(sym string, nargs int) {
	e.callWith(sym, nargs, nil)
}

// emitCall evaluates args left to right into temporaries, then moves them
// into argument registers or outgoing stack slots and calls sym.
func (e *Emitter) emitCall(sym string, args []ast.Expr) error {
	temps := make([]int32, len(args))
	for i, a := range args {
		if err := e.lowerExpr(a); err != nil {
			return err
		}
		t, err := e.fn.temp()
		if err != nil {
			return err
		}
		e.emit(fmt.Sprintf("mov %s, rax", mem(t, 0)))
		temps[i] = t
	}
	e.callWith(sym, len(args), func() {
		for i := e.conv.RegArgs(); i < len(args); i++ {
			e.emit(fmt.Sprintf("mov rax, %s", mem(temps[i], 0)))
			e.emit(fmt.Sprintf("mov [rsp + %d], rax", e.conv.StackArgOffset(i)))
		}
		for i := 0; i < len(args) && i < e.conv.RegArgs(); i++ {
			e.emit(fmt.Sprintf("mov %s, %s", e.conv.ArgReg(i), mem(temps[i], 0)))
		}
	})
	return nil
}

func (e *Emitter) lowerCall(c *ast.Call) error {
	return e.emitCall(e.callTarget(c), c.Args)
}

// callTarget maps a call to its symbol: fn_<name> for plain calls,
// <Struct>_<name> for calls namespaced by a known struct, and an external
// <module>__<name> otherwise.
func (e *Emitter) callTarget(c *ast.Call) string {
	if c.Module == "" {
		return fnLabel(c.Name)
	}
	if _, ok := e.structs[c.Module]; ok {
		return methodLabel(c.Module, c.Name)
	}
	sym := c.Module + "__" + c.Name
	e.externs[sym] = true
	return sym
}

func (e *Emitter) lowerMethodCall(m *ast.MethodCall) error {
	sname, err := e.receiverStruct(m.Recv)
	if err != nil {
		return err
	}
	s := e.structs[sname]
	found := s.Method(m.Method) != nil ||
		(m.Method == "init" && s.Init != nil) ||
		(m.Method == "destroy" && s.Destroy != nil)
	if !found {
		return errorf(codeUnknownStruct, "struct '%s' has no method '%s'", sname, m.Method)
	}
	args := append([]ast.Expr{m.Recv}, m.Args...)
	return e.emitCall(methodLabel(sname, m.Method), args)
}

// receiverStruct resolves the declared struct of a receiver expression.
func (e *Emitter) receiverStruct(recv ast.Expr) (string, error) {
	kind, name := e.staticKind(recv)
	if kind == kindStruct {
		if _, ok := e.structs[name]; ok {
			return name, nil
		}
	}
	return "", errorf(codeUnknownStruct, "cannot resolve the struct type of the receiver")
}

func fnLabel(name string) string { return "fn_" + name }

func methodLabel(structName, method string) string { return structName + "_" + method }

// emitFunction lowers a function body inline, behind a jump so straight-line
// code never falls into it.
func (e *Emitter) emitFunction(label string, params []param, body []ast.Stmt) error {
	end := label + "_end"
	e.emit("jmp " + end)

	e.enterFrame(label, false)
	e.label(label)
	e.prologue(false)
	for i, p := range params {
		s, err := e.fn.bind(p.name, p.kind, p.structName)
		if err != nil {
			return err
		}
		if reg := e.conv.ArgReg(i); reg != "" {
			e.emit(fmt.Sprintf("mov %s, %s", mem(s.off, 0), reg))
			continue
		}
		e.emit(fmt.Sprintf("mov rax, [rbp + %d]", e.conv.ParamOffset(i)))
		e.emit(fmt.Sprintf("mov %s, rax", mem(s.off, 0)))
	}
	if err := e.emitBlock(body); err != nil {
		return err
	}
	e.drainDrops()
	e.emit("xor eax, eax")
	e.emit("leave")
	e.emit("ret")
	if err := e.leaveFrame(); err != nil {
		return err
	}
	e.label(end)
	return nil
}

func (e *Emitter) emitFn(s *ast.FnStmt) error {
	return e.emitFunction(fnLabel(s.Name), declaredParams(s.Params), s.Body)
}

// emitStruct lowers init, destroy and methods; each takes self first.
func (e *Emitter) emitStruct(s *ast.StructStmt) error {
	self := param{name: "self", kind: kindStruct, structName: s.Name}
	emitMethod := func(name string, m *ast.Method) error {
		params := append([]param{self}, declaredParams(m.Params)...)
		return e.emitFunction(methodLabel(s.Name, name), params, m.Body)
	}
	if s.Init != nil {
		if err := emitMethod("init", s.Init); err != nil {
			return err
		}
	}
	if s.Destroy != nil {
		if err := emitMethod("destroy", s.Destroy); err != nil {
			return err
		}
	}
	for _, m := range s.Methods {
		if err := emitMethod(m.Name, m); err != nil {
			return err
		}
	}
	return nil
}

func declaredParams(ps []ast.Param) []param {
	out := make([]param, len(ps))
	for i, p := range ps {
		out[i] = param{name: p.Name}
		if p.Borrow != ast.BorrowOwned {
			out[i].kind = kindRef
		}
	}
	return out
}

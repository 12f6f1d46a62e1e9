package x64

import (
	"fmt"

	"kestrel/internal/ast"
)

func (e *Emitter) emitBlock(stmts []ast.Stmt) error {
	for _, st := range stmts {
		if err := e.emitStmt(st); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitStmt(st ast.Stmt) error {
	switch s := st.(type) {
	case *ast.PrintStmt:
		return e.emitPrint(s.Value)
	case *ast.LetStmt:
		return e.emitLet(s)
	case *ast.IfStmt:
		return e.emitIf(s)
	case *ast.WhileStmt:
		return e.emitWhile(s)
	case *ast.ForStmt:
		return e.emitFor(s)
	case *ast.BreakStmt:
		l, ok := e.fn.loop()
		if !ok {
			return errorf(codeLoopControl, "break outside of a loop")
		}
		e.emit("jmp " + l.brk)
		return nil
	case *ast.ContinueStmt:
		l, ok := e.fn.loop()
		if !ok {
			return errorf(codeLoopControl, "continue outside of a loop")
		}
		e.emit("jmp " + l.cont)
		return nil
	case *ast.FnStmt:
		return e.emitFn(s)
	case *ast.StructStmt:
		return e.emitStruct(s)
	case *ast.ReturnStmt:
		return e.emitReturn(s)
	case *ast.ImportStmt:
		return nil
	case *ast.ExprStmt:
		return e.lowerExpr(s.X)
	default:
		return unsupported(fmt.Sprintf("statement %T", st))
	}
}

func (e *Emitter) emitLet(s *ast.LetStmt) error {
	kind, sname := e.staticKind(s.Value)
	if err := e.lowerExpr(s.Value); err != nil {
		return err
	}
	sl, err := e.fn.bind(s.Name, kind, sname)
	if err != nil {
		return err
	}
	e.emit(fmt.Sprintf("mov %s, rax", mem(sl.off, 0)))
	if lit, ok := s.Value.(*ast.StructLit); ok {
		return e.scheduleDrop(s.Name, lit.Name)
	}
	return nil
}

// condJump evaluates cond and jumps to target when it is false.
func (e *Emitter) condJump(cond ast.Expr, target string) error {
	if err := e.lowerExpr(cond); err != nil {
		return err
	}
	e.emit("cmp rax, 0")
	e.emit("je " + target)
	return nil
}

func (e *Emitter) emitIf(s *ast.IfStmt) error {
	elseL := e.fn.newLabel("else")
	endL := e.fn.newLabel("endif")
	if err := e.condJump(s.Cond, elseL); err != nil {
		return err
	}
	if err := e.emitBlock(s.Then); err != nil {
		return err
	}
	e.emit("jmp " + endL)
	e.label(elseL)
	if err := e.emitBlock(s.Else); err != nil {
		return err
	}
	e.label(endL)
	return nil
}

func (e *Emitter) emitWhile(s *ast.WhileStmt) error {
	startL := e.fn.newLabel("while")
	endL := e.fn.newLabel("endwhile")
	e.label(startL)
	if err := e.condJump(s.Cond, endL); err != nil {
		return err
	}
	e.fn.pushLoop(startL, endL)
	err := e.emitBlock(s.Body)
	e.fn.popLoop()
	if err != nil {
		return err
	}
	e.emit("jmp " + startL)
	e.label(endL)
	return nil
}

// emitFor lowers `for v in start..end`; the bound is evaluated once.
func (e *Emitter) emitFor(s *ast.ForStmt) error {
	if err := e.lowerExpr(s.Start); err != nil {
		return err
	}
	v, err := e.fn.bind(s.Var, kindInt, "")
	if err != nil {
		return err
	}
	e.emit(fmt.Sprintf("mov %s, rax", mem(v.off, 0)))
	if err := e.lowerExpr(s.End); err != nil {
		return err
	}
	bound, err := e.fn.temp()
	if err != nil {
		return err
	}
	e.emit(fmt.Sprintf("mov %s, rax", mem(bound, 0)))

	topL := e.fn.newLabel("for")
	stepL := e.fn.newLabel("forstep")
	endL := e.fn.newLabel("endfor")
	e.label(topL)
	e.emit(fmt.Sprintf("mov rax, %s", mem(v.off, 0)))
	e.emit(fmt.Sprintf("cmp rax, %s", mem(bound, 0)))
	e.emit("jge " + endL)
	e.fn.pushLoop(stepL, endL)
	err = e.emitBlock(s.Body)
	e.fn.popLoop()
	if err != nil {
		return err
	}
	e.label(stepL)
	e.emit(fmt.Sprintf("add qword %s, 1", mem(v.off, 0)))
	e.emit("jmp " + topL)
	e.label(endL)
	return nil
}

// emitReturn leaves the current function. Pending destructors are not run
// on this path. At top level it jumps to the program exit.
func (e *Emitter) emitReturn(s *ast.ReturnStmt) error {
	if s.Value != nil {
		if err := e.lowerExpr(s.Value); err != nil {
			return err
		}
	} else {
		e.emit("xor eax, eax")
	}
	if e.fn.entry {
		e.emit("jmp " + e.fn.exitLabel)
		return nil
	}
	e.emit("leave")
	e.emit("ret")
	return nil
}

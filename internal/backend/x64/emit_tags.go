package x64

import (
	"fmt"
	"math"

	"kestrel/internal/ast"
	"kestrel/internal/types"
)

// tag is the discriminant word of an Option/Result record. The record is
// two words: [base] holds the tag and [base+8] the payload.
type tag int64

const (
	tagNone tag = 0
	tagSome tag = 1
	tagOk   tag = 0
	tagErr  tag = 1
)

// discriminant maps a tag pattern to the value it tests for.
func discriminant(k ast.PatternKind) (tag, bool) {
	switch k {
	case ast.PatSome:
		return tagSome, true
	case ast.PatNone:
		return tagNone, true
	case ast.PatOk:
		return tagOk, true
	case ast.PatErr:
		return tagErr, true
	case ast.PatWildcard, ast.PatIdent, ast.PatInt, ast.PatString:
		return 0, false
	default:
		return 0, false
	}
}

func hasPayload(k ast.PatternKind) bool {
	return k == ast.PatSome || k == ast.PatOk || k == ast.PatErr
}

// lowerTagged allocates a tagged record on the stack and returns its address.
func (e *Emitter) lowerTagged(t tag, payload ast.Expr) error {
	if payload != nil {
		if err := e.lowerExpr(payload); err != nil {
			return err
		}
	} else {
		e.emit("xor eax, eax")
	}
	off, err := e.fn.allocType(types.Option(types.Int64()))
	if err != nil {
		return err
	}
	e.emit(fmt.Sprintf("mov qword %s, %d", mem(off, 0), t))
	e.emit(fmt.Sprintf("mov %s, rax", mem(off, 8)))
	e.emit(fmt.Sprintf("lea rax, %s", mem(off, 0)))
	return nil
}

// lowerMatch dispatches on a tagged record's discriminant, or on an integer
// value when the arms use integer literals. Arms are tried in order and a
// value that matches nothing falls through to the end.
func (e *Emitter) lowerMatch(m *ast.Match) error {
	var tags, ints bool
	for _, arm := range m.Arms {
		switch {
		case arm.Pattern.Kind == ast.PatString:
			return unsupported("string literal pattern")
		case arm.Pattern.IsTag():
			tags = true
		case arm.Pattern.Kind == ast.PatInt:
			ints = true
		}
	}
	if tags && ints {
		return unsupported("mixing tag and integer patterns in one match")
	}

	scrutKind, scrutStruct := e.staticKind(m.X)
	if err := e.lowerExpr(m.X); err != nil {
		return err
	}
	scrut, err := e.fn.temp()
	if err != nil {
		return err
	}
	e.emit(fmt.Sprintf("mov %s, rax", mem(scrut, 0)))
	if tags {
		e.emit("mov rbx, [rax]")
	} else {
		e.emit("mov rbx, rax")
	}

	endL := e.fn.newLabel("match_end")
	labels := make([]string, 0, len(m.Arms))
	catchAll := false
	for _, arm := range m.Arms {
		armL := e.fn.newLabel("arm")
		labels = append(labels, armL)
		p := arm.Pattern
		if t, ok := discriminant(p.Kind); ok {
			e.emit(fmt.Sprintf("cmp rbx, %d", t))
			e.emit("je " + armL)
			continue
		}
		if p.Kind == ast.PatInt {
			if p.Int < math.MinInt32 || p.Int > math.MaxInt32 {
				e.emit(fmt.Sprintf("mov rcx, %d", p.Int))
				e.emit("cmp rbx, rcx")
			} else {
				e.emit(fmt.Sprintf("cmp rbx, %d", p.Int))
			}
			e.emit("je " + armL)
			continue
		}
		e.emit("jmp " + armL)
		catchAll = true
		break
	}
	if !catchAll {
		e.emit("jmp " + endL)
	}

	for i, armL := range labels {
		arm := m.Arms[i]
		e.label(armL)
		switch {
		case hasPayload(arm.Pattern.Kind):
			e.emit(fmt.Sprintf("mov rax, %s", mem(scrut, 0)))
			e.emit("mov rax, [rax + 8]")
			if err := e.bindArm(arm.Pattern.Bind, kindUnknown, ""); err != nil {
				return err
			}
		case arm.Pattern.Kind == ast.PatIdent:
			e.emit(fmt.Sprintf("mov rax, %s", mem(scrut, 0)))
			if err := e.bindArm(arm.Pattern.Bind, scrutKind, scrutStruct); err != nil {
				return err
			}
		}
		if err := e.lowerExpr(arm.Body); err != nil {
			return err
		}
		e.emit("jmp " + endL)
	}
	e.label(endL)
	return nil
}

// bindArm stores rax into the arm's binding, if it has one.
func (e *Emitter) bindArm(name string, kind valueKind, structName string) error {
	if name == "" {
		return nil
	}
	s, err := e.fn.bind(name, kind, structName)
	if err != nil {
		return err
	}
	e.emit(fmt.Sprintf("mov %s, rax", mem(s.off, 0)))
	return nil
}

// lowerPropagate lowers `x?`. Both paths unwrap the payload into rax; the
// error path does not return early.
func (e *Emitter) lowerPropagate(p *ast.Propagate) error {
	if err := e.lowerExpr(p.X); err != nil {
		return err
	}
	errL := e.fn.newLabel("try_err")
	endL := e.fn.newLabel("try_end")
	e.emit("mov rbx, rax")
	e.emit("mov rcx, [rbx]")
	e.emit(fmt.Sprintf("cmp rcx, %d", tagOk))
	e.emit("jne " + errL)
	e.emit("mov rax, [rbx + 8]")
	e.emit("jmp " + endL)
	e.label(errL)
	e.emit("mov rax, [rbx + 8]")
	e.label(endL)
	return nil
}

package x64

import (
	"fmt"

	"kestrel/internal/ast"
)

// structLayout lists the field names of a struct record in storage order:
// inherited fields first, then the struct's own.
func (e *Emitter) structLayout(name string) ([]string, bool) {
	var chain []*ast.StructStmt
	seen := make(map[string]bool)
	for n := name; n != "" && !seen[n]; {
		s := e.structs[n]
		if s == nil {
			break
		}
		seen[n] = true
		chain = append(chain, s)
		n = s.Parent
	}
	if len(chain) == 0 {
		return nil, false
	}
	var fields []string
	for i := len(chain) - 1; i >= 0; i-- {
		for _, f := range chain[i].Fields {
			fields = append(fields, f.Name)
		}
	}
	return fields, true
}

func fieldOffset(layout []string, field string) (int32, bool) {
	for i, f := range layout {
		if f == field {
			return int32(i) * 8, true
		}
	}
	return 0, false
}

// lowerStructLit builds a struct record on the stack, one word per field,
// and leaves its address in rax. Fields missing from the literal are zero.
func (e *Emitter) lowerStructLit(s *ast.StructLit) error {
	layout, ok := e.structLayout(s.Name)
	if !ok {
		layout = make([]string, len(s.Fields))
		for i, f := range s.Fields {
			layout[i] = f.Name
		}
	}
	off, err := e.fn.allocWords(len(layout))
	if err != nil {
		return err
	}
	set := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		disp, ok := fieldOffset(layout, f.Name)
		if !ok {
			return errorf(codeUnknownStruct, "field '%s' does not exist on struct '%s'", f.Name, s.Name)
		}
		if err := e.lowerExpr(f.Value); err != nil {
			return err
		}
		e.emit(fmt.Sprintf("mov %s, rax", mem(off, disp)))
		set[f.Name] = true
	}
	for i, name := range layout {
		if !set[name] {
			e.emit(fmt.Sprintf("mov qword %s, 0", mem(off, int32(i)*8)))
		}
	}
	e.emit(fmt.Sprintf("lea rax, %s", mem(off, 0)))
	return nil
}

// fieldDisp resolves the byte offset of field within the record x evaluates to.
func (e *Emitter) fieldDisp(x ast.Expr, field string) (int32, error) {
	kind, sname := e.staticKind(x)
	if kind != kindStruct {
		return 0, errorf(codeUnknownStruct, "cannot resolve the struct type for field '%s'", field)
	}
	layout, ok := e.structLayout(sname)
	if !ok {
		return 0, errorf(codeUnknownStruct, "unknown struct '%s'", sname)
	}
	disp, ok := fieldOffset(layout, field)
	if !ok {
		return 0, errorf(codeUnknownStruct, "field '%s' does not exist on struct '%s'", field, sname)
	}
	return disp, nil
}

func (e *Emitter) lowerFieldAccess(f *ast.FieldAccess) error {
	disp, err := e.fieldDisp(f.X, f.Field)
	if err != nil {
		return err
	}
	if err := e.lowerExpr(f.X); err != nil {
		return err
	}
	e.emit(fmt.Sprintf("mov rax, [rax + %d]", disp))
	return nil
}

// lowerFieldAssign stores the value into the field and leaves it in rax.
func (e *Emitter) lowerFieldAssign(f *ast.FieldAssign) error {
	disp, err := e.fieldDisp(f.X, f.Field)
	if err != nil {
		return err
	}
	if err := e.lowerExpr(f.Value); err != nil {
		return err
	}
	t, err := e.fn.temp()
	if err != nil {
		return err
	}
	e.emit(fmt.Sprintf("mov %s, rax", mem(t, 0)))
	if err := e.lowerExpr(f.X); err != nil {
		return err
	}
	e.emit(fmt.Sprintf("mov rbx, %s", mem(t, 0)))
	e.emit(fmt.Sprintf("mov [rax + %d], rbx", disp))
	e.emit("mov rax, rbx")
	return nil
}

// lowerSequence builds an array or tuple record: the length word followed by
// one word per element.
func (e *Emitter) lowerSequence(elems []ast.Expr) error {
	off, err := e.fn.allocWords(len(elems) + 1)
	if err != nil {
		return err
	}
	e.emit(fmt.Sprintf("mov qword %s, %d", mem(off, 0), len(elems)))
	for i, el := range elems {
		if err := e.lowerExpr(el); err != nil {
			return err
		}
		e.emit(fmt.Sprintf("mov %s, rax", mem(off, int32(i+1)*8)))
	}
	e.emit(fmt.Sprintf("lea rax, %s", mem(off, 0)))
	return nil
}

// lowerIndex loads element i of a sequence record. Indices are not bounds
// checked.
func (e *Emitter) lowerIndex(ix *ast.Index) error {
	if err := e.lowerExpr(ix.X); err != nil {
		return err
	}
	e.push("rax")
	if err := e.lowerExpr(ix.Index); err != nil {
		return err
	}
	e.emit("mov rbx, rax")
	e.pop("rax")
	e.emit("mov rax, [rax + rbx*8 + 8]")
	return nil
}

package x64

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"kestrel/internal/ast"
	"kestrel/internal/target"
)

func generate(t *testing.T, p target.Platform, stmts ...ast.Stmt) string {
	t.Helper()
	out, err := Generate(ast.NewProgram(stmts...), p)
	if err != nil {
		t.Fatalf("generate for %s: %v", p, err)
	}
	return out
}

func generateErr(t *testing.T, code any, stmts ...ast.Stmt) *Error {
	t.Helper()
	_, err := Generate(ast.NewProgram(stmts...), target.SysV)
	if err == nil {
		t.Fatalf("expected a generation error")
	}
	var ge *Error
	if !errors.As(err, &ge) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if code != nil && any(ge.Code) != code {
		t.Fatalf("expected code %v, got %v: %s", code, ge.Code, ge.Msg)
	}
	return ge
}

func lines(asm string) []string {
	out := strings.Split(asm, "\n")
	for i, l := range out {
		out[i] = strings.TrimSpace(l)
	}
	return out
}

func indexOf(ls []string, want string) int {
	for i, l := range ls {
		if l == want {
			return i
		}
	}
	return -1
}

func TestPrintFoldedConstant(t *testing.T) {
	asm := generate(t, target.SysV, ast.Print(ast.Bin(ast.BinaryAdd, ast.Int(2), ast.Int(2))))
	if !strings.Contains(asm, `msg0: db "4", 0xA`) {
		t.Fatalf("folded constant missing from data section:\n%s", asm)
	}
	if strings.Contains(asm, "call "+symItoa) {
		t.Fatalf("constant print should not need itoa:\n%s", asm)
	}
	for _, want := range []string{"global _start", "_start:", "syscall", "mov rax, 60"} {
		if !strings.Contains(asm, want) {
			t.Fatalf("missing %q:\n%s", want, asm)
		}
	}
}

func TestPrintFoldedFloat(t *testing.T) {
	asm := generate(t, target.SysV, ast.Print(ast.Bin(ast.BinaryMul, ast.Float(1.5), ast.Int(2))))
	if !strings.Contains(asm, `db "3.00", 0xA`) && !strings.Contains(asm, `db "3", 0xA`) {
		t.Fatalf("folded float missing:\n%s", asm)
	}
}

func TestPrintVariableUsesItoa(t *testing.T) {
	asm := generate(t, target.SysV,
		ast.Let("x", ast.Int(3)),
		ast.Print(ast.Name("x")),
	)
	for _, want := range []string{"call " + symItoa, symItoa + ":", symItoaBuf + ": times 32 db 0", "mov [rbp - 8], rax"} {
		if !strings.Contains(asm, want) {
			t.Fatalf("missing %q:\n%s", want, asm)
		}
	}
}

func TestDestructorsRunInReverseBeforeExit(t *testing.T) {
	res := &ast.StructStmt{
		Name:    "Res",
		Fields:  []ast.Field{{Name: "v"}},
		Destroy: &ast.Method{Name: "destroy"},
	}
	asm := generate(t, target.Windows,
		res,
		ast.Let("a", ast.Lit("Res", ast.FieldInit{Name: "v", Value: ast.Int(1)})),
		ast.Let("b", ast.Lit("Res", ast.FieldInit{Name: "v", Value: ast.Int(2)})),
	)
	ls := lines(asm)
	var offs []int
	last := -1
	for i, l := range ls {
		if l != "call Res_destroy" {
			continue
		}
		last = i
		for j := i - 1; j >= 0; j-- {
			if rest, ok := strings.CutPrefix(ls[j], "mov rcx, [rbp - "); ok {
				n, err := strconv.Atoi(strings.TrimSuffix(rest, "]"))
				if err != nil {
					t.Fatalf("bad operand %q", ls[j])
				}
				offs = append(offs, n)
				break
			}
		}
	}
	if len(offs) != 2 {
		t.Fatalf("expected 2 destructor calls, got %d:\n%s", len(offs), asm)
	}
	if offs[0] <= offs[1] {
		t.Fatalf("destructors not in reverse declaration order: %v", offs)
	}
	if exit := indexOf(ls, "call ExitProcess"); exit < last {
		t.Fatalf("ExitProcess (%d) precedes the last destructor (%d)", exit, last)
	}
}

func TestSkippedBranchDoesNotDestroy(t *testing.T) {
	res := &ast.StructStmt{
		Name:    "Res",
		Fields:  []ast.Field{{Name: "v"}},
		Destroy: &ast.Method{Name: "destroy"},
	}
	asm := generate(t, target.SysV,
		res,
		&ast.IfStmt{
			Cond: ast.Bool(false),
			Then: []ast.Stmt{ast.Let("a", ast.Lit("Res", ast.FieldInit{Name: "v", Value: ast.Int(1)}))},
		},
	)
	ls := lines(asm)
	call := indexOf(ls, "call Res_destroy")
	if call < 0 {
		t.Fatalf("missing destructor call:\n%s", asm)
	}
	guard := -1
	var slotRef string
	for i := call - 1; i >= 0; i-- {
		if rest, ok := strings.CutPrefix(ls[i], "cmp qword "); ok {
			guard, slotRef = i, strings.TrimSuffix(rest, ", 0")
			break
		}
	}
	if guard < 0 || !strings.HasPrefix(ls[guard+1], "je ") {
		t.Fatalf("destructor call is not guarded:\n%s", asm)
	}
	skip := strings.TrimPrefix(ls[guard+1], "je ") + ":"
	if at := indexOf(ls, skip); at <= call {
		t.Fatalf("skip label %q should follow the call (at %d, call %d)", skip, at, call)
	}
	zero := indexOf(ls, "mov qword "+slotRef+", 0")
	branch := indexOf(ls, "je _start_else_0")
	if zero < 0 || branch < 0 || zero > branch {
		t.Fatalf("drop slot %s must be zeroed before the branch (zero %d, branch %d):\n%s", slotRef, zero, branch, asm)
	}
	frame := indexOf(ls, "_start:")
	for frame >= 0 && !strings.HasPrefix(ls[frame], "sub rsp, ") {
		frame++
	}
	if frame < 0 || frame+1 != zero {
		t.Fatalf("drop slot should be zeroed right after the frame is reserved:\n%s", asm)
	}
}

func TestStructWithoutDestroyHasNoDrop(t *testing.T) {
	asm := generate(t, target.SysV,
		&ast.StructStmt{Name: "P", Fields: []ast.Field{{Name: "x"}, {Name: "y"}}},
		ast.Let("p", ast.Lit("P", ast.FieldInit{Name: "y", Value: ast.Int(9)})),
		ast.Print(&ast.FieldAccess{X: ast.Name("p"), Field: "y"}),
	)
	if strings.Contains(asm, "_destroy") {
		t.Fatalf("unexpected destructor call:\n%s", asm)
	}
	if !strings.Contains(asm, "mov rax, [rax + 8]") {
		t.Fatalf("field y should load at +8:\n%s", asm)
	}
}

func TestInheritedFieldsComeFirst(t *testing.T) {
	asm := generate(t, target.SysV,
		&ast.StructStmt{Name: "Base", Fields: []ast.Field{{Name: "id"}}},
		&ast.StructStmt{Name: "Child", Parent: "Base", Fields: []ast.Field{{Name: "n"}}},
		ast.Let("c", ast.Lit("Child", ast.FieldInit{Name: "n", Value: ast.Int(1)})),
		ast.Print(&ast.FieldAccess{X: ast.Name("c"), Field: "id"}),
	)
	if !strings.Contains(asm, "mov rax, [rax + 0]") {
		t.Fatalf("inherited field should load at +0:\n%s", asm)
	}
}

func TestMatchOkTakesOkArm(t *testing.T) {
	asm := generate(t, target.SysV,
		ast.Print(ast.MatchOf(ast.OkOf(ast.Int(5)),
			ast.Arm(ast.Pattern{Kind: ast.PatOk, Bind: "v"}, ast.Name("v")),
			ast.Arm(ast.Pattern{Kind: ast.PatErr, Bind: "e"}, ast.Int(0)),
		)),
	)
	ls := lines(asm)
	i := indexOf(ls, "cmp rbx, 0")
	if i < 0 || !strings.HasPrefix(ls[i+1], "je ") {
		t.Fatalf("missing Ok dispatch:\n%s", asm)
	}
	okArm := strings.TrimPrefix(ls[i+1], "je ")
	at := indexOf(ls, okArm+":")
	if at < 0 || ls[at+2] != "mov rax, [rax + 8]" {
		t.Fatalf("Ok arm should load the payload:\n%s", asm)
	}
	if indexOf(ls, "cmp rbx, 1") < 0 {
		t.Fatalf("missing Err dispatch:\n%s", asm)
	}
}

func TestSomeBindsPayload(t *testing.T) {
	asm := generate(t, target.SysV,
		ast.Let("o", ast.SomeOf(ast.Int(42))),
		ast.Print(ast.MatchOf(ast.Name("o"),
			ast.Arm(ast.Pattern{Kind: ast.PatSome, Bind: "x"}, ast.Name("x")),
			ast.Arm(ast.Pattern{Kind: ast.PatNone}, ast.Int(0)),
		)),
	)
	for _, want := range []string{"mov rax, 42", "mov qword [rbp - 16], 1", "mov [rbp - 8], rax", "mov rbx, [rax]"} {
		if !strings.Contains(asm, want) {
			t.Fatalf("missing %q:\n%s", want, asm)
		}
	}
}

func TestNoneArmDoesNotReadPayload(t *testing.T) {
	asm := generate(t, target.SysV,
		ast.Print(ast.MatchOf(ast.NoneValue(),
			ast.Arm(ast.Pattern{Kind: ast.PatNone}, ast.Int(7)),
			ast.Arm(ast.Pattern{Kind: ast.PatWildcard}, ast.Int(8)),
		)),
	)
	if strings.Contains(asm, "[rax + 8]") {
		t.Fatalf("None/wildcard arms must not read a payload:\n%s", asm)
	}
	if !strings.Contains(asm, "mov qword [rbp - 16], 0") {
		t.Fatalf("None tag not stored:\n%s", asm)
	}
}

func TestPropagateUnwrapsBothPaths(t *testing.T) {
	asm := generate(t, target.SysV, ast.Print(&ast.Propagate{X: ast.ErrOf(ast.Int(3))}))
	if got := strings.Count(asm, "mov rax, [rbx + 8]"); got != 2 {
		t.Fatalf("expected payload unwrap on both paths, got %d:\n%s", got, asm)
	}
}

func TestIntegerMatch(t *testing.T) {
	asm := generate(t, target.SysV,
		ast.Let("n", ast.Int(2)),
		ast.Print(ast.MatchOf(ast.Name("n"),
			ast.Arm(ast.Pattern{Kind: ast.PatInt, Int: 1}, ast.Int(10)),
			ast.Arm(ast.Pattern{Kind: ast.PatInt, Int: 2}, ast.Int(20)),
		)),
	)
	if !strings.Contains(asm, "cmp rbx, 2") || !strings.Contains(asm, "mov rbx, rax") {
		t.Fatalf("integer dispatch missing:\n%s", asm)
	}
}

func TestABIParity(t *testing.T) {
	prog := []ast.Stmt{
		ast.Print(ast.Str("hi")),
		ast.Print(ast.Bin(ast.BinaryAdd, ast.Int(1), ast.Int(2))),
		ast.Let("x", ast.Int(3)),
		ast.Print(ast.Name("x")),
		ast.Print(ast.Bool(true)),
	}
	win := generate(t, target.Windows, prog...)
	sysv := generate(t, target.SysV, prog...)

	msgs := func(asm string) []string {
		var out []string
		for _, l := range lines(asm) {
			if strings.HasPrefix(l, "msg") {
				out = append(out, l)
			}
		}
		return out
	}
	w, s := msgs(win), msgs(sysv)
	if strings.Join(w, "\n") != strings.Join(s, "\n") {
		t.Fatalf("data sections differ:\n%v\n%v", w, s)
	}
	if strings.Count(win, "call "+symItoa) != strings.Count(sysv, "call "+symItoa) {
		t.Fatalf("itoa call count differs")
	}
	if strings.Count(win, "call WriteFile") != strings.Count(sysv, "syscall")-1 {
		t.Fatalf("write count differs between platforms")
	}
}

func TestWindowsStartupAndShadowSpace(t *testing.T) {
	asm := generate(t, target.Windows, ast.Print(ast.Str("hi")))
	for _, want := range []string{
		"global main", "extern GetStdHandle", "extern WriteFile", "extern ExitProcess",
		"mov rcx, -11", "call GetStdHandle", "sub rsp, 48", "mov qword [rsp + 32], 0",
		"kx_stdout: dq 0", "and rsp, -16",
	} {
		if !strings.Contains(asm, want) {
			t.Fatalf("missing %q:\n%s", want, asm)
		}
	}
}

func TestSysVHasNoExterns(t *testing.T) {
	asm := generate(t, target.SysV, ast.Print(ast.Str("hi")))
	if strings.Contains(asm, "extern ") || strings.Contains(asm, "kx_stdout") {
		t.Fatalf("SysV listing should be self-contained:\n%s", asm)
	}
}

func TestFrameSizeIsPatched(t *testing.T) {
	asm := generate(t, target.SysV, ast.Let("x", ast.Int(1)))
	if !strings.Contains(asm, "sub rsp, 16") || strings.Contains(asm, "sub rsp, 0\n") {
		t.Fatalf("frame size not patched:\n%s", asm)
	}
}

func TestFunctionLabels(t *testing.T) {
	add := &ast.FnStmt{
		Name:   "add",
		Params: []ast.Param{{Name: "a"}, {Name: "b"}},
		Body:   []ast.Stmt{ast.Return(ast.Bin(ast.BinaryAdd, ast.Name("a"), ast.Name("b")))},
	}
	asm := generate(t, target.Windows, add, ast.Print(ast.CallOf("add", ast.Int(1), ast.Int(2))))
	for _, want := range []string{"jmp fn_add_end", "fn_add:", "fn_add_end:", "call fn_add", "mov [rbp - 8], rcx", "mov [rbp - 16], rdx", "leave"} {
		if !strings.Contains(asm, want) {
			t.Fatalf("missing %q:\n%s", want, asm)
		}
	}
	sysv := generate(t, target.SysV, add, ast.Print(ast.CallOf("add", ast.Int(1), ast.Int(2))))
	if !strings.Contains(sysv, "mov [rbp - 8], rdi") || !strings.Contains(sysv, "mov [rbp - 16], rsi") {
		t.Fatalf("SysV params not spilled from rdi/rsi:\n%s", sysv)
	}
}

func TestStackArguments(t *testing.T) {
	params := make([]ast.Param, 7)
	args := make([]ast.Expr, 7)
	for i := range params {
		params[i] = ast.Param{Name: "p" + strconv.Itoa(i)}
		args[i] = ast.Int(int64(i))
	}
	fn := &ast.FnStmt{Name: "many", Params: params, Body: []ast.Stmt{ast.Return(ast.Name("p6"))}}

	win := generate(t, target.Windows, fn, ast.Eval(ast.CallOf("many", args...)))
	for _, want := range []string{"mov rax, [rbp + 48]", "mov [rsp + 32], rax", "mov [rsp + 48], rax"} {
		if !strings.Contains(win, want) {
			t.Fatalf("windows: missing %q:\n%s", want, win)
		}
	}
	sysv := generate(t, target.SysV, fn, ast.Eval(ast.CallOf("many", args...)))
	for _, want := range []string{"mov rax, [rbp + 16]", "mov [rsp + 0], rax", "sub rsp, 16"} {
		if !strings.Contains(sysv, want) {
			t.Fatalf("sysv: missing %q:\n%s", want, sysv)
		}
	}
}

func TestExternalCall(t *testing.T) {
	asm := generate(t, target.SysV, ast.Eval(&ast.Call{Module: "io", Name: "flush"}))
	if !strings.Contains(asm, "extern io__flush") || !strings.Contains(asm, "call io__flush") {
		t.Fatalf("external symbol missing:\n%s", asm)
	}
}

func TestLoops(t *testing.T) {
	asm := generate(t, target.SysV,
		&ast.ForStmt{Var: "i", Start: ast.Int(0), End: ast.Int(3), Body: []ast.Stmt{
			&ast.IfStmt{Cond: ast.Bin(ast.BinaryEq, ast.Name("i"), ast.Int(1)), Then: []ast.Stmt{&ast.ContinueStmt{}}},
			ast.Print(ast.Name("i")),
		}},
		&ast.WhileStmt{Cond: ast.Bool(true), Body: []ast.Stmt{&ast.BreakStmt{}}},
	)
	for _, want := range []string{"jge _start_endfor_", "jmp _start_forstep_", "add qword [rbp - 8], 1", "jmp _start_endwhile_"} {
		if !strings.Contains(asm, want) {
			t.Fatalf("missing %q:\n%s", want, asm)
		}
	}
}

func TestFloatComparisonUnsupported(t *testing.T) {
	generateErr(t, codeUnsupported, ast.Print(ast.Bin(ast.BinaryLt, ast.Float(1.5), ast.Float(2))))
}

func TestNonConstantFloatPrintUnsupported(t *testing.T) {
	ge := generateErr(t, codeUnsupported,
		ast.Let("f", ast.Float(1.5)),
		ast.Print(ast.Name("f")),
	)
	if !strings.Contains(ge.Msg, "float") {
		t.Fatalf("unexpected message %q", ge.Msg)
	}
}

func TestStringInArithmeticUnsupported(t *testing.T) {
	generateErr(t, codeUnsupported, ast.Print(ast.Bin(ast.BinaryAdd, ast.Str("a"), ast.Int(1))))
}

func TestUndefinedSlot(t *testing.T) {
	ge := generateErr(t, codeUndefinedSlot, ast.Print(ast.Name("ghost")))
	if !strings.Contains(ge.Msg, "ghost") {
		t.Fatalf("unexpected message %q", ge.Msg)
	}
}

func TestTopLevelBindingNotVisibleInFunction(t *testing.T) {
	generateErr(t, codeUndefinedSlot,
		ast.Let("g", ast.Int(1)),
		&ast.FnStmt{Name: "f", Body: []ast.Stmt{ast.Print(ast.Name("g"))}},
	)
}

func TestUseBeforeTopLevelLetHasNoSlot(t *testing.T) {
	ge := generateErr(t, codeUndefinedSlot,
		ast.Print(ast.Name("late")),
		ast.Let("late", ast.Int(1)),
	)
	if !strings.Contains(ge.Msg, "late") {
		t.Fatalf("unexpected message %q", ge.Msg)
	}
}

func TestLoopControlOutsideLoop(t *testing.T) {
	generateErr(t, codeLoopControl, &ast.BreakStmt{})
	generateErr(t, codeLoopControl, &ast.ContinueStmt{})
}

func TestUnknownMethod(t *testing.T) {
	generateErr(t, codeUnknownStruct,
		&ast.StructStmt{Name: "S"},
		ast.Let("s", ast.Lit("S")),
		ast.Eval(&ast.MethodCall{Recv: ast.Name("s"), Method: "nope"}),
	)
}

func TestUnsupportedCollections(t *testing.T) {
	generateErr(t, codeUnsupported, ast.Eval(&ast.SetLit{}))
	generateErr(t, codeUnsupported, ast.Eval(&ast.Lambda{}))
}

func TestUnknownPlatform(t *testing.T) {
	_, err := Generate(ast.NewProgram(), target.Platform(99))
	var ge *Error
	if !errors.As(err, &ge) || ge.Code != codeUnknownTarget {
		t.Fatalf("expected unknown target error, got %v", err)
	}
}

func TestNasmBytes(t *testing.T) {
	if got := nasmBytes("a\"b\n"); got != `"a", 0x22, "b", 0xA` {
		t.Fatalf("nasmBytes = %s", got)
	}
	if got := nasmBytes(""); got != "0" {
		t.Fatalf("empty nasmBytes = %s", got)
	}
}

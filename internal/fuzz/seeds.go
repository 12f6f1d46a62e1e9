package fuzztests

import (
	"testing"

	"kestrel/internal/ast"
	"kestrel/internal/astio"
)

const maxFuzzInput = 1 << 16 // 64 KiB

func seedPrograms() []*ast.Program {
	res := &ast.StructStmt{
		Name:    "Res",
		Fields:  []ast.Field{{Name: "v"}},
		Destroy: &ast.Method{Name: "destroy", Body: []ast.Stmt{ast.Print(ast.Str("drop"))}},
	}
	return []*ast.Program{
		ast.NewProgram(),
		ast.NewProgram(ast.Print(ast.Str("hello, world"))),
		ast.NewProgram(ast.Let("x", ast.Int(10)), ast.Set("x", ast.Int(20))),
		ast.NewProgram(ast.LetMut("x", ast.Int(1)), ast.Let("r", ast.RefMut(ast.Name("x"))), ast.Print(ast.Name("x"))),
		ast.NewProgram(
			res,
			ast.Let("a", ast.Lit("Res", ast.FieldInit{Name: "v", Value: ast.Int(1)})),
			ast.Let("b", ast.Name("a")),
			ast.Print(&ast.FieldAccess{X: ast.Name("a"), Field: "v"}),
		),
		ast.NewProgram(ast.Print(ast.MatchOf(ast.SomeOf(ast.Int(4)),
			ast.Arm(ast.Pattern{Kind: ast.PatSome, Bind: "v"}, ast.Name("v")),
			ast.Arm(ast.Pattern{Kind: ast.PatNone}, ast.Int(0)),
		))),
		ast.NewProgram(
			&ast.FnStmt{Name: "f", Params: []ast.Param{{Name: "n", Borrow: ast.BorrowMut}}, Body: []ast.Stmt{
				&ast.WhileStmt{Cond: ast.Bin(ast.BinaryGt, ast.Name("n"), ast.Int(0)), Body: []ast.Stmt{&ast.BreakStmt{}}},
				ast.Return(ast.Name("n")),
			}},
			ast.Print(ast.CallOf("f", ast.Int(3))),
		),
		ast.NewProgram(ast.Print(ast.Bin(ast.BinaryDiv, ast.Float(1), ast.Int(3)))),
	}
}

// addSeeds registers every seed program in both interchange formats.
func addSeeds(f *testing.F) {
	for _, prog := range seedPrograms() {
		for _, format := range []astio.Format{astio.FormatMsgpack, astio.FormatJSON} {
			data, err := astio.Marshal(prog, format)
			if err != nil {
				f.Fatalf("seed: %v", err)
			}
			f.Add(data, format == astio.FormatJSON)
		}
	}
	f.Add([]byte{}, false)
	f.Add([]byte(`{"magic":"kast","version":1,"stmts":[{"t":"print"}]}`), true)
}

func clamp(input []byte) []byte {
	if len(input) > maxFuzzInput {
		input = input[:maxFuzzInput]
	}
	return append([]byte(nil), input...)
}

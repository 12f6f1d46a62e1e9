package x64

import (
	"testing"

	"kestrel/internal/ast"
	"kestrel/internal/target"
	"kestrel/internal/testkit"
)

func sampleProgram() []ast.Stmt {
	counter := &ast.StructStmt{
		Name:    "Counter",
		Fields:  []ast.Field{{Name: "n"}},
		Destroy: &ast.Method{Name: "destroy", Body: []ast.Stmt{ast.Print(ast.Str("bye"))}},
		Methods: []*ast.Method{{
			Name: "bump",
			Body: []ast.Stmt{ast.Return(ast.Bin(ast.BinaryAdd, &ast.FieldAccess{X: ast.Name("self"), Field: "n"}, ast.Int(1)))},
		}},
	}
	sum := &ast.FnStmt{
		Name:   "sum",
		Params: []ast.Param{{Name: "a"}, {Name: "b"}},
		Body: []ast.Stmt{
			ast.LetMut("t", ast.Int(0)),
			&ast.ForStmt{Var: "i", Start: ast.Name("a"), End: ast.Name("b"), Body: []ast.Stmt{
				ast.Eval(&ast.CompoundAssign{Name: "t", Op: ast.BinaryAdd, Value: ast.Name("i")}),
			}},
			ast.Return(ast.Name("t")),
		},
	}
	return []ast.Stmt{
		counter,
		sum,
		ast.Let("c", ast.Lit("Counter", ast.FieldInit{Name: "n", Value: ast.Int(1)})),
		ast.Print(&ast.MethodCall{Recv: ast.Name("c"), Method: "bump"}),
		ast.Print(ast.CallOf("sum", ast.Int(1), ast.Int(4))),
		ast.Let("r", ast.OkOf(ast.Int(3))),
		ast.Print(ast.MatchOf(ast.Name("r"),
			ast.Arm(ast.Pattern{Kind: ast.PatOk, Bind: "v"}, ast.Name("v")),
			ast.Arm(ast.Pattern{Kind: ast.PatErr, Bind: "e"}, ast.Int(0)),
		)),
		ast.Print(&ast.Propagate{X: ast.Name("r")}),
		ast.LetMut("k", ast.Int(0)),
		&ast.WhileStmt{Cond: ast.Bin(ast.BinaryLt, ast.Name("k"), ast.Int(3)), Body: []ast.Stmt{
			ast.Eval(&ast.CompoundAssign{Name: "k", Op: ast.BinaryAdd, Value: ast.Int(1)}),
			&ast.IfStmt{Cond: ast.Bin(ast.BinaryEq, ast.Name("k"), ast.Int(2)), Then: []ast.Stmt{&ast.ContinueStmt{}}},
		}},
		ast.Print(ast.Bin(ast.BinaryAdd, ast.Float(1.5), ast.Int(2))),
		ast.Print(ast.Str("done")),
	}
}

func TestListingInvariants(t *testing.T) {
	for _, p := range []target.Platform{target.Windows, target.SysV} {
		asm := generate(t, p, sampleProgram()...)
		if err := testkit.CheckListing(asm); err != nil {
			t.Fatalf("%s listing is malformed: %v\n%s", p, err, asm)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	first := generate(t, target.SysV, sampleProgram()...)
	for range 3 {
		if again := generate(t, target.SysV, sampleProgram()...); again != first {
			t.Fatalf("generation is not deterministic")
		}
	}
}

package consteval

import (
	"math"
	"testing"

	"kestrel/internal/ast"
)

func TestFoldIntegers(t *testing.T) {
	cases := []struct {
		expr ast.Expr
		want string
	}{
		{ast.Bin(ast.BinaryAdd, ast.Int(2), ast.Int(2)), "4"},
		{ast.Bin(ast.BinarySub, ast.Int(2), ast.Int(5)), "-3"},
		{ast.Bin(ast.BinaryMul, ast.Int(6), ast.Bin(ast.BinaryAdd, ast.Int(3), ast.Int(4))), "42"},
		{ast.Bin(ast.BinaryDiv, ast.Int(7), ast.Int(2)), "3"},
		{ast.Int(-17), "-17"},
	}
	for _, c := range cases {
		v, ok := Fold(c.expr)
		if !ok {
			t.Fatalf("expected %v to fold", c.expr)
		}
		if v.IsFloat || v.String() != c.want {
			t.Errorf("fold = %s (float=%v), want %s", v, v.IsFloat, c.want)
		}
	}
}

func TestFoldFloats(t *testing.T) {
	v, ok := Fold(ast.Bin(ast.BinaryAdd, ast.Float(1.5), ast.Int(2)))
	if !ok || !v.IsFloat || v.String() != "3.5" {
		t.Fatalf("1.5 + 2 = %v (%v)", v, ok)
	}
	v, ok = Fold(ast.Bin(ast.BinaryDiv, ast.Float(10), ast.Int(4)))
	if !ok || v.String() != "2.5" {
		t.Fatalf("10.0 / 4 = %v (%v)", v, ok)
	}
}

func TestFoldRejects(t *testing.T) {
	rejects := []ast.Expr{
		ast.Bin(ast.BinaryDiv, ast.Int(1), ast.Int(0)),
		ast.Bin(ast.BinaryDiv, ast.Float(1), ast.Float(0)),
		ast.Bin(ast.BinaryAdd, ast.Name("x"), ast.Int(1)),
		ast.Bin(ast.BinaryMod, ast.Int(5), ast.Int(2)),
		ast.Bin(ast.BinaryLt, ast.Int(1), ast.Int(2)),
		ast.Bin(ast.BinaryAdd, ast.Int(math.MaxInt64), ast.Int(1)),
		ast.Bin(ast.BinaryMul, ast.Int(math.MaxInt64), ast.Int(2)),
		ast.Str("4"),
	}
	for _, e := range rejects {
		if v, ok := Fold(e); ok {
			t.Errorf("%#v folded to %v", e, v)
		}
	}
}

func TestFormatFloat(t *testing.T) {
	cases := map[float64]string{
		3.0:        "3",
		0.5:        "0.5",
		3.14159:    "3.14159",
		2.25:       "2.25",
		0.1 + 0.2:  "0.3",
		-1.125:     "-1.125",
		10:         "10",
		1.0 / 3.0:  "0.333333",
		0.00001:    "0",
		123.456789: "123.456789",
	}
	for in, want := range cases {
		if got := FormatFloat(in); got != want {
			t.Errorf("FormatFloat(%v) = %q, want %q", in, got, want)
		}
	}
	if got := FormatFloatPrecise(0.125); got != "0.125" {
		t.Errorf("FormatFloatPrecise = %q", got)
	}
}

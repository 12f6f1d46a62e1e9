// Package consteval folds literal-only arithmetic at compile time.
package consteval

import (
	"math"
	"strconv"
	"strings"

	"kestrel/internal/ast"
)

// Value is a folded numeric constant.
type Value struct {
	IsFloat bool
	Int     int64
	Float   float64
}

// AsFloat returns v widened to float64.
func (v Value) AsFloat() float64 {
	if v.IsFloat {
		return v.Float
	}
	return float64(v.Int)
}

// String renders v the way print shows it.
func (v Value) String() string {
	if v.IsFloat {
		return FormatFloat(v.Float)
	}
	return strconv.FormatInt(v.Int, 10)
}

// Fold evaluates e when it is built only from numeric literals and + - * /.
// Integer operands keep integer semantics; a float on either side makes the
// result a float. Division by zero and integer overflow are not folded.
func Fold(e ast.Expr) (Value, bool) {
	switch x := e.(type) {
	case *ast.IntLit:
		return Value{Int: x.Value}, true
	case *ast.FloatLit:
		return Value{IsFloat: true, Float: x.Value}, true
	case *ast.Binary:
		l, ok := Fold(x.Left)
		if !ok {
			return Value{}, false
		}
		r, ok := Fold(x.Right)
		if !ok {
			return Value{}, false
		}
		if l.IsFloat || r.IsFloat {
			return foldFloat(x.Op, l.AsFloat(), r.AsFloat())
		}
		return foldInt(x.Op, l.Int, r.Int)
	}
	return Value{}, false
}

func foldInt(op ast.BinaryOp, a, b int64) (Value, bool) {
	var (
		n  int64
		ok = true
	)
	switch op {
	case ast.BinaryAdd:
		n = a + b
		ok = (b >= 0) == (n >= a)
	case ast.BinarySub:
		n = a - b
		ok = (b >= 0) == (n <= a)
	case ast.BinaryMul:
		if a != 0 && b != 0 {
			n = a * b
			ok = n/b == a && !(a == -1 && b == math.MinInt64) && !(b == -1 && a == math.MinInt64)
		}
	case ast.BinaryDiv:
		if b == 0 || (a == math.MinInt64 && b == -1) {
			return Value{}, false
		}
		n = a / b
	default:
		return Value{}, false
	}
	if !ok {
		return Value{}, false
	}
	return Value{Int: n}, true
}

func foldFloat(op ast.BinaryOp, a, b float64) (Value, bool) {
	var f float64
	switch op {
	case ast.BinaryAdd:
		f = a + b
	case ast.BinarySub:
		f = a - b
	case ast.BinaryMul:
		f = a * b
	case ast.BinaryDiv:
		if b == 0 {
			return Value{}, false
		}
		f = a / b
	default:
		return Value{}, false
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Value{}, false
	}
	return Value{IsFloat: true, Float: f}, true
}

// FormatFloat prints f with at most two decimals when that loses less than
// 1e-4, otherwise with at most six, dropping trailing zeros.
func FormatFloat(f float64) string {
	r2 := math.Round(f*100) / 100
	if math.Abs(f-r2) < 0.0001 {
		if s := trimZeros(strconv.FormatFloat(r2, 'f', 2, 64)); s != "" {
			return s
		}
	}
	r6 := math.Round(f*1_000_000) / 1_000_000
	if _, frac := math.Modf(r6); math.Abs(frac) < 0.0001 {
		return strconv.FormatFloat(r6, 'f', 0, 64)
	}
	return trimZeros(strconv.FormatFloat(r6, 'f', 6, 64))
}

// FormatFloatPrecise keeps up to fifteen decimals.
func FormatFloatPrecise(f float64) string {
	return trimZeros(strconv.FormatFloat(f, 'f', 15, 64))
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	return strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
}

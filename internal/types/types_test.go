package types

import "testing"

func TestSizes(t *testing.T) {
	cases := []struct {
		ty    Type
		size  uint64
		align uint64
	}{
		{Int(Width8), 1, 1},
		{Uint(Width16), 2, 2},
		{Int(Width32), 4, 4},
		{Int64(), 8, 8},
		{Float(Width32), 4, 4},
		{Float64(), 8, 8},
		{Bool(), 1, 1},
		{Char(), 4, 4},
		{String(), 16, 8},
		{Array(Int(Width32), 3), 12, 4},
		{DynArray(Int64()), 16, 8},
		{Tuple(Bool(), Int64()), 16, 8},
		{Tuple(Int(Width8), Int(Width16)), 4, 2},
		{Option(Int64()), 16, 8},
		{Option(Bool()), 16, 8},
		{Option(String()), 24, 8},
		{Result(Int64(), String()), 24, 8},
		{Ref(String(), true), 8, 8},
		{Void(), 0, 1},
		{Never(), 0, 1},
		{Unknown(), 8, 8},
		{Struct("P", Int64(), Int64()), 16, 8},
	}
	for _, c := range cases {
		if got := c.ty.Size(); got != c.size {
			t.Errorf("%s: size %d, want %d", c.ty, got, c.size)
		}
		if got := c.ty.Align(); got != c.align {
			t.Errorf("%s: align %d, want %d", c.ty, got, c.align)
		}
	}
}

func TestIsCopy(t *testing.T) {
	copyable := []Type{Int64(), Uint(Width8), Float64(), Bool(), Char(), Ref(String(), false)}
	for _, ty := range copyable {
		if !ty.IsCopy() {
			t.Errorf("%s should be copy", ty)
		}
	}
	moved := []Type{String(), DynArray(Int64()), Option(Int64()), Result(Int64(), Int64()), Struct("S"), Unknown()}
	for _, ty := range moved {
		if ty.IsCopy() {
			t.Errorf("%s should not be copy", ty)
		}
	}
}

func TestRegClassAndAccumulator(t *testing.T) {
	if Float64().RegClass() != RegSSE || Float64().Accumulator() != "xmm0" {
		t.Fatalf("float64 should use sse/xmm0")
	}
	if Int(Width16).Accumulator() != "ax" || Int(Width32).Accumulator() != "eax" {
		t.Fatalf("unexpected narrow accumulators")
	}
	if String().RegClass() != RegMemory {
		t.Fatalf("string should be passed in memory")
	}
	if Void().RegClass() != RegNone {
		t.Fatalf("void should have no register class")
	}
}

func TestSlotSizeAndOffsets(t *testing.T) {
	n, err := Bool().SlotSize()
	if err != nil || n != 8 {
		t.Fatalf("bool slot: %d, %v", n, err)
	}
	n, err = Option(String()).SlotSize()
	if err != nil || n != 24 {
		t.Fatalf("option slot: %d, %v", n, err)
	}
	offs := Tuple(Int(Width8), Int64(), Int(Width32)).Offsets()
	want := []uint64{0, 8, 16}
	for i := range want {
		if offs[i] != want[i] {
			t.Fatalf("offsets: got %v want %v", offs, want)
		}
	}
	if _, err := Array(Int64(), ArrayDynamicLength-1).SlotSize(); err == nil {
		t.Fatalf("expected overflow error for huge array")
	}
}

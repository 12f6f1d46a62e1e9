package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kestrel/internal/ast"
	"kestrel/internal/astio"
	"kestrel/internal/backend/x64"
	"kestrel/internal/borrow"
	"kestrel/internal/diag"
	"kestrel/internal/observ"
	"kestrel/internal/target"
)

func writeUnit(t *testing.T, dir, name string, prog *ast.Program) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	data, err := astio.Marshal(prog, astio.FormatForPath(name))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func goodProgram() *ast.Program {
	return ast.NewProgram(
		ast.Let("x", ast.Int(2)),
		ast.Print(ast.Bin(ast.BinaryAdd, ast.Name("x"), ast.Int(2))),
	)
}

func immutableProgram() *ast.Program {
	return ast.NewProgram(ast.Let("x", ast.Int(10)), ast.Set("x", ast.Int(20)))
}

func firstCode(t *testing.T, u *Unit) diag.Code {
	t.Helper()
	if u == nil || u.Bag.Len() == 0 {
		t.Fatalf("expected diagnostics for %+v", u)
	}
	return u.Bag.Items()[0].Code
}

func TestCompile(t *testing.T) {
	asm, err := Compile(context.Background(), goodProgram(), target.SysV)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(asm, "_start:") {
		t.Fatalf("unexpected listing:\n%s", asm)
	}
}

func TestCompileStopsAfterViolation(t *testing.T) {
	asm, err := Compile(context.Background(), immutableProgram(), target.Windows)
	if _, ok := borrow.AsViolation(err); !ok {
		t.Fatalf("expected a violation, got %v", err)
	}
	if asm != "" {
		t.Fatalf("no assembly expected after a failed verification")
	}
}

func TestCompileForwardReferenceFailsInGeneration(t *testing.T) {
	prog := ast.NewProgram(ast.Print(ast.Name("late")), ast.Let("late", ast.Int(1)))
	_, err := Compile(context.Background(), prog, target.SysV)
	if _, ok := borrow.AsViolation(err); ok {
		t.Fatalf("verification should accept hoisted top-level lets: %v", err)
	}
	var ge *x64.Error
	if !errors.As(err, &ge) || ge.Code != diag.GenUndefinedSlot {
		t.Fatalf("expected %s from generation, got %v", diag.GenUndefinedSlot, err)
	}
}

func TestRunBuild(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	good := writeUnit(t, dir, "good.kast", goodProgram())
	jsonUnit := writeUnit(t, dir, "other.kast.json", ast.NewProgram(ast.Print(ast.Str("hi"))))
	bad := writeUnit(t, dir, "bad.kast", immutableProgram())

	rec := &Recorder{}
	timer := observ.NewTimer()
	_, units, err := Run(context.Background(), []string{good, jsonUnit, bad}, ModeBuild, Options{
		Platform: target.SysV,
		OutDir:   out,
		Jobs:     2,
		Sink:     rec,
		Timer:    timer,
	})
	if err != nil {
		t.Fatal(err)
	}
	if units[0].Failed() || units[1].Failed() {
		t.Fatalf("good units failed: %v %v", units[0].Bag.Items(), units[1].Bag.Items())
	}
	for _, u := range units[:2] {
		data, err := os.ReadFile(u.OutPath)
		if err != nil {
			t.Fatalf("missing output: %v", err)
		}
		if string(data) != u.Asm {
			t.Fatalf("written assembly differs from unit result")
		}
	}
	if units[1].OutPath != filepath.Join(out, "other.asm") {
		t.Fatalf("unexpected output path %s", units[1].OutPath)
	}
	if code := firstCode(t, units[2]); code != diag.SemaAssignImmutable {
		t.Fatalf("expected %s, got %s", diag.SemaAssignImmutable, code)
	}
	if _, err := os.Stat(filepath.Join(out, "bad.asm")); !os.IsNotExist(err) {
		t.Fatalf("failed unit must not produce output")
	}
	if !Failed(units) {
		t.Fatalf("Failed should report the bad unit")
	}

	var queued, done, failed int
	for _, ev := range rec.Events() {
		switch ev.Status {
		case StatusQueued:
			queued++
		case StatusDone:
			done++
		case StatusError:
			failed++
			if ev.File != bad || ev.Stage != StageVerify {
				t.Fatalf("unexpected error event %+v", ev)
			}
		}
	}
	if queued != 3 || done != 2 || failed != 1 {
		t.Fatalf("events: queued=%d done=%d error=%d", queued, done, failed)
	}
	if len(timer.Report().Phases) == 0 {
		t.Fatalf("timer recorded no phases")
	}
}

func TestRunCheckWritesNothing(t *testing.T) {
	dir := t.TempDir()
	good := writeUnit(t, dir, "good.kast", goodProgram())
	_, units, err := Run(context.Background(), []string{good}, ModeCheck, Options{Platform: target.SysV})
	if err != nil {
		t.Fatal(err)
	}
	if units[0].Failed() || units[0].Asm != "" {
		t.Fatalf("check should verify only: %+v", units[0])
	}
	if _, err := os.Stat(filepath.Join(dir, "good.asm")); !os.IsNotExist(err) {
		t.Fatalf("check must not write assembly")
	}
}

func TestRunReportsLoadDecodeAndCodegenErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.kast.json")
	if err := os.WriteFile(garbage, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	floaty := writeUnit(t, dir, "floaty.kast", ast.NewProgram(
		ast.Let("f", ast.Float(1.5)),
		ast.Print(ast.Name("f")),
	))
	missing := filepath.Join(dir, "missing.kast")

	fs, units, err := Run(context.Background(), []string{garbage, floaty, missing}, ModeBuild, Options{Platform: target.Windows})
	if err != nil {
		t.Fatal(err)
	}
	if code := firstCode(t, units[0]); code != diag.IODecodeError {
		t.Fatalf("garbage: got %s", code)
	}
	if code := firstCode(t, units[1]); code != diag.GenUnsupported {
		t.Fatalf("floaty: got %s", code)
	}
	if code := firstCode(t, units[2]); code != diag.IOLoadFileError {
		t.Fatalf("missing: got %s", code)
	}
	if fs.Path(units[1].File) != filepath.ToSlash(filepath.Clean(floaty)) {
		t.Fatalf("unit file not registered: %s", fs.Path(units[1].File))
	}
	if bag := Merge(units, 0); bag.Len() != 3 {
		t.Fatalf("merged bag has %d diagnostics", bag.Len())
	}
}

func TestRunUsesCache(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewDiskCache(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	good := writeUnit(t, dir, "good.kast", goodProgram())
	opts := Options{Platform: target.SysV, Cache: cache}

	_, first, err := Run(context.Background(), []string{good}, ModeBuild, opts)
	if err != nil {
		t.Fatal(err)
	}
	_, second, err := Run(context.Background(), []string{good}, ModeBuild, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first[0].Cached || !second[0].Cached {
		t.Fatalf("expected miss then hit, got %v then %v", first[0].Cached, second[0].Cached)
	}
	if first[0].Asm != second[0].Asm {
		t.Fatalf("cached assembly differs")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, units, err := Run(ctx, []string{"a.kast"}, ModeCheck, Options{})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	if !Failed(units) {
		t.Fatalf("a unit that never ran counts as failed")
	}
}

func TestOutputPath(t *testing.T) {
	src := filepath.Join("src", "a", "main.kast")
	cases := []struct{ out, root, src, want string }{
		{"", "", filepath.Join("src", "a.kast"), filepath.Join("src", "a.asm")},
		{"build", "src", filepath.Join("src", "b.kast.json"), filepath.Join("build", "b.asm")},
		{"build", "", "c.bin", filepath.Join("build", "c.bin.asm")},
		{"build", "src", src, filepath.Join("build", "a", "main.asm")},
		{"build", filepath.Join("src", "b"), src, filepath.Join("build", "main.asm")},
	}
	for _, tc := range cases {
		if got := OutputPath(tc.out, tc.root, tc.src); got != tc.want {
			t.Fatalf("OutputPath(%q, %q, %q) = %q, want %q", tc.out, tc.root, tc.src, got, tc.want)
		}
	}
}

func TestOutputPathsKeepNestedSourcesApart(t *testing.T) {
	paths := []string{
		filepath.Join("src", "a", "main.kast"),
		filepath.Join("src", "b", "main.kast"),
	}
	outs, err := OutputPaths("build", paths)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join("build", "a", "main.asm"),
		filepath.Join("build", "b", "main.asm"),
	}
	if strings.Join(outs, "|") != strings.Join(want, "|") {
		t.Fatalf("OutputPaths = %v, want %v", outs, want)
	}
}

func TestOutputPathsRejectCollisions(t *testing.T) {
	for _, outDir := range []string{"", "build"} {
		paths := []string{filepath.Join("src", "main.kast"), filepath.Join("src", "main.kast.json")}
		if _, err := OutputPaths(outDir, paths); !errors.Is(err, ErrOutputCollision) {
			t.Fatalf("out dir %q: expected a collision, got %v", outDir, err)
		}
	}
}

func TestRunBuildsNestedUnitsSeparately(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	a := writeUnit(t, filepath.Join(dir, "a"), "main.kast", ast.NewProgram(ast.Print(ast.Int(1))))
	b := writeUnit(t, filepath.Join(dir, "b"), "main.kast", ast.NewProgram(ast.Print(ast.Int(2))))

	_, units, err := Run(context.Background(), []string{a, b}, ModeBuild, Options{Platform: target.SysV, OutDir: out})
	if err != nil {
		t.Fatal(err)
	}
	if units[0].OutPath == units[1].OutPath {
		t.Fatalf("both units wrote %s", units[0].OutPath)
	}
	for _, u := range units {
		data, err := os.ReadFile(u.OutPath)
		if err != nil {
			t.Fatalf("missing output: %v", err)
		}
		if string(data) != u.Asm {
			t.Fatalf("%s holds another unit's assembly", u.OutPath)
		}
	}

	clash := writeUnit(t, filepath.Join(dir, "a"), "main.kast.json", ast.NewProgram(ast.Print(ast.Int(3))))
	rec := &Recorder{}
	_, _, err = Run(context.Background(), []string{a, clash}, ModeBuild, Options{Platform: target.SysV, OutDir: out, Sink: rec})
	if !errors.Is(err, ErrOutputCollision) {
		t.Fatalf("expected a collision, got %v", err)
	}
	if len(rec.Events()) != 0 {
		t.Fatalf("no unit should start after a collision: %+v", rec.Events())
	}
	if _, _, err := Run(context.Background(), []string{a, clash}, ModeCheck, Options{Platform: target.SysV}); err != nil {
		t.Fatalf("check writes nothing and cannot collide: %v", err)
	}
}

func TestExpandSources(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.kast", "b.kast.json", "notes.txt", filepath.Join(".hidden", "c.kast"), filepath.Join("sub", "d.kast")} {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	got, err := ExpandSources([]string{dir, filepath.Join(dir, "a.kast")})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "a.kast"),
		filepath.Join(dir, "b.kast.json"),
		filepath.Join(dir, "sub", "d.kast"),
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("ExpandSources = %v, want %v", got, want)
	}
	if _, err := ExpandSources([]string{filepath.Join(dir, "nope")}); err == nil {
		t.Fatalf("expected error for a missing argument")
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kestrel/internal/ast"
	"kestrel/internal/astio"
	"kestrel/internal/diag"
	"kestrel/internal/diagfmt"
)

// workspace creates a project with a manifest and chdirs into it.
func workspace(t *testing.T, units map[string]*ast.Program) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, ".cache"))
	manifest := "[package]\nname = \"demo\"\n[build]\ntarget = \"sysv\"\nsources = [\"src\"]\nout_dir = \"build\"\ncache = false\n"
	if err := os.WriteFile(filepath.Join(dir, "kestrel.toml"), []byte(manifest), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	for name, prog := range units {
		data, err := astio.Marshal(prog, astio.FormatForPath(name))
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "src", name), data, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--color=off"}, args...))
	err := root.Execute()
	return out.String() + errOut.String(), err
}

func okProgram() *ast.Program {
	return ast.NewProgram(ast.Let("n", ast.Int(41)), ast.Print(ast.Bin(ast.BinaryAdd, ast.Name("n"), ast.Int(1))))
}

func TestBuildWritesAssembly(t *testing.T) {
	dir := workspace(t, map[string]*ast.Program{
		"main.kast":       okProgram(),
		"hello.kast.json": ast.NewProgram(ast.Print(ast.Str("hello"))),
	})
	out, err := execute(t, "build", "--ui=off")
	if err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	for _, name := range []string{"main.asm", "hello.asm"} {
		data, err := os.ReadFile(filepath.Join(dir, "build", name))
		if err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
		if !strings.Contains(string(data), "_start:") {
			t.Fatalf("%s is not a SysV listing", name)
		}
	}
	if !strings.Contains(out, "build: 2 units, 0 failed, 0 diagnostics") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestBuildTargetFlag(t *testing.T) {
	dir := workspace(t, map[string]*ast.Program{"main.kast": okProgram()})
	if out, err := execute(t, "build", "--ui=off", "--target", "windows", "-o", "win"); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	data, err := os.ReadFile(filepath.Join(dir, "win", "main.asm"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "WriteFile") {
		t.Fatalf("expected a Windows listing:\n%s", data)
	}
}

func TestCheckReportsViolation(t *testing.T) {
	dir := workspace(t, map[string]*ast.Program{
		"good.kast": okProgram(),
		"bad.kast":  ast.NewProgram(ast.Let("x", ast.Int(10)), ast.Set("x", ast.Int(20))),
	})
	out, err := execute(t, "check", "--ui=off")
	if !errors.Is(err, errFailed) {
		t.Fatalf("expected errFailed, got %v", err)
	}
	if !strings.Contains(out, diag.SemaAssignImmutable.ID()) || !strings.Contains(out, "immutable") {
		t.Fatalf("diagnostic missing:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "build")); !os.IsNotExist(err) {
		t.Fatalf("check must not write output")
	}
}

func TestCheckJSON(t *testing.T) {
	workspace(t, map[string]*ast.Program{
		"bad.kast": ast.NewProgram(ast.Print(ast.Name("ghost"))),
	})
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"check", "--ui=off", "--format", "json"})
	if err := root.Execute(); !errors.Is(err, errFailed) {
		t.Fatalf("expected errFailed, got %v", err)
	}
	var doc diagfmt.DiagnosticsOutput
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out.String())
	}
	if doc.Count != 1 || doc.Diagnostics[0].Code != diag.SemaUndefined.ID() {
		t.Fatalf("unexpected report %+v", doc)
	}
}

func TestExplicitArgsBypassManifestSources(t *testing.T) {
	dir := workspace(t, map[string]*ast.Program{
		"main.kast": okProgram(),
		"bad.kast":  ast.NewProgram(ast.Print(ast.Name("ghost"))),
	})
	out, err := execute(t, "check", "--ui=off", filepath.Join(dir, "src", "main.kast"))
	if err != nil {
		t.Fatalf("check failed: %v\n%s", err, out)
	}
}

func TestUnknownFormat(t *testing.T) {
	workspace(t, map[string]*ast.Program{"main.kast": okProgram()})
	if _, err := execute(t, "check", "--format", "xml"); err == nil || errors.Is(err, errFailed) {
		t.Fatalf("expected a usage error, got %v", err)
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "version", "--format", "json", "--hash")
	if err != nil {
		t.Fatal(err)
	}
	var p versionPayload
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if p.Tool != "kestrel" || p.GitCommit == "" || len(p.Targets) != 2 {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestVersionPretty(t *testing.T) {
	out, err := execute(t, "version", "--full")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"kestrel ", "commit:", "message:", "built:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

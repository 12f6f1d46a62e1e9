// Package driver runs source units through verification and code generation,
// one goroutine per unit, and reports per-unit diagnostics and progress.
package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"kestrel/internal/ast"
	"kestrel/internal/astio"
	"kestrel/internal/backend/x64"
	"kestrel/internal/borrow"
	"kestrel/internal/diag"
	"kestrel/internal/observ"
	"kestrel/internal/source"
	"kestrel/internal/target"
	"kestrel/internal/trace"
	"kestrel/internal/version"
)

// Mode selects how far the pipeline runs.
type Mode uint8

const (
	ModeCheck Mode = iota // decode and verify
	ModeBuild             // also generate and write assembly
)

func (m Mode) String() string {
	if m == ModeBuild {
		return "build"
	}
	return "check"
}

// Options configures a run.
type Options struct {
	Platform       target.Platform
	OutDir         string // empty writes next to each source
	Jobs           int    // <= 0 means GOMAXPROCS
	MaxDiagnostics int
	Cache          *DiskCache // nil disables caching
	Sink           ProgressSink
	Timer          *observ.Timer
}

// Unit is the outcome for one source file.
type Unit struct {
	Path    string
	File    source.FileID
	Program *ast.Program
	Bag     *diag.Bag
	Asm     string
	OutPath string
	Cached  bool
}

// Failed reports whether the unit produced error diagnostics.
func (u *Unit) Failed() bool { return u == nil || u.Bag.HasErrors() }

// Verify runs the ownership verifier over prog.
func Verify(ctx context.Context, prog *ast.Program) error {
	_, span := trace.StartSpan(ctx, trace.ScopePass, "verify")
	err := borrow.Check(prog)
	span.End(outcome(err))
	return err
}

// Generate lowers a verified prog to assembly for p.
func Generate(ctx context.Context, prog *ast.Program, p target.Platform) (string, error) {
	_, span := trace.StartSpan(ctx, trace.ScopePass, "generate")
	span.WithExtra("target", p.String())
	asm, err := x64.Generate(prog, p)
	span.End(outcome(err))
	return asm, err
}

// Compile verifies and generates prog in memory. Generation never starts
// after a failed verification.
func Compile(ctx context.Context, prog *ast.Program, p target.Platform) (string, error) {
	if err := Verify(ctx, prog); err != nil {
		return "", err
	}
	return Generate(ctx, prog, p)
}

func outcome(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

// Run processes every path in parallel. Units are independent, so a failing
// unit never stops the others. The returned error is set when ctx is
// cancelled, in which case some units may be nil, or when two build units
// would write the same output, in which case none runs.
func Run(ctx context.Context, paths []string, mode Mode, opts Options) (*source.FileSet, []*Unit, error) {
	fs := source.NewFileSet()
	ctx, span := trace.StartSpan(ctx, trace.ScopeDriver, mode.String())
	span.WithExtra("units", fmt.Sprint(len(paths)))
	defer span.End("")

	units := make([]*Unit, len(paths))
	if len(paths) == 0 {
		return fs, units, nil
	}
	outs := make([]string, len(paths))
	if mode == ModeBuild {
		var err error
		if outs, err = OutputPaths(opts.OutDir, paths); err != nil {
			return fs, units, err
		}
	}
	for _, p := range paths {
		notify(opts.Sink, Event{File: p, Stage: StageLoad, Status: StatusQueued})
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// index i is owned by this goroutine
			units[i] = runUnit(gctx, fs, path, outs[i], mode, opts)
			return nil
		})
	}
	err := g.Wait()
	return fs, units, err
}

func runUnit(ctx context.Context, fs *source.FileSet, path, outPath string, mode Mode, opts Options) *Unit {
	ctx, span := trace.StartSpan(ctx, trace.ScopeUnit, path)
	u := &Unit{Path: path, Bag: diag.NewBag(opts.MaxDiagnostics)}
	defer func() {
		detail := "ok"
		if u.Failed() {
			detail = "failed"
		}
		span.End(detail)
	}()

	last := StageVerify
	if !u.stage(opts, StageLoad, diag.IOLoadFileError, func() error {
		id, err := fs.Load(path)
		if err != nil {
			return err
		}
		u.File = id
		return nil
	}) {
		return u
	}
	if !u.stage(opts, StageLoad, diag.IODecodeError, func() error {
		f, _ := fs.Get(u.File)
		prog, err := astio.Unmarshal(f.Content, astio.FormatForPath(path), u.File)
		u.Program = prog
		return err
	}) {
		return u
	}
	if !u.stage(opts, StageVerify, diag.SemaInfo, func() error {
		return Verify(ctx, u.Program)
	}) {
		return u
	}

	if mode == ModeBuild {
		if !u.generate(ctx, opts) {
			return u
		}
		u.OutPath = outPath
		if !u.stage(opts, StageWrite, diag.IOWriteFileError, func() error {
			return writeFile(u.OutPath, []byte(u.Asm))
		}) {
			return u
		}
		last = StageWrite
	}
	notify(opts.Sink, Event{File: path, Stage: last, Status: StatusDone, Cached: u.Cached})
	return u
}

// generate fills u.Asm from the cache or the backend.
func (u *Unit) generate(ctx context.Context, opts Options) bool {
	var (
		key    Digest
		useKey bool
	)
	if opts.Cache != nil {
		k, err := CacheKey(u.Program, opts.Platform)
		if err == nil {
			key, useKey = k, true
			p, ok, err := opts.Cache.Get(k)
			if err != nil {
				trace.Point(trace.FromContext(ctx), trace.ScopeUnit, "cache", err.Error())
			}
			if ok {
				u.Asm, u.Cached = p.Asm, true
				return true
			}
		}
	}
	if !u.stage(opts, StageGenerate, diag.GenInfo, func() error {
		asm, err := Generate(ctx, u.Program, opts.Platform)
		u.Asm = asm
		return err
	}) {
		return false
	}
	if useKey {
		err := opts.Cache.Put(key, &CachePayload{
			Platform: opts.Platform.String(),
			Version:  version.Version,
			Source:   u.Path,
			Asm:      u.Asm,
		})
		if err != nil {
			trace.Point(trace.FromContext(ctx), trace.ScopeUnit, "cache", err.Error())
		}
	}
	return true
}

// stage runs fn as one pipeline step, timing it and turning a failure into a
// diagnostic. fallback is the code used for errors that carry none.
func (u *Unit) stage(opts Options, st Stage, fallback diag.Code, fn func() error) bool {
	notify(opts.Sink, Event{File: u.Path, Stage: st, Status: StatusWorking})
	start := time.Now()
	var err error
	if opts.Timer != nil {
		err = opts.Timer.Time(fmt.Sprintf("%s %s", st, filepath.Base(u.Path)), fn)
	} else {
		err = fn()
	}
	if err == nil {
		return true
	}
	report(u.Bag, u.File, err, fallback)
	notify(opts.Sink, Event{File: u.Path, Stage: st, Status: StatusError, Err: err, Elapsed: time.Since(start)})
	return false
}

// report converts a stage error into a diagnostic on bag.
func report(bag *diag.Bag, file source.FileID, err error, fallback diag.Code) {
	rep := diag.BagReporter{Bag: bag}
	if v, ok := borrow.AsViolation(err); ok {
		v.Report(rep)
		return
	}
	var ge *x64.Error
	if errors.As(err, &ge) {
		diag.ReportError(rep, ge.Code, source.Span{File: file}, ge.Msg).Emit()
		return
	}
	diag.ReportError(rep, fallback, source.Span{File: file}, err.Error()).Emit()
}

// ErrOutputCollision is returned when two sources map to the same output.
var ErrOutputCollision = errors.New("output collision")

// OutputPath maps src to its .asm output. With an empty outDir the output
// sits next to the source; otherwise it keeps src's directory relative to
// root under outDir. Sources outside root keep only their base name.
func OutputPath(outDir, root, src string) string {
	base := filepath.Base(src)
	switch {
	case strings.HasSuffix(base, astio.ExtJSON):
		base = strings.TrimSuffix(base, astio.ExtJSON)
	case strings.HasSuffix(base, astio.ExtBinary):
		base = strings.TrimSuffix(base, astio.ExtBinary)
	}
	base += ".asm"
	if outDir == "" {
		return filepath.Join(filepath.Dir(src), base)
	}
	if root != "" {
		rel, err := filepath.Rel(root, filepath.Dir(src))
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.Join(outDir, rel, base)
		}
	}
	return filepath.Join(outDir, base)
}

// OutputPaths maps every source to its output, rooted at the deepest
// directory shared by all of them, and fails when two sources collide.
func OutputPaths(outDir string, paths []string) ([]string, error) {
	root := commonDir(paths)
	outs := make([]string, len(paths))
	owner := make(map[string]string, len(paths))
	for i, p := range paths {
		out := OutputPath(outDir, root, p)
		if prev, ok := owner[out]; ok {
			return nil, fmt.Errorf("%w: %s and %s both write %s", ErrOutputCollision, prev, p, out)
		}
		owner[out] = p
		outs[i] = out
	}
	return outs, nil
}

// commonDir returns the deepest directory containing every path, or "" when
// they share none (for instance relative and absolute paths mixed).
func commonDir(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	sep := string(filepath.Separator)
	common := strings.Split(filepath.Dir(filepath.Clean(paths[0])), sep)
	for _, p := range paths[1:] {
		parts := strings.Split(filepath.Dir(filepath.Clean(p)), sep)
		n := 0
		for n < len(common) && n < len(parts) && common[n] == parts[n] {
			n++
		}
		common = common[:n]
	}
	if len(common) == 0 {
		return ""
	}
	if len(common) == 1 && common[0] == "" {
		return sep
	}
	return strings.Join(common, sep)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Merge collects the diagnostics of all units into one sorted bag.
func Merge(units []*Unit, limit int) *diag.Bag {
	out := diag.NewBag(limit)
	for _, u := range units {
		if u != nil {
			out.Merge(u.Bag)
		}
	}
	out.Sort()
	out.Dedup()
	return out
}

// Failed reports whether any unit failed or never ran.
func Failed(units []*Unit) bool {
	for _, u := range units {
		if u.Failed() {
			return true
		}
	}
	return false
}

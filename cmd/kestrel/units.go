package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"kestrel/internal/diag"
	"kestrel/internal/diagfmt"
	"kestrel/internal/driver"
	"kestrel/internal/observ"
	"kestrel/internal/project"
	"kestrel/internal/source"
	"kestrel/internal/ui"
)

const cacheApp = "kestrel"

func (f *unitFlags) register(cmd *cobra.Command, mode driver.Mode) {
	fl := cmd.Flags()
	fl.StringVar(&f.target, "target", "", "target ABI (windows|sysv); defaults to kestrel.toml, then the host")
	fl.IntVarP(&f.jobs, "jobs", "j", 0, "units processed in parallel (0 uses GOMAXPROCS)")
	fl.StringVar(&f.format, "format", "pretty", "diagnostic output format (pretty|json)")
	fl.StringVar(&f.ui, "ui", "auto", "progress view (auto|on|off)")
	if mode == driver.ModeBuild {
		fl.StringVarP(&f.out, "out", "o", "", "directory for .asm files (default: next to each source)")
		fl.BoolVar(&f.noCache, "no-cache", false, "bypass the generation cache")
	}
}

// runUnits is the body of check and build.
func runUnits(cmd *cobra.Command, mode driver.Mode, f *unitFlags, args []string) (err error) {
	pf := cmd.Root().PersistentFlags()
	quiet, err := pf.GetBool("quiet")
	if err != nil {
		return err
	}
	showTimings, err := pf.GetBool("timings")
	if err != nil {
		return err
	}
	maxDiag, err := pf.GetInt("max-diagnostics")
	if err != nil {
		return err
	}
	color, err := useColor(cmd)
	if err != nil {
		return err
	}
	format := strings.ToLower(strings.TrimSpace(f.format))
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", f.format)
	}
	uiMode, err := readUIMode(f.ui)
	if err != nil {
		return err
	}

	manifest, _, err := project.Load(".")
	if err != nil {
		return err
	}
	cfg, err := resolveSettings(manifest, f, cmd.Flags().Changed, args)
	if err != nil {
		return err
	}
	files, err := driver.ExpandSources(cfg.sources)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .kast sources found in %s", strings.Join(cfg.sources, ", "))
	}

	profiler, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if perr := profiler.Stop(); perr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: profiling: %v\n", perr)
		}
	}()
	session, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer func() { session.close(cmd, err != nil) }()

	opts := driver.Options{
		Platform:       cfg.platform,
		OutDir:         cfg.outDir,
		Jobs:           cfg.jobs,
		MaxDiagnostics: maxDiag,
	}
	if showTimings {
		opts.Timer = observ.NewTimer()
	}
	if mode == driver.ModeBuild && cfg.cache {
		c, cerr := driver.OpenDiskCache(cacheApp)
		if cerr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache disabled: %v\n", cerr)
		} else {
			opts.Cache = c
		}
	}

	var (
		fs    *source.FileSet
		units []*driver.Unit
	)
	work := func(sink driver.ProgressSink) error {
		o := opts
		o.Sink = sink
		var runErr error
		fs, units, runErr = driver.Run(cmd.Context(), files, mode, o)
		return runErr
	}
	if shouldUseTUI(uiMode, len(files), quiet) {
		title := fmt.Sprintf("%s %d units for %s", mode, len(files), cfg.platform)
		err = ui.Run(cmd.ErrOrStderr(), title, files, work)
	} else {
		err = work(nil)
	}
	if err != nil {
		return err
	}

	bag := driver.Merge(units, maxDiag)
	out := cmd.OutOrStdout()
	if format == "json" {
		if err := diagfmt.JSON(out, bag, fs, diagfmt.JSONOpts{Max: maxDiag, IncludeNotes: true}); err != nil {
			return err
		}
	} else {
		diagfmt.Pretty(out, bag, fs, diagfmt.PrettyOpts{Color: color, ShowNotes: true})
		if !quiet {
			reportUnits(cmd, mode, units, bag)
		}
	}
	if opts.Timer != nil {
		if err := printTimings(cmd.ErrOrStderr(), opts.Timer, format == "json"); err != nil {
			return err
		}
	}
	if driver.Failed(units) {
		return errFailed
	}
	return nil
}

// reportUnits prints one line per written file and a closing summary.
func reportUnits(cmd *cobra.Command, mode driver.Mode, units []*driver.Unit, bag *diag.Bag) {
	out := cmd.OutOrStdout()
	failed := 0
	for _, u := range units {
		if u.Failed() {
			failed++
			continue
		}
		if mode == driver.ModeBuild {
			suffix := ""
			if u.Cached {
				suffix = " (cached)"
			}
			fmt.Fprintf(out, "wrote %s%s\n", filepath.ToSlash(u.OutPath), suffix)
		}
	}
	fmt.Fprintf(out, "%s: %d units, %d failed, %d diagnostics", mode, len(units), failed, bag.Len())
	if n := bag.Dropped(); n > 0 {
		fmt.Fprintf(out, " (%d more not shown)", n)
	}
	fmt.Fprintln(out)
}

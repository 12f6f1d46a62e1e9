package main

import (
	"errors"
	"runtime"
	"strings"

	"kestrel/internal/project"
	"kestrel/internal/target"
)

// unitFlags are the flags shared by check and build.
type unitFlags struct {
	target  string
	out     string
	jobs    int
	noCache bool
	format  string
	ui      string
}

// settings is the effective configuration of one run: flags first, then
// kestrel.toml, then defaults.
type settings struct {
	platform target.Platform
	sources  []string
	outDir   string
	jobs     int
	cache    bool
}

var errNoSources = errors.New("no sources given and no [build].sources in kestrel.toml")

func hostPlatform() target.Platform {
	if runtime.GOOS == "windows" {
		return target.Windows
	}
	return target.SysV
}

// resolveSettings merges f over the manifest m (which may be nil). changed
// reports whether a flag was set explicitly.
func resolveSettings(m *project.Manifest, f *unitFlags, changed func(string) bool, args []string) (settings, error) {
	s := settings{platform: hostPlatform(), cache: true}
	if m != nil {
		b := m.Config.Build
		if p, ok := b.Platform(); ok {
			s.platform = p
		}
		s.sources = m.SourcePaths()
		s.outDir = m.OutDir()
		s.jobs = b.Jobs
		s.cache = b.Cache
	}

	if changed("target") || strings.TrimSpace(f.target) != "" {
		p, err := target.ParsePlatform(f.target)
		if err != nil {
			return settings{}, err
		}
		s.platform = p
	}
	if changed("out") {
		s.outDir = f.out
	}
	if changed("jobs") {
		if f.jobs < 0 {
			return settings{}, errors.New("--jobs must not be negative")
		}
		s.jobs = f.jobs
	}
	if f.noCache {
		s.cache = false
	}
	if len(args) > 0 {
		s.sources = args
	}
	if len(s.sources) == 0 {
		return settings{}, errNoSources
	}
	return s, nil
}

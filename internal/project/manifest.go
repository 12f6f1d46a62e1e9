// Package project loads the kestrel.toml manifest that supplies default
// build settings for a directory tree.
package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"kestrel/internal/target"
)

var (
	// ErrPackageSectionMissing indicates that [package] is missing.
	ErrPackageSectionMissing = errors.New("missing [package]")
	// ErrPackageNameMissing indicates that [package].name is missing or blank.
	ErrPackageNameMissing = errors.New("missing [package].name")
)

// Manifest is a parsed kestrel.toml together with its location.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the manifest's tables.
type Config struct {
	Package PackageConfig `toml:"package"`
	Build   BuildConfig   `toml:"build"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

// BuildConfig holds [build]. Cache defaults to true when the key is absent.
type BuildConfig struct {
	Target  string   `toml:"target"`
	Sources []string `toml:"sources"`
	OutDir  string   `toml:"out_dir"`
	Jobs    int      `toml:"jobs"`
	Cache   bool     `toml:"cache"`

	platform target.Platform
}

// Load finds kestrel.toml from startDir upwards and parses it. ok is false
// when no manifest exists.
func Load(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

// LoadConfig parses and validates the manifest at path.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if err := cfg.validate(meta); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig is LoadConfig for in-memory documents.
func ParseConfig(doc string) (Config, error) {
	var cfg Config
	meta, err := toml.Decode(doc, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := cfg.validate(meta); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) validate(meta toml.MetaData) error {
	if !meta.IsDefined("package") {
		return ErrPackageSectionMissing
	}
	cfg.Package.Name = strings.TrimSpace(cfg.Package.Name)
	if !meta.IsDefined("package", "name") || cfg.Package.Name == "" {
		return ErrPackageNameMissing
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key %s", undecoded[0])
	}

	b := &cfg.Build
	if !meta.IsDefined("build", "cache") {
		b.Cache = true
	}
	if meta.IsDefined("build", "target") {
		p, err := target.ParsePlatform(strings.TrimSpace(b.Target))
		if err != nil {
			return fmt.Errorf("[build].target: %w", err)
		}
		b.platform = p
	}
	if b.Jobs < 0 {
		return fmt.Errorf("[build].jobs must not be negative, got %d", b.Jobs)
	}
	for i, s := range b.Sources {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("[build].sources[%d] is empty", i)
		}
	}
	return nil
}

// Platform returns the configured target, if [build].target was set.
func (b BuildConfig) Platform() (target.Platform, bool) {
	return b.platform, b.Target != ""
}

// SourcePaths resolves [build].sources against the manifest root.
func (m *Manifest) SourcePaths() []string {
	out := make([]string, 0, len(m.Config.Build.Sources))
	for _, s := range m.Config.Build.Sources {
		out = append(out, m.resolve(s))
	}
	return out
}

// OutDir resolves [build].out_dir against the manifest root; empty when
// unset.
func (m *Manifest) OutDir() string {
	if m.Config.Build.OutDir == "" {
		return ""
	}
	return m.resolve(m.Config.Build.OutDir)
}

func (m *Manifest) resolve(p string) string {
	p = filepath.FromSlash(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(m.Root, p)
}

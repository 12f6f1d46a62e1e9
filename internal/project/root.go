package project

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ManifestName is the project manifest file name.
const ManifestName = "kestrel.toml"

// FindManifest looks for kestrel.toml in startDir and each of its parents.
// An empty startDir means the working directory.
func FindManifest(startDir string) (path string, ok bool, err error) {
	dir, err := filepath.Abs(cmp.Or(startDir, "."))
	if err != nil {
		return "", false, fmt.Errorf("resolve %q: %w", startDir, err)
	}
	for prev := ""; dir != prev; prev, dir = dir, filepath.Dir(dir) {
		path = filepath.Join(dir, ManifestName)
		info, err := os.Stat(path)
		switch {
		case err == nil && !info.IsDir():
			return path, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return "", false, nil
}

// FindProjectRoot returns the directory holding the nearest manifest.
func FindProjectRoot(startDir string) (string, bool, error) {
	path, ok, err := FindManifest(startDir)
	if !ok {
		return "", false, err
	}
	return filepath.Dir(path), true, nil
}

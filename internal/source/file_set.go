package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fortio.org/safecast"
)

// FileID identifies a compilation unit within a FileSet.
type FileID uint32

// File is one registered unit: its path, raw bytes and content hash.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	Hash    [32]byte
}

// FileSet registers units so spans and diagnostics can refer to them by ID.
// It is safe for concurrent use.
type FileSet struct {
	mu    sync.RWMutex
	files []File
	index map[string]FileID
}

// NewFileSet creates an empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{index: make(map[string]FileID)}
}

// Add stores content under path and returns a fresh FileID.
func (fs *FileSet) Add(path string, content []byte) FileID {
	norm := filepath.ToSlash(filepath.Clean(path))

	fs.mu.Lock()
	defer fs.mu.Unlock()
	n, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("file set overflow: %w", err))
	}
	id := FileID(n)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    norm,
		Content: content,
		Hash:    sha256.Sum256(content),
	})
	fs.index[norm] = id
	return id
}

// Load reads path from disk and registers it.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	return fs.Add(path, data), nil
}

// Get returns the file registered under id.
func (fs *FileSet) Get(id FileID) (File, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if int(id) >= len(fs.files) {
		return File{}, false
	}
	return fs.files[id], true
}

// Lookup finds the most recent file registered under path.
func (fs *FileSet) Lookup(path string) (FileID, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	id, ok := fs.index[filepath.ToSlash(filepath.Clean(path))]
	return id, ok
}

// Path returns the registered path for id, or "<unknown>".
func (fs *FileSet) Path(id FileID) string {
	if f, ok := fs.Get(id); ok {
		return f.Path
	}
	return "<unknown>"
}

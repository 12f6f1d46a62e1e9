package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"kestrel/internal/ast"
	"kestrel/internal/astio"
	"kestrel/internal/target"
	"kestrel/internal/version"
)

// cacheSchemaVersion is bumped whenever CachePayload changes shape.
const cacheSchemaVersion uint16 = 1

// Digest is a sha256 cache key.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// CacheKey hashes the canonical encoding of prog together with the target
// platform and the toolchain version.
func CacheKey(prog *ast.Program, p target.Platform) (Digest, error) {
	data, err := astio.Marshal(prog, astio.FormatMsgpack)
	if err != nil {
		return Digest{}, err
	}
	h := sha256.New()
	_, _ = h.Write(data)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(p.String()))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(version.Version))
	var out Digest
	copy(out[:], h.Sum(nil))
	return out, nil
}

// CachePayload is one cached generation result.
type CachePayload struct {
	Schema   uint16 `msgpack:"schema"`
	Platform string `msgpack:"platform"`
	Version  string `msgpack:"version"`
	Source   string `msgpack:"source"`
	Asm      string `msgpack:"asm"`
	Created  int64  `msgpack:"created"`
}

// DiskCache stores CachePayloads under their Digest. Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenDiskCache opens the per-user cache for app under XDG_CACHE_HOME or
// ~/.cache.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewDiskCache(filepath.Join(base, app))
}

// NewDiskCache opens a cache rooted at dir, creating it if needed.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "units", key.String()+".mp")
}

// Put writes payload atomically: encode to a temp file, then rename.
func (c *DiskCache) Put(key Digest, payload *CachePayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp) //nolint:errcheck

	payload.Schema = cacheSchemaVersion
	if payload.Created == 0 {
		payload.Created = time.Now().Unix()
	}
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Get loads the payload for key. A missing entry or one written under
// another schema is a miss, not an error.
func (c *DiskCache) Get(key Digest) (*CachePayload, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close() //nolint:errcheck

	var out CachePayload
	if err := msgpack.NewDecoder(f).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	if out.Schema != cacheSchemaVersion {
		return nil, false, nil
	}
	return &out, true, nil
}

// DropAll removes every cached entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

package driver

import (
	"path/filepath"
	"testing"

	"kestrel/internal/target"
)

func TestCacheKeyDependsOnPlatform(t *testing.T) {
	a, err := CacheKey(goodProgram(), target.SysV)
	if err != nil {
		t.Fatal(err)
	}
	b, err := CacheKey(goodProgram(), target.Windows)
	if err != nil {
		t.Fatal(err)
	}
	again, err := CacheKey(goodProgram(), target.SysV)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatalf("platforms share a cache key")
	}
	if a != again {
		t.Fatalf("cache key is not deterministic")
	}
}

func TestDiskCachePutGet(t *testing.T) {
	c, err := NewDiskCache(filepath.Join(t.TempDir(), "c"))
	if err != nil {
		t.Fatal(err)
	}
	key, err := CacheKey(goodProgram(), target.SysV)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(key); ok || err != nil {
		t.Fatalf("empty cache returned ok=%v err=%v", ok, err)
	}
	if err := c.Put(key, &CachePayload{Platform: "sysv", Asm: "section .text"}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get after Put: ok=%v err=%v", ok, err)
	}
	if got.Asm != "section .text" || got.Schema != cacheSchemaVersion || got.Created == 0 {
		t.Fatalf("unexpected payload %+v", got)
	}
	if err := c.DropAll(); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(key); ok {
		t.Fatalf("entry survived DropAll")
	}
}

func TestNilCacheIsInert(t *testing.T) {
	var c *DiskCache
	if err := c.Put(Digest{}, &CachePayload{}); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(Digest{}); ok || err != nil {
		t.Fatalf("nil cache returned ok=%v err=%v", ok, err)
	}
}

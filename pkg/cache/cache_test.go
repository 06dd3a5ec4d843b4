package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	const miss = "https://repo.example.com/maven2/g/a/1/a-1.jar"
	if err := c.Set(ctx, miss, []byte{1}, time.Hour); err != nil {
		t.Errorf("Set() error = %v", err)
	}
	data, hit, err := c.Get(ctx, miss)
	if err != nil || hit || data != nil {
		t.Errorf("Get() = %v, %v, %v; a null cache remembers no misses", data, hit, err)
	}
	if err := c.Delete(ctx, miss); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if c.Reason() != nil {
		t.Errorf("Reason() = %v, want nil", c.Reason())
	}
}

func TestDescribe(t *testing.T) {
	dir := t.TempDir()
	fc, err := NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		c    Cache
		want string
	}{
		{"nil", nil, "disabled"},
		{"null", NewNullCache(), "disabled"},
		{"failed", Disabled(os.ErrPermission), "disabled (" + os.ErrPermission.Error() + ")"},
		{"files", fc, "files in " + dir},
		{"prefixed", NewPrefixed(fc, "miss:central:"), "files in " + dir},
		{"prefixed nil", NewPrefixed(nil, "miss:central:"), "disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.c); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "misses"))
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	defer c.Close()

	if _, hit, _ := c.Get(ctx, "org/example/lib/1.0/lib-1.0.jar"); hit {
		t.Error("empty cache should miss")
	}

	if err := c.Set(ctx, "org/example/lib/1.0/lib-1.0.jar", []byte("404"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "org/example/lib/1.0/lib-1.0.jar")
	if err != nil || !hit || string(data) != "404" {
		t.Errorf("Get = %q, %v, %v; want hit", data, hit, err)
	}

	if err := c.Delete(ctx, "org/example/lib/1.0/lib-1.0.jar"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "org/example/lib/1.0/lib-1.0.jar"); hit {
		t.Error("deleted key should miss")
	}
	if err := c.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Delete of missing key error: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Set(ctx, "short", []byte("x"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry should miss")
	}

	if err := c.Set(ctx, "forever", []byte("x"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("zero ttl entry should not expire")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v, want clean miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if _, hit, _ := c.Get(ctx, k); hit {
			t.Errorf("%s survived Clear", k)
		}
	}
}

func TestPrefixed(t *testing.T) {
	ctx := context.Background()
	shared, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	central := NewPrefixed(shared, "miss:central:")
	mirror := NewPrefixed(shared, "miss:mirror:")

	if err := central.Set(ctx, "g/a/1/a-1.jar", []byte("1"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := central.Get(ctx, "g/a/1/a-1.jar"); !hit {
		t.Error("central should hit its own key")
	}
	if _, hit, _ := mirror.Get(ctx, "g/a/1/a-1.jar"); hit {
		t.Error("namespaces must not collide")
	}
	if _, hit, _ := shared.Get(ctx, "miss:central:g/a/1/a-1.jar"); !hit {
		t.Error("prefix should be applied to the underlying key")
	}
	if central.Prefix() != "miss:central:" {
		t.Errorf("Prefix() = %q", central.Prefix())
	}

	if _, hit, _ := NewPrefixed(nil, "x:").Get(ctx, "k"); hit {
		t.Error("nil inner should behave as NullCache")
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

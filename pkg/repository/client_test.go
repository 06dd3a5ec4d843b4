package repository

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/moxie/pkg/artifacts"
	"github.com/matzehuels/moxie/pkg/cache"
	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/maven"
)

// fakeRepo serves files from a map and counts requests per path.
type fakeRepo struct {
	*httptest.Server
	mu     sync.Mutex
	files  map[string]string
	hits   map[string]int
	status int // forced status for every request when non-zero
	head   int // forced status for HEAD requests when non-zero
}

func newFakeRepo(t *testing.T, files map[string]string) *fakeRepo {
	t.Helper()
	r := &fakeRepo{files: files, hits: make(map[string]int)}
	r.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.hits[req.Method+" "+req.URL.Path]++
		status := r.status
		if req.Method == http.MethodHead && r.head != 0 {
			status = r.head
		}
		body, ok := r.files[strings.TrimPrefix(req.URL.Path, "/repo/")]
		r.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		if !ok {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Last-Modified", "Tue, 02 Jan 2024 03:04:05 GMT")
		if req.Method == http.MethodHead {
			return
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(r.Close)
	return r
}

func (r *fakeRepo) repository(id string) Repository {
	return Repository{ID: id, URL: r.URL + "/repo/"}
}

func (r *fakeRepo) count(method, path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[method+" /repo/"+path]
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	if opts.Cache == nil {
		ac, err := artifacts.New(artifacts.Options{Root: t.TempDir(), Logger: log.New(io.Discard)})
		if err != nil {
			t.Fatal(err)
		}
		opts.Cache = ac
	}
	opts.Logger = log.New(io.Discard)
	opts.RetryDelay = time.Millisecond
	c, err := NewClient(opts)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

const jarPath = "com/example/lib/1.0/lib-1.0.jar"

func TestClient_FetchIsIdempotent(t *testing.T) {
	repo := newFakeRepo(t, map[string]string{
		jarPath:           "jar-bytes",
		jarPath + ".sha1": sha1Hex("jar-bytes") + "  lib-1.0.jar\n",
	})
	c := newTestClient(t, Options{Repositories: []Repository{repo.repository("test")}})
	dep := maven.NewDependency("com.example", "lib", "1.0")

	first, err := c.Fetch(context.Background(), dep, "jar")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	second, err := c.Fetch(context.Background(), dep, "jar")
	if err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}
	if first != second {
		t.Errorf("paths differ: %q vs %q", first, second)
	}
	if n := repo.count(http.MethodGet, jarPath); n != 1 {
		t.Errorf("artifact downloaded %d times, want 1", n)
	}
	data, _ := os.ReadFile(second)
	if string(data) != "jar-bytes" {
		t.Errorf("content = %q", data)
	}

	info, _ := os.Stat(first)
	if want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC); !info.ModTime().Equal(want) {
		t.Errorf("mtime = %v, want server Last-Modified %v", info.ModTime(), want)
	}

	located := dep.Clone()
	located.Origin = repo.repository("test").URL
	side, err := c.Cache().ReadData(located)
	if err != nil {
		t.Fatal(err)
	}
	if side.Origin != located.Origin || side.LastDownloaded.IsZero() || side.LastUpdated.IsZero() {
		t.Errorf("side-data = %+v", side)
	}
}

func TestClient_ChecksumMismatch(t *testing.T) {
	repo := newFakeRepo(t, map[string]string{
		jarPath:           "tampered",
		jarPath + ".sha1": sha1Hex("original"),
	})
	backup := newFakeRepo(t, map[string]string{jarPath: "tampered"})
	c := newTestClient(t, Options{Repositories: []Repository{repo.repository("a"), backup.repository("b")}})
	dep := maven.NewDependency("com.example", "lib", "1.0")

	_, err := c.Fetch(context.Background(), dep, "jar")
	if !errors.Is(err, errors.ErrCodeChecksumMismatch) {
		t.Fatalf("Fetch() error = %v, want CHECKSUM_MISMATCH", err)
	}
	if _, ok := c.Cache().Locate(dep, "jar"); ok {
		t.Error("corrupted artifact left in cache")
	}
	if n := backup.count(http.MethodGet, jarPath); n != 0 {
		t.Error("mismatch should abort instead of trying the next repository")
	}
}

func TestClient_NotFoundFallsThrough(t *testing.T) {
	empty := newFakeRepo(t, nil)
	full := newFakeRepo(t, map[string]string{jarPath: "jar-bytes"})
	misses, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := newTestClient(t, Options{
		Repositories: []Repository{empty.repository("empty"), full.repository("full")},
		Misses:       misses,
	})
	dep := maven.NewDependency("com.example", "lib", "1.0")

	path, err := c.Fetch(context.Background(), dep, "jar")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !strings.Contains(path, artifacts.OriginFolder(full.repository("full").URL)) {
		t.Errorf("path = %q, want the second repository's folder", path)
	}
	// unverified download is preceded by a HEAD probe
	if n := full.count(http.MethodHead, jarPath); n != 1 {
		t.Errorf("HEAD probes = %d, want 1", n)
	}

	other := maven.NewDependency("com.example", "lib", "1.0")
	other.Classifier = "sources"
	for i := 0; i < 2; i++ {
		_, err = c.Fetch(context.Background(), other, "jar")
		if !errors.IsNotFound(err) {
			t.Fatalf("Fetch(missing) error = %v, want not found", err)
		}
	}
	if n := empty.count(http.MethodHead, "com/example/lib/1.0/lib-1.0-sources.jar"); n != 1 {
		t.Errorf("missing artifact probed %d times, want 1 (remembered miss)", n)
	}
}

func TestClient_TransportFailure(t *testing.T) {
	broken := newFakeRepo(t, nil)
	broken.status = http.StatusServiceUnavailable
	c := newTestClient(t, Options{Repositories: []Repository{broken.repository("broken")}, Retries: 2})
	dep := maven.NewDependency("com.example", "lib", "1.0")

	_, err := c.Fetch(context.Background(), dep, "jar")
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Fatalf("Fetch() error = %v, want NETWORK_ERROR", err)
	}
	if n := broken.count(http.MethodGet, jarPath+".sha1"); n != 2 {
		t.Errorf("checksum requests = %d, want 2 (retried)", n)
	}
	if state := c.BreakerState(); state[hostOf(broken.URL)] != "closed" {
		t.Errorf("BreakerState() = %v, want closed after one failure", state)
	}
}

func TestClient_HeadRefused(t *testing.T) {
	for _, status := range []int{http.StatusMethodNotAllowed, http.StatusNotImplemented} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			repo := newFakeRepo(t, map[string]string{jarPath: "jar-bytes"})
			repo.head = status
			c := newTestClient(t, Options{Repositories: []Repository{repo.repository("r")}, Retries: 3})

			path, err := c.Fetch(context.Background(), maven.NewDependency("com.example", "lib", "1.0"), "jar")
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if data, _ := os.ReadFile(path); string(data) != "jar-bytes" {
				t.Errorf("content = %q", data)
			}
			if n := repo.count(http.MethodHead, jarPath); n != 1 {
				t.Errorf("HEAD requests = %d, want 1", n)
			}
			if n := repo.count(http.MethodGet, jarPath); n != 1 {
				t.Errorf("GET requests = %d, want 1", n)
			}
		})
	}
}

func TestClient_Offline(t *testing.T) {
	repo := newFakeRepo(t, map[string]string{jarPath: "jar-bytes"})
	c := newTestClient(t, Options{Repositories: []Repository{repo.repository("r")}, Offline: true})

	_, err := c.Fetch(context.Background(), maven.NewDependency("com.example", "lib", "1.0"), "jar")
	if !errors.Is(err, errors.ErrCodeOffline) {
		t.Errorf("Fetch() error = %v, want OFFLINE", err)
	}
	if n := repo.count(http.MethodGet, jarPath); n != 0 {
		t.Error("offline client touched the network")
	}
}

func TestClient_SystemDependency(t *testing.T) {
	c := newTestClient(t, Options{})
	path := t.TempDir() + "/tools.jar"
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	dep := maven.NewDependency("com.sun", "tools", "1.8")
	dep.Kind = maven.KindSystem
	dep.Path = path

	got, err := c.Fetch(context.Background(), dep, "jar")
	if err != nil || got != path {
		t.Errorf("Fetch() = %q, %v; want %q", got, err, path)
	}
	dep.Path = path + ".missing"
	if _, err := c.Fetch(context.Background(), dep, "jar"); !errors.IsNotFound(err) {
		t.Errorf("Fetch() error = %v, want not found", err)
	}
}

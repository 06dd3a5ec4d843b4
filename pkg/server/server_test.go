package server

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/moxie/pkg/artifacts"
	"github.com/matzehuels/moxie/pkg/repository"
)

func newUpstream(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[strings.TrimPrefix(r.URL.Path, "/maven2/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodHead {
			io.WriteString(w, body)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, upstream *httptest.Server) *httptest.Server {
	t.Helper()
	quiet := log.New(io.Discard)
	cache, err := artifacts.New(artifacts.Options{Root: t.TempDir(), Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	client, err := repository.NewClient(repository.Options{
		Repositories: []repository.Repository{{ID: "up", URL: upstream.URL + "/maven2/"}},
		Cache:        cache,
		Retries:      1,
		RetryDelay:   time.Millisecond,
		Logger:       quiet,
	})
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(Options{Client: client, Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, method, url string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestServer(t *testing.T) {
	upstream := newUpstream(t, map[string]string{
		"org/example/lib/1.0/lib-1.0.jar":         "jar-bytes",
		"org/example/lib/1.0/lib-1.0-sources.jar": "sources",
		"org/example/lib/maven-metadata.xml": `<metadata><groupId>org.example</groupId><artifactId>lib</artifactId>
<versioning><versions><version>0.9</version><version>1.0</version></versions></versioning></metadata>`,
	})
	srv := newTestServer(t, upstream)
	sum := sha1.Sum([]byte("jar-bytes"))

	tests := []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{"artifact", http.MethodGet, "/org/example/lib/1.0/lib-1.0.jar", http.StatusOK, "jar-bytes"},
		{"classifier", http.MethodGet, "/org/example/lib/1.0/lib-1.0-sources.jar", http.StatusOK, "sources"},
		{"checksum", http.MethodGet, "/org/example/lib/1.0/lib-1.0.jar.sha1", http.StatusOK, hex.EncodeToString(sum[:])},
		{"head", http.MethodHead, "/org/example/lib/1.0/lib-1.0.jar", http.StatusOK, ""},
		{"metadata", http.MethodGet, "/org/example/lib/maven-metadata.xml", http.StatusOK, "<version>1.0</version>"},
		{"missing", http.MethodGet, "/org/example/lib/2.0/lib-2.0.jar", http.StatusNotFound, ""},
		{"foreign file", http.MethodGet, "/org/example/lib/1.0/other-1.0.jar", http.StatusBadRequest, ""},
		{"health", http.MethodGet, "/healthz", http.StatusOK, "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, tt.method, srv.URL+tt.path)
			if status != tt.status {
				t.Fatalf("%s %s = %d, want %d (%s)", tt.method, tt.path, status, tt.status, body)
			}
			if tt.body != "" && !strings.Contains(body, tt.body) {
				t.Errorf("%s %s body = %q, want %q", tt.method, tt.path, body, tt.body)
			}
		})
	}

	status, body := get(t, http.MethodGet, srv.URL+"/stats")
	if status != http.StatusOK {
		t.Fatalf("GET /stats = %d", status)
	}
	var stats map[string]any
	if err := json.Unmarshal([]byte(body), &stats); err != nil {
		t.Fatalf("stats are not JSON: %v", err)
	}
	if n, _ := stats["artifacts"].(float64); n < 2 {
		t.Errorf("stats artifacts = %v, want at least the two fetched jars", stats["artifacts"])
	}
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		path     string
		coord    string
		revision string
		ext      string
		metadata bool
		checksum bool
		wantErr  bool
	}{
		{path: "org/example/lib/1.0/lib-1.0.jar", coord: "org.example:lib:1.0", ext: "jar"},
		{path: "org/example/lib/1.0/lib-1.0.pom.sha1", coord: "org.example:lib:1.0", ext: "pom", checksum: true},
		{path: "org/example/lib/1.0/lib-1.0-linux.tar.gz", coord: "org.example:lib:1.0:linux", ext: "tar.gz"},
		{path: "org/example/lib/1.0-SNAPSHOT/lib-1.0-20240102.030405-7.jar", coord: "org.example:lib:1.0-SNAPSHOT",
			revision: "1.0-20240102.030405-7", ext: "jar"},
		{path: "org/example/lib/1.0-SNAPSHOT/lib-1.0-SNAPSHOT.jar", coord: "org.example:lib:1.0-SNAPSHOT", ext: "jar"},
		{path: "org/example/lib/maven-metadata.xml", coord: "org.example:lib:LATEST", metadata: true},
		{path: "org/example/lib/1.0-SNAPSHOT/maven-metadata.xml", coord: "org.example:lib:1.0-SNAPSHOT", metadata: true},
		{path: "org/example/lib/1.0/lib-2.0.jar", wantErr: true},
		{path: "org/example/lib/1.0/lib-1.0", wantErr: true},
		{path: "org/../lib/1.0/lib-1.0.jar", wantErr: true},
		{path: "lib-1.0.jar", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req, err := parsePath(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parsePath(%q) = %+v, want error", tt.path, req.dep)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePath(%q) error = %v", tt.path, err)
			}
			if got := req.dep.Coordinates(); got != tt.coord {
				t.Errorf("coordinates = %q, want %q", got, tt.coord)
			}
			if req.dep.Revision != tt.revision || req.ext != tt.ext || req.metadata != tt.metadata || req.checksum != tt.checksum {
				t.Errorf("parsePath(%q) = rev %q ext %q metadata %v checksum %v", tt.path, req.dep.Revision, req.ext, req.metadata, req.checksum)
			}
		})
	}
}

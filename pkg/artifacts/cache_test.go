package artifacts

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/moxie/pkg/maven"
)

func newTestCache(t *testing.T, systemRoot string) *Cache {
	t.Helper()
	c, err := New(Options{Root: t.TempDir(), SystemRoot: systemRoot, Logger: log.New(io.Discard)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestFormatPath(t *testing.T) {
	snap := maven.NewDependency("org.example", "lib", "1.0-SNAPSHOT")
	snap.Revision = "1.0-20240102.030405-7"
	classified := maven.NewDependency("org.example", "lib", "2.1")
	classified.Classifier = "sources"

	tests := []struct {
		name     string
		dep      *maven.Dependency
		ext      string
		dotGroup bool
		want     string
	}{
		{"plain", maven.NewDependency("org.example", "lib", "1.0"), "jar", false, "org/example/lib/1.0/lib-1.0.jar"},
		{"pom", maven.NewDependency("org.example", "lib", "1.0"), "pom", false, "org/example/lib/1.0/lib-1.0.pom"},
		{"snapshot revision", snap, "jar", false, "org/example/lib/1.0-SNAPSHOT/lib-1.0-20240102.030405-7.jar"},
		{"classifier", classified, "jar", false, "org/example/lib/2.1/lib-2.1-sources.jar"},
		{"dot group", maven.NewDependency("org.example", "lib", "1.0"), "jar", true, "org.example/lib/1.0/lib-1.0.jar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPath(DefaultPathPattern, tt.dep, tt.ext, tt.dotGroup); got != tt.want {
				t.Errorf("FormatPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOriginFolder(t *testing.T) {
	tests := map[string]string{
		"https://repo1.maven.org/maven2/":           "repo1.maven.org_maven2",
		"http://localhost:8081/repository/releases": "localhost_8081_repository_releases",
	}
	for in, want := range tests {
		if got := OriginFolder(in); got != want {
			t.Errorf("OriginFolder(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCache_PathByOrigin(t *testing.T) {
	c := newTestCache(t, "")
	dep := maven.NewDependency("g", "a", "1")

	if got, want := c.Path(dep, "jar"), filepath.Join(c.Root(), "local", "g", "a", "1", "a-1.jar"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
	dep.Origin = "https://repo.example.com/maven2"
	if got, want := c.Path(dep, "jar"), filepath.Join(c.Root(), "remote", "repo.example.com_maven2", "g", "a", "1", "a-1.jar"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestCache_LocateLayers(t *testing.T) {
	system := t.TempDir()
	c := newTestCache(t, system)

	// remote folder hit for a dependency without origin
	fromRemote := maven.NewDependency("g", "remote", "1")
	withOrigin := fromRemote.Clone()
	withOrigin.Origin = "https://other.example.com/repo"
	if _, err := c.Write(withOrigin, "jar", []byte("remote"), time.Time{}); err != nil {
		t.Fatal(err)
	}
	path, ok := c.Locate(fromRemote, "jar")
	if !ok || path != c.Path(withOrigin, "jar") {
		t.Errorf("Locate() = %q, %v; want remote folder hit", path, ok)
	}

	// system cache hit is copied to the canonical path with its mtime
	fromSystem := maven.NewDependency("org.sys", "lib", "2")
	src := filepath.Join(system, "org", "sys", "lib", "2", "lib-2.jar")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("system"), 0o644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2023, 5, 6, 7, 8, 9, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	path, ok = c.Locate(fromSystem, "jar")
	if !ok || path != c.Path(fromSystem, "jar") {
		t.Fatalf("Locate() = %q, %v; want copy at canonical path", path, ok)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("copied mtime = %v, want %v", info.ModTime(), mtime)
	}

	// miss
	missing := maven.NewDependency("g", "missing", "1")
	path, ok = c.Locate(missing, "jar")
	if ok || path != c.Path(missing, "jar") {
		t.Errorf("Locate() = %q, %v; want canonical miss", path, ok)
	}
}

func TestCache_StageAbortLeavesNothing(t *testing.T) {
	c := newTestCache(t, "")
	dep := maven.NewDependency("g", "a", "1")

	st, err := c.Stage(dep, "jar")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.Write([]byte("partial")); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Locate(dep, "jar"); ok {
		t.Error("staged artifact visible before commit")
	}
	st.Abort()

	entries, _ := os.ReadDir(filepath.Dir(c.Path(dep, "jar")))
	if len(entries) != 0 {
		t.Errorf("directory not empty after abort: %v", entries)
	}
	if err := st.Commit(time.Time{}); err == nil {
		t.Error("Commit() after Abort() should fail")
	}
}

func TestCache_RemoveAndClear(t *testing.T) {
	c := newTestCache(t, "")
	dep := maven.NewDependency("g", "a", "1")
	if _, err := c.Write(dep, "jar", []byte("x"), time.Time{}); err != nil {
		t.Fatal(err)
	}
	remote := dep.Clone()
	remote.Origin = "https://repo.example.com"
	if _, err := c.Write(remote, "jar", []byte("y"), time.Time{}); err != nil {
		t.Fatal(err)
	}

	stats, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Artifacts != 2 || stats.Bytes != 2 || len(stats.Origins) != 1 {
		t.Errorf("Stats() = %+v", stats)
	}

	if err := c.Remove(dep, "jar"); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Locate(dep, "jar"); ok {
		t.Error("artifact still located after Remove()")
	}

	if err := c.UpdateData(dep, func(d *Data) { d.Origin = "x" }); err != nil {
		t.Fatal(err)
	}
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(c.DataPath(dep)); !os.IsNotExist(err) {
		t.Error("side-data survived Clear()")
	}
}

func TestCache_StatsSkipsSidecars(t *testing.T) {
	c := newTestCache(t, "")
	dep := maven.NewDependency("g", "a", "1")
	for ext, body := range map[string]string{
		"jar":      "jar",
		"jar.sha1": "0123456789abcdef0123456789abcdef01234567",
		"pom":      "<project/>",
		"pom.sha1": "76543210fedcba9876543210fedcba9876543210",
	} {
		if _, err := c.Write(dep, ext, []byte(body), time.Time{}); err != nil {
			t.Fatal(err)
		}
	}
	jar, _ := c.Locate(dep, "jar")
	if err := os.WriteFile(filepath.Join(filepath.Dir(jar), "a-1.moxie"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	stats, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Artifacts != 2 || stats.Bytes != int64(len("jar")+len("<project/>")) {
		t.Errorf("Stats() = %+v, want the jar and the pom only", stats)
	}
}

func TestCache_UpdateDataConcurrent(t *testing.T) {
	c := newTestCache(t, "")
	dep := maven.NewDependency("g", "a", "1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.UpdateData(dep, func(d *Data) {
				d.LastChecked = d.LastChecked.Add(time.Second)
			})
		}()
	}
	wg.Wait()

	d, err := c.ReadData(dep)
	if err != nil {
		t.Fatal(err)
	}
	if got := d.LastChecked.Sub(time.Time{}); got != 20*time.Second {
		t.Errorf("LastChecked advanced by %v, want 20s (lost update)", got)
	}
}

func TestCache_Metadata(t *testing.T) {
	c := newTestCache(t, "")
	dep := maven.NewDependency("g", "a", "1.0-SNAPSHOT")

	md, err := c.ReadMetadata(dep)
	if err != nil || md != nil {
		t.Fatalf("ReadMetadata() = %v, %v; want nil, nil", md, err)
	}
	want := &maven.Metadata{
		GroupID: "g", ArtifactID: "a", Version: "1.0-SNAPSHOT",
		Snapshots: []maven.Snapshot{{Timestamp: "20240101.000000", BuildNumber: 1}},
	}
	if err := c.WriteMetadata(dep, want); err != nil {
		t.Fatal(err)
	}
	got, err := c.ReadMetadata(dep)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Snapshots) != 1 || got.Snapshots[0] != want.Snapshots[0] {
		t.Errorf("ReadMetadata() snapshots = %v", got.Snapshots)
	}
	if filepath.Base(filepath.Dir(c.MetadataPath(dep))) != "1.0-SNAPSHOT" {
		t.Errorf("snapshot metadata path = %s, want version level", c.MetadataPath(dep))
	}
	release := maven.NewDependency("g", "a", "1.0")
	if filepath.Base(filepath.Dir(c.MetadataPath(release))) != "a" {
		t.Errorf("release metadata path = %s, want artifact level", c.MetadataPath(release))
	}
}

package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/repository"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadSettings_Missing(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "settings.toml"))
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if len(s.Repositories) != 1 || s.Repositories[0].ID != repository.Central.ID {
		t.Errorf("Repositories = %v, want central", s.Repositories)
	}
	if s.Purge != DefaultPurgePolicy || s.Workers != 8 {
		t.Errorf("defaults = %+v", s)
	}
}

func TestLoadSettings(t *testing.T) {
	path := writeFile(t, t.TempDir(), "settings.toml", `
root = "/var/cache/moxie"
updatePolicy = "interval:30"
strictProperties = true
connectTimeout = "5s"

[purge]
keep = 3
days = 14

[[repositories]]
id = "mirror"
url = "https://mirror.example.com/maven2/"

[[proxies]]
id = "corp"
active = true
host = "proxy.example.com"
username = "build"
`)
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Root != "/var/cache/moxie" || !s.StrictProperties {
		t.Errorf("settings = %+v", s)
	}
	if s.ConnectTimeout.Duration != 5*time.Second {
		t.Errorf("ConnectTimeout = %v", s.ConnectTimeout)
	}
	if s.Purge.Keep != 3 || s.Purge.Days != 14 {
		t.Errorf("Purge = %+v", s.Purge)
	}
	if len(s.Repositories) != 1 || s.Repositories[0].ID != "mirror" {
		t.Errorf("Repositories = %v, want only the mirror", s.Repositories)
	}

	s.ApplyEnv(envMap(map[string]string{
		EnvRoot:          "/tmp/moxie",
		EnvOffline:       "true",
		EnvProxyPassword: "secret",
	}))
	if s.Root != "/tmp/moxie" || !s.Offline || s.Proxies[0].Password != "secret" {
		t.Errorf("after ApplyEnv: %+v", s)
	}
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := map[string]string{
		"policy":   `updatePolicy = "hourly"`,
		"purge":    "[purge]\nkeep = -1",
		"unknown":  `colour = "blue"`,
		"duration": `readTimeout = "soon"`,
		"proxy":    "[[proxies]]\nid = \"p\"",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "settings.toml", content)
			if _, err := LoadSettings(path); err == nil {
				t.Errorf("LoadSettings(%s) succeeded", content)
			}
		})
	}
}

func TestNewResolverContext(t *testing.T) {
	dir := t.TempDir()
	settings := writeFile(t, dir, "settings.toml", `root = "`+filepath.ToSlash(filepath.Join(dir, "root"))+`"
mavenCache = ""
`)
	descriptor := writeFile(t, dir, DescriptorFile, `groupId = "com.example"
artifactId = "app"
version = "1.0"
repositories = ["https://repo.example.com/maven2/"]
dependencies = ["g:a:1"]
`)

	rc, err := NewResolverContext(context.Background(), ContextOptions{
		SettingsPath:   settings,
		DescriptorPath: descriptor,
		Offline:        true,
		Logger:         log.New(io.Discard),
		LookupEnv:      envMap(nil),
	})
	if err != nil {
		t.Fatalf("NewResolverContext() error = %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })

	if rc.BuildID == "" {
		t.Error("BuildID is empty")
	}
	if rc.Cache.Root() != filepath.Join(dir, "root") {
		t.Errorf("cache root = %q", rc.Cache.Root())
	}
	if !rc.Client.Offline() {
		t.Error("client should be offline")
	}
	repos := rc.Client.Repositories()
	if len(repos) != 1 || repos[0].URL != "https://repo.example.com/maven2/" {
		t.Errorf("repositories = %v, want the descriptor's", repos)
	}

	s, err := rc.ProjectSolver(context.Background())
	if err != nil {
		t.Fatalf("ProjectSolver() error = %v", err)
	}
	project, err := s.Project(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if project.Coordinates() != "com.example:app:1.0" {
		t.Errorf("project = %s", project.Coordinates())
	}

	// offline with an empty cache: the dependency cannot be resolved
	_, err = s.Solve(context.Background(), "compile")
	if !errors.Is(err, errors.ErrCodeUnresolvedDependency) {
		t.Errorf("Solve() error = %v, want UNRESOLVED_DEPENDENCY", err)
	}
}

func TestResolverContext_NoDescriptor(t *testing.T) {
	dir := t.TempDir()
	settings := writeFile(t, dir, "settings.toml", `root = "`+filepath.ToSlash(filepath.Join(dir, "root"))+`"`)
	rc, err := NewResolverContext(context.Background(), ContextOptions{
		SettingsPath: settings,
		Logger:       log.New(io.Discard),
		LookupEnv:    envMap(nil),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	if _, err := rc.Project(context.Background()); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Project() error = %v, want INVALID_INPUT", err)
	}
}

package repository

import (
	"testing"
	"time"

	"github.com/matzehuels/moxie/pkg/maven"
)

func TestParseUpdatePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    UpdatePolicy
		wantErr bool
	}{
		{"", DefaultUpdatePolicy, false},
		{"always", UpdatePolicy{Kind: PolicyAlways}, false},
		{"Never", UpdatePolicy{Kind: PolicyNever}, false},
		{"interval:90", UpdatePolicy{Kind: PolicyInterval, Interval: 90 * time.Minute}, false},
		{"interval:0", UpdatePolicy{}, true},
		{"hourly", UpdatePolicy{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUpdatePolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUpdatePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseUpdatePolicy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
	if s := (UpdatePolicy{Kind: PolicyInterval, Interval: 90 * time.Minute}).String(); s != "interval:90" {
		t.Errorf("String() = %q", s)
	}
}

func TestUpdatePolicy_Due(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	morning := time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)

	tests := []struct {
		name   string
		policy UpdatePolicy
		last   time.Time
		want   bool
	}{
		{"never checked", UpdatePolicy{Kind: PolicyNever}, time.Time{}, true},
		{"never", UpdatePolicy{Kind: PolicyNever}, yesterday, false},
		{"always", UpdatePolicy{Kind: PolicyAlways}, now, true},
		{"daily same day", DefaultUpdatePolicy, morning, false},
		{"daily yesterday", DefaultUpdatePolicy, yesterday, true},
		{"interval fresh", UpdatePolicy{Kind: PolicyInterval, Interval: time.Hour}, now.Add(-30 * time.Minute), false},
		{"interval stale", UpdatePolicy{Kind: PolicyInterval, Interval: time.Hour}, now.Add(-2 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Due(tt.last, now); got != tt.want {
				t.Errorf("Due() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	r, err := Lookup("central")
	if err != nil || r.URL != Central.URL {
		t.Errorf("Lookup(central) = %+v, %v", r, err)
	}
	r, err = Lookup("https://nexus.example.com/repository/public/")
	if err != nil || r.ID != r.URL {
		t.Errorf("Lookup(url) = %+v, %v", r, err)
	}
	if _, err := Lookup("not a repo"); err == nil {
		t.Error("Lookup() accepted garbage")
	}
}

func TestRepository_URLs(t *testing.T) {
	r := Repository{URL: "https://repo.example.com/maven2"}
	dep := maven.NewDependency("org.example", "lib", "1.0")
	if got := r.ArtifactURL(dep, "pom"); got != "https://repo.example.com/maven2/org/example/lib/1.0/lib-1.0.pom" {
		t.Errorf("ArtifactURL() = %q", got)
	}
	if got := r.MetadataURL(dep); got != "https://repo.example.com/maven2/org/example/lib/maven-metadata.xml" {
		t.Errorf("MetadataURL() = %q", got)
	}
	snap := maven.NewDependency("org.example", "lib", "1.1-SNAPSHOT")
	if got := r.MetadataURL(snap); got != "https://repo.example.com/maven2/org/example/lib/1.1-SNAPSHOT/maven-metadata.xml" {
		t.Errorf("MetadataURL(snapshot) = %q", got)
	}
	if Central.Serves(snap) || !SonatypeSnapshots.Serves(snap) || SonatypeSnapshots.Serves(dep) {
		t.Error("Serves() ignores release/snapshot restrictions")
	}
}

func TestParseChecksum(t *testing.T) {
	sum := "da39a3ee5e6b4b0d3255bfef95601890afd80709"
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{sum, sum, true},
		{"DA39A3EE5E6B4B0D3255BFEF95601890AFD80709  file.jar\n", sum, true},
		{"", "", false},
		{"not-a-sum", "", false},
	}
	for _, tt := range tests {
		got, ok := parseChecksum([]byte(tt.in))
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseChecksum(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

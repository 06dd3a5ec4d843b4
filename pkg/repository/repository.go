package repository

import (
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/moxie/pkg/artifacts"
	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/maven"
)

// Repository is a remote Maven repository.
type Repository struct {
	ID            string `toml:"id"`
	URL           string `toml:"url"`
	Username      string `toml:"username"`
	Password      string `toml:"password"`
	ReleasesOnly  bool   `toml:"releasesOnly"`
	SnapshotsOnly bool   `toml:"snapshotsOnly"`
	// UpdatePolicy overrides how long a not-found answer from this
	// repository is remembered. Empty uses the client's policy.
	UpdatePolicy string `toml:"updatePolicy"`
}

// Well-known repositories, addressable by ID in descriptors.
var (
	Central = Repository{
		ID:           "central",
		URL:          "https://repo1.maven.org/maven2/",
		ReleasesOnly: true,
	}
	SonatypeSnapshots = Repository{
		ID:            "sonatype-snapshots",
		URL:           "https://oss.sonatype.org/content/repositories/snapshots/",
		SnapshotsOnly: true,
	}
	GoogleMaven = Repository{
		ID:           "google",
		URL:          "https://maven.google.com/",
		ReleasesOnly: true,
	}
)

var wellKnown = map[string]Repository{
	"central":            Central,
	"mavencentral":       Central,
	"sonatype-snapshots": SonatypeSnapshots,
	"google":             GoogleMaven,
}

// Lookup resolves a repository reference: a well-known ID or a URL.
func Lookup(ref string) (Repository, error) {
	ref = strings.TrimSpace(ref)
	if r, ok := wellKnown[strings.ToLower(ref)]; ok {
		return r, nil
	}
	if err := errors.ValidateURL(ref); err != nil {
		return Repository{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "unknown repository %q", ref)
	}
	return Repository{ID: ref, URL: ref}, nil
}

// Serves reports whether the repository hosts dep's kind of version.
func (r Repository) Serves(dep *maven.Dependency) bool {
	if dep.IsSnapshot() {
		return !r.ReleasesOnly
	}
	return !r.SnapshotsOnly
}

func (r Repository) base() string { return strings.TrimSuffix(r.URL, "/") + "/" }

// ArtifactURL returns the URL of dep's file with extension ext.
func (r Repository) ArtifactURL(dep *maven.Dependency, ext string) string {
	return r.base() + artifacts.RepositoryPath(dep, ext)
}

// MetadataURL returns the maven-metadata.xml URL for dep: version level for
// snapshots, artifact level otherwise.
func (r Repository) MetadataURL(dep *maven.Dependency) string {
	p := strings.ReplaceAll(dep.GroupID, ".", "/") + "/" + dep.ArtifactID + "/"
	if dep.IsSnapshot() {
		p += dep.Version + "/"
	}
	return r.base() + p + maven.MetadataFile
}

// PolicyKind enumerates update policies.
type PolicyKind string

const (
	PolicyAlways   PolicyKind = "always"
	PolicyDaily    PolicyKind = "daily"
	PolicyNever    PolicyKind = "never"
	PolicyInterval PolicyKind = "interval"
)

// UpdatePolicy decides when cached metadata is checked against the
// repositories again.
type UpdatePolicy struct {
	Kind     PolicyKind
	Interval time.Duration // PolicyInterval only
}

// DefaultUpdatePolicy matches Maven's default.
var DefaultUpdatePolicy = UpdatePolicy{Kind: PolicyDaily}

// ParseUpdatePolicy parses "always", "daily", "never" or "interval:<minutes>".
// An empty string yields the default policy.
func ParseUpdatePolicy(s string) (UpdatePolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return DefaultUpdatePolicy, nil
	case string(PolicyAlways), string(PolicyDaily), string(PolicyNever):
		return UpdatePolicy{Kind: PolicyKind(s)}, nil
	}
	if mins, ok := strings.CutPrefix(s, string(PolicyInterval)+":"); ok {
		n, err := strconv.Atoi(mins)
		if err == nil && n > 0 {
			return UpdatePolicy{Kind: PolicyInterval, Interval: time.Duration(n) * time.Minute}, nil
		}
	}
	return UpdatePolicy{}, errors.New(errors.ErrCodeInvalidInput,
		"invalid update policy %q (want always, daily, never or interval:<minutes>)", s)
}

func (p UpdatePolicy) String() string {
	if p.Kind == PolicyInterval {
		return string(PolicyInterval) + ":" + strconv.Itoa(int(p.Interval/time.Minute))
	}
	return string(p.Kind)
}

// Due reports whether something last checked at lastChecked must be
// checked again at now.
func (p UpdatePolicy) Due(lastChecked, now time.Time) bool {
	if lastChecked.IsZero() {
		return true
	}
	switch p.Kind {
	case PolicyAlways:
		return true
	case PolicyNever:
		return false
	case PolicyInterval:
		return now.Sub(lastChecked) >= p.Interval
	default:
		y, m, d := now.Date()
		midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		return lastChecked.Before(midnight)
	}
}

// MissTTL is how long a not-found answer is remembered. Zero means misses
// are not remembered.
func (p UpdatePolicy) MissTTL() time.Duration {
	switch p.Kind {
	case PolicyAlways:
		return 0
	case PolicyInterval:
		return p.Interval
	default:
		return 24 * time.Hour
	}
}

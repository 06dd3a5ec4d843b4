package maven

import (
	"fmt"
	"strings"

	packageurl "github.com/package-url/packageurl-go"

	"github.com/matzehuels/moxie/pkg/errors"
)

// Kind distinguishes how an artifact is located and emitted on a classpath.
type Kind string

const (
	// KindMaven artifacts are fetched from repositories and cached.
	KindMaven Kind = "maven"
	// KindSystem artifacts live at a fixed local path and are never fetched.
	KindSystem Kind = "system"
)

// Meta-version labels resolved against repository metadata.
const (
	VersionRelease  = "RELEASE"
	VersionLatest   = "LATEST"
	SnapshotSuffix  = "-SNAPSHOT"
	DefaultType     = "jar"
	DefaultPOMType  = "pom"
	excludeWildcard = "*"
)

// Dependency identifies one artifact and carries the per-resolution state the
// solver needs (ring, origin, exclusions).
//
// Two dependencies are equal iff their [Dependency.DetailedCoordinates] match.
// Ring is only meaningful within one resolution pass; callers that change it
// must work on a [Dependency.Clone].
type Dependency struct {
	Kind                Kind     `json:"kind,omitempty"`
	GroupID             string   `json:"groupId"`
	ArtifactID          string   `json:"artifactId"`
	Version             string   `json:"version"`
	Revision            string   `json:"revision,omitempty"`
	Classifier          string   `json:"classifier,omitempty"`
	Type                string   `json:"type,omitempty"`
	Optional            bool     `json:"optional,omitempty"`
	ResolveTransitively bool     `json:"resolveTransitively"`
	Exclusions          []string `json:"exclusions,omitempty"`
	Ring                int      `json:"ring"`
	Origin              string   `json:"origin,omitempty"`
	Path                string   `json:"path,omitempty"` // system dependencies only
}

// NewDependency creates a maven dependency with the default type.
func NewDependency(groupID, artifactID, version string) *Dependency {
	return &Dependency{
		Kind:                KindMaven,
		GroupID:             groupID,
		ArtifactID:          artifactID,
		Version:             version,
		Type:                DefaultType,
		ResolveTransitively: true,
	}
}

// ParseDependency parses "group:artifact[:version[:classifier]][@type]".
//
// An explicit @type suffix disables transitive resolution, matching the
// convention that a typed declaration asks for exactly one artifact.
func ParseDependency(def string) (*Dependency, error) {
	def = strings.TrimSpace(def)
	if def == "" {
		return nil, errors.New(errors.ErrCodeInvalidCoordinate, "empty dependency definition")
	}

	dep := &Dependency{Kind: KindMaven, Type: DefaultType, ResolveTransitively: true}
	if i := strings.LastIndexByte(def, '@'); i >= 0 {
		dep.Type = def[i+1:]
		dep.ResolveTransitively = false
		def = def[:i]
		if dep.Type == "" {
			return nil, errors.New(errors.ErrCodeInvalidCoordinate, "empty type in %q", def+"@")
		}
	}

	parts := strings.Split(def, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return nil, errors.New(errors.ErrCodeInvalidCoordinate,
			"invalid maven coordinate %q (expected group:artifact[:version[:classifier]])", def)
	}
	dep.GroupID = parts[0]
	dep.ArtifactID = parts[1]
	if len(parts) > 2 {
		dep.Version = parts[2]
	}
	if len(parts) > 3 {
		dep.Classifier = parts[3]
	}

	if err := errors.ValidateCoordinatePart("groupId", dep.GroupID); err != nil {
		return nil, err
	}
	if err := errors.ValidateCoordinatePart("artifactId", dep.ArtifactID); err != nil {
		return nil, err
	}
	return dep, nil
}

// Extension returns the artifact's type, defaulting to jar.
func (d *Dependency) Extension() string {
	if d.Type == "" {
		return DefaultType
	}
	return d.Type
}

// ResolvedVersion returns the concrete revision if one was resolved, else the
// declared version.
func (d *Dependency) ResolvedVersion() string {
	if d.Revision != "" {
		return d.Revision
	}
	return d.Version
}

// Coordinates returns "group:artifact:version[:classifier]".
func (d *Dependency) Coordinates() string {
	s := d.GroupID + ":" + d.ArtifactID + ":" + d.Version
	if d.Classifier != "" {
		s += ":" + d.Classifier
	}
	return s
}

// DetailedCoordinates returns "group:artifact:version:classifier:type", the
// identity used for equality.
func (d *Dependency) DetailedCoordinates() string {
	return d.GroupID + ":" + d.ArtifactID + ":" + d.Version + ":" + d.Classifier + ":" + d.Extension()
}

// ManagementID returns "group:artifact", the key of dependency management tables.
func (d *Dependency) ManagementID() string {
	return d.GroupID + ":" + d.ArtifactID
}

// MediationID returns "group:artifact:classifier:type". Coordinates differing
// only by version collide on it.
func (d *Dependency) MediationID() string {
	return d.GroupID + ":" + d.ArtifactID + ":" + d.Classifier + ":" + d.Extension()
}

// Equal reports whether two dependencies name the same artifact.
func (d *Dependency) Equal(o *Dependency) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.DetailedCoordinates() == o.DetailedCoordinates()
}

// IsSnapshot reports whether the version is a -SNAPSHOT label.
func (d *Dependency) IsSnapshot() bool {
	return strings.HasSuffix(d.Version, SnapshotSuffix)
}

// IsMetaVersion reports whether the version must be resolved against
// repository metadata (RELEASE, LATEST or -SNAPSHOT).
func (d *Dependency) IsMetaVersion() bool {
	return d.Version == VersionRelease || d.Version == VersionLatest || d.IsSnapshot()
}

// IsSystem reports whether the dependency points at a fixed local file.
func (d *Dependency) IsSystem() bool { return d.Kind == KindSystem }

// IsPOM reports whether the dependency names a POM-only artifact.
func (d *Dependency) IsPOM() bool { return d.Extension() == DefaultPOMType }

// Excludes reports whether other matches one of d's exclusion patterns.
// Patterns are "group:artifact", "group", "group:*", "*:artifact" or "*".
func (d *Dependency) Excludes(other *Dependency) bool {
	return MatchesExclusion(d.Exclusions, other)
}

// MatchesExclusion reports whether dep matches any of the patterns.
func MatchesExclusion(patterns []string, dep *Dependency) bool {
	for _, p := range patterns {
		if matchExclusion(p, dep) {
			return true
		}
	}
	return false
}

func matchExclusion(pattern string, dep *Dependency) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	if pattern == excludeWildcard {
		return true
	}
	group, artifact, hasArtifact := strings.Cut(pattern, ":")
	if group != excludeWildcard && group != dep.GroupID {
		return false
	}
	if !hasArtifact || artifact == excludeWildcard {
		return true
	}
	return artifact == dep.ArtifactID
}

// Clone returns a deep copy that can be mutated without affecting d.
func (d *Dependency) Clone() *Dependency {
	c := *d
	if d.Exclusions != nil {
		c.Exclusions = append([]string(nil), d.Exclusions...)
	}
	return &c
}

// PURL returns the package URL of the resolved artifact.
func (d *Dependency) PURL() string {
	q := map[string]string{}
	if d.Classifier != "" {
		q["classifier"] = d.Classifier
	}
	if ext := d.Extension(); ext != DefaultType {
		q["type"] = ext
	}
	if d.Origin != "" {
		q["repository_url"] = d.Origin
	}
	p := packageurl.NewPackageURL(packageurl.TypeMaven, d.GroupID, d.ArtifactID,
		d.ResolvedVersion(), packageurl.QualifiersFromMap(q), "")
	return p.ToString()
}

// String returns the coordinates, annotated with the ring for transitive
// dependencies.
func (d *Dependency) String() string {
	if d.Ring > 0 {
		return fmt.Sprintf("%s (ring %d)", d.Coordinates(), d.Ring)
	}
	return d.Coordinates()
}

package maven

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Timestamp layouts used by maven-metadata.xml.
const (
	LastUpdatedLayout = "20060102150405"
	SnapshotLayout    = "20060102.150405"
)

// Snapshot is one deployed revision of a -SNAPSHOT version.
type Snapshot struct {
	Timestamp   string // yyyyMMdd.HHmmss, UTC
	BuildNumber int
}

// Time parses the snapshot timestamp. Malformed timestamps yield the zero time.
func (s Snapshot) Time() time.Time {
	t, err := time.ParseInLocation(SnapshotLayout, s.Timestamp, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Revision returns the concrete version string for this snapshot of
// baseVersion, e.g. "1.0-20240102.030405-7".
func (s Snapshot) Revision(baseVersion string) string {
	return fmt.Sprintf("%s-%s-%d", strings.TrimSuffix(baseVersion, SnapshotSuffix), s.Timestamp, s.BuildNumber)
}

func (s Snapshot) less(o Snapshot) bool {
	if s.Timestamp != o.Timestamp {
		return s.Timestamp < o.Timestamp
	}
	return s.BuildNumber < o.BuildNumber
}

// ParseSnapshotRevision splits a timestamped revision back into its snapshot.
// It reports false for anything that is not "<base>-<timestamp>-<build>".
func ParseSnapshotRevision(revision string) (Snapshot, bool) {
	i := strings.LastIndexByte(revision, '-')
	if i <= 0 {
		return Snapshot{}, false
	}
	var build int
	if _, err := fmt.Sscanf(revision[i+1:], "%d", &build); err != nil {
		return Snapshot{}, false
	}
	rest := revision[:i]
	j := strings.LastIndexByte(rest, '-')
	if j < 0 {
		return Snapshot{}, false
	}
	ts := rest[j+1:]
	if _, err := time.Parse(SnapshotLayout, ts); err != nil {
		return Snapshot{}, false
	}
	return Snapshot{Timestamp: ts, BuildNumber: build}, true
}

// Metadata is the per-artifact (or per-snapshot-version) maven-metadata.xml
// document.
//
// Latest is the highest known version and Release the highest version
// without a pre-release qualifier; both are recomputed by [Metadata.Merge].
type Metadata struct {
	GroupID     string
	ArtifactID  string
	Version     string // set on snapshot-version metadata
	Latest      string
	Release     string
	Versions    []string
	Snapshots   []Snapshot
	LastUpdated time.Time
}

// Merge folds an older copy into m: versions and snapshots are unioned and
// re-sorted, latest and release recomputed, and the later lastUpdated kept.
// A nil older is allowed.
func (m *Metadata) Merge(older *Metadata) {
	if older != nil {
		if m.GroupID == "" {
			m.GroupID = older.GroupID
		}
		if m.ArtifactID == "" {
			m.ArtifactID = older.ArtifactID
		}
		if m.Version == "" {
			m.Version = older.Version
		}
		m.Versions = append(m.Versions, older.Versions...)
		m.Snapshots = append(m.Snapshots, older.Snapshots...)
		if older.LastUpdated.After(m.LastUpdated) {
			m.LastUpdated = older.LastUpdated
		}
		// versions named only in latest/release still count
		m.Versions = append(m.Versions, older.Latest, older.Release)
	}
	m.Versions = append(m.Versions, m.Latest, m.Release)
	m.normalize()
}

func (m *Metadata) normalize() {
	seen := make(map[string]bool, len(m.Versions))
	versions := m.Versions[:0]
	for _, v := range m.Versions {
		if v == "" || v == VersionRelease || v == VersionLatest || seen[v] {
			continue
		}
		seen[v] = true
		versions = append(versions, v)
	}
	sort.SliceStable(versions, func(i, j int) bool {
		return CompareVersions(versions[i], versions[j]) < 0
	})
	m.Versions = versions

	m.Latest = ""
	m.Release = ""
	if n := len(versions); n > 0 {
		m.Latest = versions[n-1]
	}
	for i := len(versions) - 1; i >= 0; i-- {
		if IsReleaseVersion(versions[i]) {
			m.Release = versions[i]
			break
		}
	}

	seenSnap := make(map[Snapshot]bool, len(m.Snapshots))
	snaps := m.Snapshots[:0]
	for _, s := range m.Snapshots {
		if s.Timestamp == "" || seenSnap[s] {
			continue
		}
		seenSnap[s] = true
		snaps = append(snaps, s)
	}
	sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].less(snaps[j]) })
	m.Snapshots = snaps
}

// LatestSnapshot returns the most recent snapshot, if any.
func (m *Metadata) LatestSnapshot() (Snapshot, bool) {
	if len(m.Snapshots) == 0 {
		return Snapshot{}, false
	}
	best := m.Snapshots[0]
	for _, s := range m.Snapshots[1:] {
		if best.less(s) {
			best = s
		}
	}
	return best, true
}

// ResolveMetaVersion returns a copy of dep with its meta-version replaced by
// the concrete value found in m: RELEASE and LATEST become the release or
// latest version, and a -SNAPSHOT version gets the newest snapshot as its
// revision. Other dependencies are returned unchanged (still as a copy).
func (m *Metadata) ResolveMetaVersion(dep *Dependency) *Dependency {
	out := dep.Clone()
	switch {
	case dep.Version == VersionRelease:
		if m.Release != "" {
			out.Version = m.Release
			out.Revision = m.Release
		}
	case dep.Version == VersionLatest:
		if m.Latest != "" {
			out.Version = m.Latest
			out.Revision = m.Latest
		}
	case dep.IsSnapshot():
		if s, ok := m.LatestSnapshot(); ok {
			out.Revision = s.Revision(dep.Version)
		} else {
			// locally installed snapshots have no timestamped revisions
			out.Revision = dep.Version
		}
	}
	return out
}

// PurgeSnapshots returns the snapshots to delete under a retention policy.
// The keep most recent snapshots always survive. Of the rest, those older
// than purgeAfterDays (counted from UTC midnight of now) are returned when
// purgeAfterDays > 0; otherwise all of them are. The result is ordered
// oldest first and m is not modified.
func (m *Metadata) PurgeSnapshots(keep, purgeAfterDays int, now time.Time) []Snapshot {
	if keep < 0 {
		keep = 0
	}
	snaps := append([]Snapshot(nil), m.Snapshots...)
	sort.SliceStable(snaps, func(i, j int) bool { return snaps[j].less(snaps[i]) })
	if len(snaps) <= keep {
		return nil
	}
	remainder := snaps[keep:]

	var purge []Snapshot
	if purgeAfterDays > 0 {
		y, mo, d := now.UTC().Date()
		cutoff := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -purgeAfterDays)
		for _, s := range remainder {
			if s.Time().Before(cutoff) {
				purge = append(purge, s)
			}
		}
	} else {
		purge = append(purge, remainder...)
	}
	sort.SliceStable(purge, func(i, j int) bool { return purge[i].less(purge[j]) })
	return purge
}

// RemoveSnapshots drops the given snapshots from m.
func (m *Metadata) RemoveSnapshots(purged []Snapshot) {
	if len(purged) == 0 {
		return
	}
	drop := make(map[Snapshot]bool, len(purged))
	for _, s := range purged {
		drop[s] = true
	}
	kept := m.Snapshots[:0]
	for _, s := range m.Snapshots {
		if !drop[s] {
			kept = append(kept, s)
		}
	}
	m.Snapshots = kept
}

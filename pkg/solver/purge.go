package solver

import (
	"context"
	"time"

	"github.com/matzehuels/moxie/pkg/maven"
)

// Purged reports the snapshots removed for one dependency.
type Purged struct {
	Dependency *maven.Dependency
	Snapshots  []maven.Snapshot
	Files      int
}

// PurgeSnapshots applies a retention policy to every snapshot dependency of
// the project, and to snapshot parents of their POMs. The keep newest
// snapshots of each survive; of the rest, those older than days are removed,
// or all of them when days is zero.
func (s *Solver) PurgeSnapshots(ctx context.Context, keep, days int) ([]Purged, error) {
	all, err := s.SolveAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var targets []*maven.Dependency
	add := func(d *maven.Dependency) {
		if !d.IsSnapshot() || d.IsSystem() || seen[d.ManagementID()+":"+d.Version] {
			return
		}
		seen[d.ManagementID()+":"+d.Version] = true
		targets = append(targets, d)
	}
	for _, scope := range maven.ClasspathScopes {
		for _, d := range all[scope] {
			add(d)
			s.snapshotParents(ctx, d, add)
		}
	}

	now := time.Now()
	var out []Purged
	for _, d := range targets {
		md, err := s.client.FetchMetadata(ctx, d)
		if err != nil {
			s.logger.Debug("no metadata, nothing to purge", "dependency", d.Coordinates(), "err", err)
			continue
		}
		snaps := md.PurgeSnapshots(keep, days, now)
		if len(snaps) == 0 {
			continue
		}
		n, err := s.cache.PurgeSnapshots(d, snaps)
		if err != nil {
			return out, err
		}
		s.logger.Info("purged snapshots", "dependency", d.Coordinates(), "revisions", len(snaps), "files", n)
		out = append(out, Purged{Dependency: d, Snapshots: snaps, Files: n})
	}
	return out, nil
}

// snapshotParents walks dep's parent chain and passes every snapshot
// parent to add.
func (s *Solver) snapshotParents(ctx context.Context, dep *maven.Dependency, add func(*maven.Dependency)) {
	seen := make(map[string]bool)
	for cur := dep; cur != nil && !cur.IsSystem(); {
		entry, err := s.readPOM(ctx, cur)
		if err != nil || entry.pom.Parent == nil {
			return
		}
		parent := entry.pom.Parent.Clone()
		if seen[parent.Coordinates()] {
			return
		}
		seen[parent.Coordinates()] = true
		add(parent)
		cur = parent
	}
}

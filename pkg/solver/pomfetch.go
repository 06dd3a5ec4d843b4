package solver

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/maven"
	"github.com/matzehuels/moxie/pkg/pom"
)

// pomEntry is a parsed POM together with the file it came from.
type pomEntry struct {
	dep     *maven.Dependency // the pom coordinate, version resolved
	pom     *pom.POM
	path    string
	modTime time.Time
}

// pomCoordinate returns the coordinate of dep's POM.
func pomCoordinate(dep *maven.Dependency) *maven.Dependency {
	p := dep.Clone()
	p.Type = maven.DefaultPOMType
	p.Classifier = ""
	p.Exclusions = nil
	p.Ring = 0
	return p
}

// locatePOM is the reader's locator: it resolves the version and makes
// sure the POM is cached.
func (s *Solver) locatePOM(ctx context.Context, dep *maven.Dependency) (string, error) {
	resolved, err := s.client.ResolveVersion(ctx, dep)
	if err != nil {
		return "", err
	}
	return s.client.Fetch(ctx, pomCoordinate(resolved), maven.DefaultPOMType)
}

// readPOM fetches and parses dep's POM. Concurrent calls for the same POM
// share one read.
func (s *Solver) readPOM(ctx context.Context, dep *maven.Dependency) (*pomEntry, error) {
	if dep.IsSystem() {
		return nil, errors.New(errors.ErrCodeArtifactNotFound, "system dependency %s has no pom", dep.Coordinates())
	}
	coord := pomCoordinate(dep)
	if coord.IsMetaVersion() && coord.Revision == "" {
		resolved, err := s.client.ResolveVersion(ctx, coord)
		if err != nil {
			return nil, err
		}
		coord = resolved
	}

	v, err, _ := s.fetching.Do(coord.Coordinates()+"@"+coord.ResolvedVersion(), func() (any, error) {
		path, err := s.client.Fetch(ctx, coord, maven.DefaultPOMType)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeArtifactNotFound, err, "stat %s", path)
		}
		p, err := s.reader.ReadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		return &pomEntry{dep: coord, pom: p, path: path, modTime: info.ModTime()}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pomEntry), nil
}

// prefetch downloads the POMs of deps concurrently so the depth-first walk
// finds them cached. Failures are left for the walk to report.
func (s *Solver) prefetch(ctx context.Context, deps []*maven.Dependency) {
	if len(deps) < 2 {
		return
	}
	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, d := range deps {
		if !d.ResolveTransitively || d.IsSystem() {
			continue
		}
		if s.override("", d) != nil {
			continue
		}
		g.Go(func() error {
			_, _ = s.readPOM(ctx, d)
			return nil
		})
	}
	_ = g.Wait()
}

package solver

import (
	"context"

	"github.com/matzehuels/moxie/pkg/artifacts"
	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/maven"
	"github.com/matzehuels/moxie/pkg/observability"
	"github.com/matzehuels/moxie/pkg/pom"
)

// transitive returns dep's own dependencies for scope, before exclusions.
//
// An override replaces dep's POM outright. Otherwise the solution cached
// beside dep is used while its POM is unchanged, and a fresh one is
// computed and stored when it is not. A dependency whose POM cannot be
// read is treated as a leaf.
func (s *Solver) transitive(ctx context.Context, scope maven.Scope, dep *maven.Dependency) []*maven.Dependency {
	if o := s.override(scope, dep); o != nil {
		if scope == maven.Build {
			s.logger.Debug("using override", "dependency", dep.Coordinates(), "scope", scope)
		} else {
			s.logger.Info("using override", "dependency", dep.Coordinates(), "scope", scope)
		}
		return o.Dependencies(scope, 1)
	}

	key := string(scope) + "|" + dep.DetailedCoordinates() + "@" + dep.ResolvedVersion()
	s.mu.Lock()
	if deps, ok := s.memo[key]; ok {
		s.mu.Unlock()
		return cloneDeps(deps)
	}
	s.mu.Unlock()

	deps := s.computeTransitive(ctx, scope, dep)
	s.mu.Lock()
	s.memo[key] = deps
	s.mu.Unlock()
	return cloneDeps(deps)
}

func (s *Solver) computeTransitive(ctx context.Context, scope maven.Scope, dep *maven.Dependency) []*maven.Dependency {
	entry, err := s.readPOM(ctx, dep)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Debug("no pom, treating as leaf", "dependency", dep.Coordinates())
		} else {
			s.logger.Warn("skipping dependencies of unreadable pom", "dependency", dep.Coordinates(), "err", errors.UserMessage(err))
		}
		return nil
	}

	sol, ok := s.cache.ReadSolution(entry.dep, entry.modTime)
	if ok {
		if deps, found := sol[scope]; found {
			observability.Solver().OnSolutionReuse(ctx, dep.Coordinates())
			return deps
		}
	} else {
		sol = make(artifacts.Solution)
	}

	deps := entry.pom.Dependencies(scope, 1)
	if deps == nil {
		deps = []*maven.Dependency{}
	}
	sol[scope] = deps
	if err := s.cache.WriteSolution(entry.dep, sol, entry.modTime); err != nil {
		s.logger.Debug("could not cache solution", "dependency", dep.Coordinates(), "err", err)
	}
	return deps
}

func (s *Solver) override(scope maven.Scope, dep *maven.Dependency) *pom.POM {
	if p, ok := s.overrides[overrideKey(scope, dep.Coordinates())]; ok {
		return p
	}
	if p, ok := s.overrides[overrideKey("", dep.Coordinates())]; ok {
		return p
	}
	return nil
}

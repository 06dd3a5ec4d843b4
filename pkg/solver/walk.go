package solver

import (
	"context"
	"slices"
	"strings"

	"github.com/matzehuels/moxie/pkg/maven"
)

// walkState is one depth-first pass over a scope's graph.
type walkState struct {
	scope      maven.Scope
	candidates []*maven.Dependency
	root       *Node
	// expanded holds the smallest ring at which a dependency was expanded
	// with a given exclusion set.
	expanded map[string]int
}

// walk collects every reachable dependency of scope in depth-first order.
// The returned candidates still contain duplicates; see mediate.
func (s *Solver) walk(ctx context.Context, scope maven.Scope) (*walkState, error) {
	w := &walkState{
		scope:    scope,
		root:     &Node{Dependency: s.project.AsDependency(), Selected: true},
		expanded: make(map[string]int),
	}
	direct := s.filter(s.project.Dependencies(scope, 0), nil)
	direct = s.resolveAll(ctx, direct)
	s.prefetch(ctx, direct)

	path := map[string]bool{s.project.ManagementID(): true}
	for _, d := range direct {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.visit(ctx, w, w.root, d, path, d.Exclusions)
	}
	return w, nil
}

// visit records dep as a candidate under parent and expands its transitive
// dependencies. excl is the set of exclusions accumulated on the path to
// dep, dep's own included.
func (s *Solver) visit(ctx context.Context, w *walkState, parent *Node, dep *maven.Dependency, path map[string]bool, excl []string) {
	node := &Node{Dependency: dep}
	parent.Children = append(parent.Children, node)
	w.candidates = append(w.candidates, dep)

	if !dep.ResolveTransitively || dep.IsSystem() {
		return
	}
	key := dep.DetailedCoordinates() + "@" + dep.ResolvedVersion() + "|" + exclusionKey(excl)
	if ring, ok := w.expanded[key]; ok && ring <= dep.Ring {
		node.Repeated = true
		return
	}
	w.expanded[key] = dep.Ring

	children := s.transitive(ctx, w.scope, dep)
	children = s.filter(children, excl)
	for _, c := range children {
		c.Ring = dep.Ring + 1
	}
	children = s.resolveAll(ctx, children)
	s.prefetch(ctx, children)

	path[dep.ManagementID()] = true
	defer delete(path, dep.ManagementID())
	for _, c := range children {
		if ctx.Err() != nil {
			return
		}
		if path[c.ManagementID()] {
			s.logger.Debug("dependency cycle", "from", dep.Coordinates(), "to", c.Coordinates())
			continue
		}
		s.visit(ctx, w, node, c, path, mergeExclusions(excl, c.Exclusions))
	}
}

// filter drops dependencies excluded by the path or by the project.
func (s *Solver) filter(deps []*maven.Dependency, excl []string) []*maven.Dependency {
	out := deps[:0]
	for _, d := range deps {
		if maven.MatchesExclusion(excl, d) || maven.MatchesExclusion(s.project.Exclusions, d) {
			s.logger.Debug("excluded", "dependency", d.Coordinates())
			continue
		}
		out = append(out, d)
	}
	return out
}

// resolveAll replaces meta-versions by their concrete versions. A
// dependency whose version cannot be resolved is kept as declared; fetching
// it later reports the failure.
func (s *Solver) resolveAll(ctx context.Context, deps []*maven.Dependency) []*maven.Dependency {
	for i, d := range deps {
		if !d.IsMetaVersion() || d.Revision != "" || d.IsSystem() {
			continue
		}
		resolved, err := s.client.ResolveVersion(ctx, d)
		if err != nil {
			s.logger.Debug("could not resolve version", "dependency", d.Coordinates(), "err", err)
			continue
		}
		resolved.Ring = d.Ring
		deps[i] = resolved
	}
	return deps
}

func mergeExclusions(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	out := slices.Clone(a)
	for _, ex := range b {
		if !slices.Contains(out, ex) {
			out = append(out, ex)
		}
	}
	return out
}

func exclusionKey(excl []string) string {
	if len(excl) == 0 {
		return ""
	}
	sorted := slices.Clone(excl)
	slices.Sort(sorted)
	return strings.Join(sorted, ",")
}

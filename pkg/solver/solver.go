// Package solver resolves a project's dependencies scope by scope.
//
// For each scope the solver walks the dependency graph depth first from the
// project's direct declarations, reading each dependency's POM to find its
// transitive dependencies. Exclusions accumulate along a path, and the
// declared scope of every transitive dependency is mapped through
// [maven.Scope.TransitiveScope] before the classpath visibility check.
//
// The walk produces a list of candidates with duplicates. Mediation keeps,
// for each mediation id (group:artifact:classifier:type), the candidate with
// the smallest ring; ties go to the first one found.
//
// Two memo layers avoid repeated work. Each dependency's own transitive list
// is cached beside it as a solution stamped with its POM's modification
// time, and the project's final per-scope result is cached keyed by the
// descriptor's modification time. Either is discarded as soon as its
// source changes.
package solver

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/moxie/pkg/artifacts"
	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/maven"
	"github.com/matzehuels/moxie/pkg/observability"
	"github.com/matzehuels/moxie/pkg/pom"
	"github.com/matzehuels/moxie/pkg/repository"
)

const defaultWorkers = 8

// Override replaces the POM of one dependency during resolution.
type Override struct {
	Scope maven.Scope // empty applies to every scope
	POM   *pom.POM
}

// Options configure a [Solver].
type Options struct {
	Client     *repository.Client // required
	Reader     *pom.Reader        // nil builds one that locates POMs through Client
	POMOptions pom.Options        // used when Reader is nil
	Overrides  []Override
	Workers    int    // concurrent POM prefetches, default 8
	Descriptor string // project descriptor path; enables the project solution
	Logger     *log.Logger
}

// Solver resolves one project. Solve results are memoized for the
// lifetime of the Solver. It is safe for concurrent use.
type Solver struct {
	project    *pom.POM
	client     *repository.Client
	cache      *artifacts.Cache
	reader     *pom.Reader
	overrides  map[string]*pom.POM
	workers    int
	descriptor string
	logger     *log.Logger

	prepareOnce sync.Once
	prepareErr  error

	mu       sync.Mutex
	solved   map[maven.Scope][]*maven.Dependency
	projSol  artifacts.Solution
	projMod  time.Time
	loaded   bool
	memo     map[string][]*maven.Dependency
	solving  singleflight.Group
	fetching singleflight.Group
}

// New creates a Solver for project.
func New(project *pom.POM, opts Options) (*Solver, error) {
	if project == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "solver needs a project")
	}
	if opts.Client == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "solver needs a repository client")
	}
	s := &Solver{
		project:    project.Clone(),
		client:     opts.Client,
		cache:      opts.Client.Cache(),
		reader:     opts.Reader,
		overrides:  make(map[string]*pom.POM),
		workers:    opts.Workers,
		descriptor: opts.Descriptor,
		logger:     opts.Logger,
		solved:     make(map[maven.Scope][]*maven.Dependency),
		memo:       make(map[string][]*maven.Dependency),
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.workers <= 0 {
		s.workers = defaultWorkers
	}
	if s.reader == nil {
		if opts.POMOptions.Logger == nil {
			opts.POMOptions.Logger = s.logger
		}
		s.reader = pom.NewReader(pom.LocatorFunc(s.locatePOM), opts.POMOptions)
	}
	for _, o := range opts.Overrides {
		if o.POM == nil {
			continue
		}
		s.overrides[overrideKey(o.Scope, o.POM.Coordinates())] = o.POM
	}
	return s, nil
}

// Project returns the project after import and assimilate declarations
// were applied.
func (s *Solver) Project(ctx context.Context) (*pom.POM, error) {
	if err := s.prepare(ctx); err != nil {
		return nil, err
	}
	return s.project, nil
}

// prepare applies import and assimilate declarations once, before any scope
// is walked, so mediation sees the merged graph.
func (s *Solver) prepare(ctx context.Context) error {
	s.prepareOnce.Do(func() {
		for _, bom := range s.project.Declared(maven.Import) {
			entry, err := s.readPOM(ctx, bom)
			if err != nil {
				s.prepareErr = errors.Wrap(errors.ErrCodeUnresolvedDependency, err,
					"import %s", bom.Coordinates())
				return
			}
			s.project.ImportManagedDependencies(entry.pom)
			s.logger.Debug("imported dependency management", "from", bom.Coordinates())
		}
		s.project.RemoveScope(maven.Import)
		s.project.ApplyManagedVersions()
		for _, other := range s.project.Declared(maven.Assimilate) {
			entry, err := s.readPOM(ctx, other)
			if err != nil {
				s.prepareErr = errors.Wrap(errors.ErrCodeUnresolvedDependency, err,
					"assimilate %s", other.Coordinates())
				return
			}
			if err := s.project.Assimilate(entry.pom); err != nil {
				s.prepareErr = err
				return
			}
			s.logger.Debug("assimilated dependencies", "from", other.Coordinates())
		}
		s.project.RemoveScope(maven.Assimilate)
	})
	return s.prepareErr
}

// Solve returns the mediated dependencies of scope, fetching every selected
// artifact. A required dependency no repository can supply fails the scope
// with UNRESOLVED_DEPENDENCY.
func (s *Solver) Solve(ctx context.Context, scope maven.Scope) ([]*maven.Dependency, error) {
	if !scope.IsValid() || scope.IsMeta() {
		return nil, errors.New(errors.ErrCodeInvalidScope, "cannot solve scope %q", scope)
	}
	s.mu.Lock()
	if deps, ok := s.solved[scope]; ok {
		s.mu.Unlock()
		return cloneDeps(deps), nil
	}
	s.mu.Unlock()

	v, err, _ := s.solving.Do(string(scope), func() (any, error) {
		return s.solve(ctx, scope)
	})
	if err != nil {
		return nil, err
	}
	return cloneDeps(v.([]*maven.Dependency)), nil
}

func (s *Solver) solve(ctx context.Context, scope maven.Scope) ([]*maven.Dependency, error) {
	project := s.project.Coordinates()
	hooks := observability.Solver()
	hooks.OnSolveStart(ctx, project, string(scope))
	start := time.Now()

	deps, err := s.solveScope(ctx, scope)
	hooks.OnSolveComplete(ctx, project, string(scope), len(deps), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.solved[scope] = deps
	s.mu.Unlock()
	s.logger.Debug("solved", "scope", scope, "dependencies", len(deps), "elapsed", time.Since(start))
	return deps, nil
}

func (s *Solver) solveScope(ctx context.Context, scope maven.Scope) ([]*maven.Dependency, error) {
	if deps, ok := s.projectSolution(scope); ok {
		observability.Solver().OnSolutionReuse(ctx, "")
		return deps, nil
	}
	if err := s.prepare(ctx); err != nil {
		return nil, err
	}

	w, err := s.walk(ctx, scope)
	if err != nil {
		return nil, err
	}
	deps, err := s.fetchAll(ctx, scope, mediate(w.candidates))
	if err != nil {
		return nil, err
	}
	s.storeProjectSolution(scope, deps)
	return deps, nil
}

// SolveAll solves every classpath scope and returns the results by scope.
func (s *Solver) SolveAll(ctx context.Context) (map[maven.Scope][]*maven.Dependency, error) {
	out := make(map[maven.Scope][]*maven.Dependency, len(maven.ClasspathScopes))
	for _, scope := range maven.ClasspathScopes {
		deps, err := s.Solve(ctx, scope)
		if err != nil {
			return nil, err
		}
		out[scope] = deps
	}
	return out, nil
}

// Classpath returns the file paths of scope's dependencies in resolution
// order: system dependencies by their path, everything else from the
// artifact cache. An optional dependency that cannot be fetched is left
// out.
func (s *Solver) Classpath(ctx context.Context, scope maven.Scope) ([]string, error) {
	deps, err := s.Solve(ctx, scope)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(deps))
	for _, d := range deps {
		if d.IsPOM() {
			continue
		}
		path, err := s.client.Fetch(ctx, d, d.Extension())
		if err != nil {
			if optionalUnavailable(d, err) {
				s.logger.Warn("optional dependency unavailable", "dependency", d.Coordinates(), "scope", scope, "err", errors.UserMessage(err))
				continue
			}
			return nil, errors.Wrap(errors.ErrCodeUnresolvedDependency, err,
				"%s required in scope %s", d.Coordinates(), scope)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// fetchAll makes sure every selected artifact is cached and returns the
// dependencies that were. Optional dependencies may be missing and are
// dropped; anything else fails the scope.
func (s *Solver) fetchAll(ctx context.Context, scope maven.Scope, deps []*maven.Dependency) ([]*maven.Dependency, error) {
	missing := make([]bool, len(deps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, d := range deps {
		g.Go(func() error {
			_, err := s.client.Fetch(gctx, d, d.Extension())
			if err == nil {
				return nil
			}
			if optionalUnavailable(d, err) {
				s.logger.Warn("optional dependency unavailable", "dependency", d.Coordinates(), "scope", scope, "err", errors.UserMessage(err))
				missing[i] = true
				return nil
			}
			observability.Solver().OnUnresolved(ctx, d.Coordinates(), string(scope))
			return errors.Wrap(errors.ErrCodeUnresolvedDependency, err,
				"could not resolve %s required in scope %s", d.Coordinates(), scope)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]*maven.Dependency, 0, len(deps))
	for i, d := range deps {
		if !missing[i] {
			out = append(out, d)
		}
	}
	return out, nil
}

// optionalUnavailable reports whether err only means that the optional
// dependency d could not be had.
func optionalUnavailable(d *maven.Dependency, err error) bool {
	return d.Optional && !errors.IsFatal(err)
}

// projectSolution returns scope from the project-level solution when the
// descriptor has not changed since it was written.
func (s *Solver) projectSolution(scope maven.Scope) ([]*maven.Dependency, bool) {
	if s.descriptor == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.loaded = true
		info, err := os.Stat(s.descriptor)
		if err != nil {
			return nil, false
		}
		s.projMod = info.ModTime()
		if sol, ok := s.cache.ReadSolutionFile(s.cache.ProjectSolutionPath(s.descriptor), s.projMod); ok {
			s.projSol = sol
		}
	}
	deps, ok := s.projSol[scope]
	if !ok {
		return nil, false
	}
	return cloneDeps(deps), true
}

func (s *Solver) storeProjectSolution(scope maven.Scope, deps []*maven.Dependency) {
	if s.descriptor == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.projMod.IsZero() {
		return
	}
	if s.projSol == nil {
		s.projSol = make(artifacts.Solution)
	}
	s.projSol[scope] = cloneDeps(deps)
	path := s.cache.ProjectSolutionPath(s.descriptor)
	if err := s.cache.WriteSolutionFile(path, s.projSol, s.projMod); err != nil {
		s.logger.Warn("could not cache project solution", "err", err)
	}
}

func overrideKey(scope maven.Scope, coordinates string) string {
	return string(scope) + "|" + coordinates
}

func cloneDeps(deps []*maven.Dependency) []*maven.Dependency {
	out := make([]*maven.Dependency, len(deps))
	for i, d := range deps {
		out[i] = d.Clone()
	}
	return out
}

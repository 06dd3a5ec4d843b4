// Package config loads project descriptors and user settings and builds
// the [ResolverContext] every command resolves with.
//
// Settings come from ~/.moxie/settings.toml, then a .env file, then the
// process environment (MOXIE_ROOT, MOXIE_MAVEN_CACHE, MOXIE_OFFLINE,
// MOXIE_REDIS_ADDR, MOXIE_PROXY_PASSWORD).
package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/matzehuels/moxie/pkg/artifacts"
	"github.com/matzehuels/moxie/pkg/cache"
	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/httputil"
	"github.com/matzehuels/moxie/pkg/maven"
	"github.com/matzehuels/moxie/pkg/pom"
	"github.com/matzehuels/moxie/pkg/repository"
	"github.com/matzehuels/moxie/pkg/solver"
)

// ContextOptions select the inputs of a [ResolverContext].
type ContextOptions struct {
	SettingsPath   string // default DefaultSettingsPath()
	DescriptorPath string // empty resolves without a project
	EnvFile        string // default ".env"; missing files are ignored
	Offline        bool   // forces offline regardless of settings
	Logger         *log.Logger
	// LookupEnv reads the environment overlay. Nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// ResolverContext is everything one invocation resolves with. It replaces
// process-wide state: two contexts never share a cache handle or client.
type ResolverContext struct {
	BuildID    string
	Settings   *Settings
	Descriptor *Descriptor // nil without a project
	Cache      *artifacts.Cache
	Client     *repository.Client
	Logger     *log.Logger

	misses cache.Cache
	reader *pom.Reader
}

// NewResolverContext loads settings, the descriptor and the environment
// overlay and opens the artifact cache and repository client.
func NewResolverContext(ctx context.Context, opts ContextOptions) (*ResolverContext, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	lookup := opts.LookupEnv
	if lookup == nil {
		envFile := opts.EnvFile
		if envFile == "" {
			envFile = ".env"
		}
		if err := godotenv.Load(envFile); err == nil {
			logger.Debug("loaded environment file", "path", envFile)
		}
		lookup = os.LookupEnv
	}

	settingsPath := opts.SettingsPath
	if settingsPath == "" {
		settingsPath = DefaultSettingsPath()
	}
	settings, err := LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}
	settings.ApplyEnv(lookup)
	if opts.Offline {
		settings.Offline = true
	}

	rc := &ResolverContext{
		BuildID:  uuid.NewString(),
		Settings: settings,
		Logger:   logger,
	}

	if opts.DescriptorPath != "" {
		d, err := LoadDescriptor(opts.DescriptorPath)
		if err != nil {
			return nil, err
		}
		rc.Descriptor = d
	}

	rc.Cache, err = artifacts.New(artifacts.Options{
		Root:        settings.Root,
		SystemRoot:  settings.MavenCache,
		PathPattern: settings.PathPattern,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	rc.misses = rc.openMissCache(ctx)

	repos := settings.Repositories
	proxies := settings.Proxies
	if rc.Descriptor != nil {
		if len(rc.Descriptor.Repositories) > 0 {
			if repos, err = rc.Descriptor.ResolveRepositories(settings.Repositories); err != nil {
				return nil, err
			}
		}
		proxies = append(append([]httputil.Proxy(nil), rc.Descriptor.Proxies...), proxies...)
	}
	policy, err := repository.ParseUpdatePolicy(settings.UpdatePolicy)
	if err != nil {
		return nil, err
	}

	rc.Client, err = repository.NewClient(repository.Options{
		Repositories: repos,
		Cache:        rc.Cache,
		HTTPClient: httputil.NewClient(httputil.TransportOptions{
			ConnectTimeout: settings.ConnectTimeout.Duration,
			ReadTimeout:    settings.ReadTimeout.Duration,
			Proxies:        proxies,
			UserAgent:      "moxie (build " + rc.BuildID + ")",
		}),
		Misses:       rc.misses,
		UpdatePolicy: policy,
		Offline:      settings.Offline,
		Retries:      settings.Retries,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	rc.reader = pom.NewReader(pom.LocatorFunc(rc.locatePOM), rc.POMOptions())
	logger.Debug("resolver context ready", "build", rc.BuildID, "root", settings.Root,
		"repositories", len(repos), "offline", settings.Offline)
	return rc, nil
}

// openMissCache prefers the shared Redis cache and falls back to files
// under the cache root.
func (rc *ResolverContext) openMissCache(ctx context.Context) cache.Cache {
	if addr := rc.Settings.RedisAddr; addr != "" {
		rcache, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: addr, Password: rc.Settings.RedisPassword})
		if err == nil {
			rc.Logger.Debug("using redis miss cache", "addr", addr)
			return rcache
		}
		rc.Logger.Warn("redis unavailable, remembering misses locally", "addr", addr, "err", err)
	}
	fc, err := cache.NewFileCache(filepath.Join(rc.Cache.Root(), "misses"))
	if err != nil {
		rc.Logger.Warn("miss cache disabled", "err", err)
		return cache.Disabled(err)
	}
	return fc
}

// POMOptions returns the property-resolution options for this context.
func (rc *ResolverContext) POMOptions() pom.Options {
	return pom.Options{Strict: rc.Settings.StrictProperties, Logger: rc.Logger}
}

func (rc *ResolverContext) locatePOM(ctx context.Context, dep *maven.Dependency) (string, error) {
	resolved, err := rc.Client.ResolveVersion(ctx, dep)
	if err != nil {
		return "", err
	}
	coord := resolved.Clone()
	coord.Type = maven.DefaultPOMType
	coord.Classifier = ""
	return rc.Client.Fetch(ctx, coord, maven.DefaultPOMType)
}

// Reader returns the POM reader bound to this context's repositories.
func (rc *ResolverContext) Reader() *pom.Reader { return rc.reader }

// Project builds the project model from the descriptor, reading its
// parent through the repositories.
func (rc *ResolverContext) Project(ctx context.Context) (*pom.POM, error) {
	if rc.Descriptor == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no project descriptor (%s)", DescriptorFile)
	}
	parent := func(ctx context.Context, coord *maven.Dependency) (*pom.POM, error) {
		path, err := rc.locatePOM(ctx, coord)
		if err != nil {
			return nil, err
		}
		return rc.reader.ReadFile(ctx, path)
	}
	return rc.Descriptor.POM(ctx, parent, rc.POMOptions())
}

// Solver creates a solver for project. Overrides and the project-level
// solution come from the descriptor when there is one.
func (rc *ResolverContext) Solver(project *pom.POM) (*solver.Solver, error) {
	opts := solver.Options{
		Client:  rc.Client,
		Reader:  rc.reader,
		Workers: rc.Settings.Workers,
		Logger:  rc.Logger,
	}
	if rc.Descriptor != nil {
		overrides, err := rc.Descriptor.SolverOverrides(rc.POMOptions())
		if err != nil {
			return nil, err
		}
		opts.Overrides = overrides
		opts.Descriptor = rc.Descriptor.Path()
	}
	return solver.New(project, opts)
}

// ProjectSolver is Project followed by Solver.
func (rc *ResolverContext) ProjectSolver(ctx context.Context) (*solver.Solver, error) {
	project, err := rc.Project(ctx)
	if err != nil {
		return nil, err
	}
	return rc.Solver(project)
}

// MissCache describes where not-found answers are remembered.
func (rc *ResolverContext) MissCache() string { return cache.Describe(rc.misses) }

// Close releases the miss cache.
func (rc *ResolverContext) Close() error {
	if rc.misses != nil {
		return rc.misses.Close()
	}
	return nil
}

// Package cli implements the moxie command-line interface.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/moxie/pkg/buildinfo"
	"github.com/matzehuels/moxie/pkg/config"
	"github.com/matzehuels/moxie/pkg/maven"
	"github.com/matzehuels/moxie/pkg/observability"
	"github.com/matzehuels/moxie/pkg/solver"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display.
	appName = "moxie"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	settingsPath   string
	descriptorPath string
	envFile        string
	offline        bool

	counters *observability.Counters
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:         newLogger(w, level),
		descriptorPath: config.DescriptorFile,
		counters:       &observability.Counters{},
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Moxie resolves Maven dependencies",
		Long:         `Moxie resolves Maven dependency graphs from a project descriptor, keeps a verified local artifact cache and can serve that cache as a Maven repository.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.counters.Register()
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVarP(&c.descriptorPath, "file", "f", c.descriptorPath, "project descriptor")
	flags.StringVar(&c.settingsPath, "settings", "", "settings file (default ~/.moxie/settings.toml)")
	flags.StringVar(&c.envFile, "env-file", "", "environment file (default .env)")
	flags.BoolVar(&c.offline, "offline", false, "never contact remote repositories")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.classpathCommand())
	root.AddCommand(c.pomCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Resolver Context Factory
// =============================================================================

// resolverContext opens the settings, cache and client for one command.
// A descriptor is loaded when the --file path exists; needProject turns
// its absence into an error.
func (c *CLI) resolverContext(ctx context.Context, needProject bool) (*config.ResolverContext, error) {
	opts := config.ContextOptions{
		SettingsPath: c.settingsPath,
		EnvFile:      c.envFile,
		Offline:      c.offline,
		Logger:       loggerFromContext(ctx),
	}
	if c.descriptorPath != "" {
		if _, err := os.Stat(c.descriptorPath); err == nil || needProject {
			opts.DescriptorPath = c.descriptorPath
		}
	}
	return config.NewResolverContext(ctx, opts)
}

// projectSolver opens a resolver context and a solver for the project.
// The caller closes the returned context.
func (c *CLI) projectSolver(ctx context.Context) (*config.ResolverContext, *solver.Solver, error) {
	rc, err := c.resolverContext(ctx, true)
	if err != nil {
		return nil, nil, err
	}
	s, err := rc.ProjectSolver(ctx)
	if err != nil {
		rc.Close()
		return nil, nil, err
	}
	return rc, s, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseScopes parses --scope values, defaulting to every classpath scope.
func parseScopes(values []string) ([]maven.Scope, error) {
	if len(values) == 0 {
		return maven.ClasspathScopes, nil
	}
	scopes := make([]maven.Scope, 0, len(values))
	for _, v := range values {
		s, err := maven.ParseScope(v)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, s)
	}
	return scopes, nil
}

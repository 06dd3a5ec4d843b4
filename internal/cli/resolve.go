package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/moxie/pkg/maven"
)

// resolveOptions holds flags for the resolve command.
type resolveOptions struct {
	scopes []string
	purl   bool
	json   bool
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	opts := resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Solve and download the project's dependencies",
		Long: `Solve the dependency graph of the project descriptor for each requested
scope, download every selected artifact into the cache and print the result.

Without --scope the compile, runtime, test and build scopes are solved.`,
		Example: `  moxie resolve
  moxie resolve --scope runtime --purl
  moxie resolve -f service/moxie.toml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runResolve(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.scopes, "scope", "s", nil, "scopes to solve (repeatable)")
	cmd.Flags().BoolVar(&opts.purl, "purl", false, "print package URLs instead of coordinates")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the solution as JSON")

	return cmd
}

func (c *CLI) runResolve(cmd *cobra.Command, opts resolveOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	scopes, err := parseScopes(opts.scopes)
	if err != nil {
		return err
	}

	rc, s, err := c.projectSolver(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	prog := newProgress(logger)
	solution := make(map[maven.Scope][]*maven.Dependency, len(scopes))
	total := 0
	spinner := newSpinnerWithContext(ctx, "Solving...")
	spinner.Start()
	for i, scope := range scopes {
		spinner.Update(fmt.Sprintf("Solving %s (%d/%d)...", scope, i+1, len(scopes)))
		deps, err := s.Solve(ctx, scope)
		if err != nil {
			if spinner.Cancelled() {
				spinner.StopWithError("Cancelled")
			} else {
				spinner.StopWithError(fmt.Sprintf("Could not solve %s", scope))
			}
			return err
		}
		solution[scope] = deps
		total += len(deps)
	}
	spinner.Stop()

	out := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(solution)
	}
	writeSolution(out, scopes, solution, opts.purl)

	prog.done(fmt.Sprintf("Resolved %d dependencies", total))
	printStats(c.counters.Snapshot())
	return nil
}

// writeSolution prints one block per scope in the requested order.
func writeSolution(w io.Writer, scopes []maven.Scope, solution map[maven.Scope][]*maven.Dependency, purl bool) {
	for i, scope := range scopes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		deps := solution[scope]
		fmt.Fprintf(w, "%s (%d)\n", scope, len(deps))
		for _, d := range deps {
			label := d.Coordinates()
			if purl {
				label = d.PURL()
			}
			if d.Origin != "" && !purl {
				label += "  [" + d.Origin + "]"
			}
			fmt.Fprintf(w, "  %s\n", label)
		}
	}
}

package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/moxie/pkg/maven"
)

// browseCommand creates the browse command.
func (c *CLI) browseCommand() *cobra.Command {
	var scopes []string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Explore the solved scopes interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			selected, err := parseScopes(scopes)
			if err != nil {
				return err
			}

			rc, s, err := c.projectSolver(ctx)
			if err != nil {
				return err
			}
			defer rc.Close()

			spinner := newSpinnerWithContext(ctx, "Solving...")
			spinner.Start()
			solution := make(map[maven.Scope][]*maven.Dependency, len(selected))
			for i, scope := range selected {
				spinner.Update(fmt.Sprintf("Solving %s (%d/%d)...", scope, i+1, len(selected)))
				deps, err := s.Solve(ctx, scope)
				if err != nil {
					spinner.StopWithError("Could not solve " + string(scope))
					return err
				}
				solution[scope] = deps
			}
			spinner.StopWithSuccess(fmt.Sprintf("Solved %d scopes", len(selected)))

			p := tea.NewProgram(NewSolutionModel(selected, solution), tea.WithAltScreen(), tea.WithContext(ctx))
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().StringSliceVarP(&scopes, "scope", "s", nil, "scopes to browse (repeatable)")

	return cmd
}

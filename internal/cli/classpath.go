package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/moxie/pkg/maven"
)

// classpathCommand creates the classpath command.
func (c *CLI) classpathCommand() *cobra.Command {
	var separator string

	cmd := &cobra.Command{
		Use:   "classpath [scope]",
		Short: "Print the classpath of a scope",
		Long: `Solve a scope and print the paths of its artifacts in resolution order,
joined with the platform's list separator. System dependencies are listed
by their declared path.`,
		Example: `  java -cp "$(moxie classpath runtime)" com.example.Main
  moxie classpath test --separator '\n'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := maven.Compile
			if len(args) == 1 {
				var err error
				if scope, err = maven.ParseScope(args[0]); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			rc, s, err := c.projectSolver(ctx)
			if err != nil {
				return err
			}
			defer rc.Close()

			paths, err := s.Classpath(ctx, scope)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(paths, unescapeSeparator(separator)))
			return nil
		},
	}

	cmd.Flags().StringVar(&separator, "separator", string(os.PathListSeparator), "path separator")

	return cmd
}

// unescapeSeparator lets shells pass a newline or tab as "\n" or "\t".
func unescapeSeparator(s string) string {
	return strings.NewReplacer(`\n`, "\n", `\t`, "\t").Replace(s)
}

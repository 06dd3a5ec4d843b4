package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// pomCommand creates the pom command.
func (c *CLI) pomCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pom",
		Short: "Write the project as a Maven descriptor",
		Long: `Build the project model from the descriptor, including its parent and
imported bills of materials, and write it as a Maven 4.0.0 pom.xml.
Build-scope dependencies are not published.`,
		Example: `  moxie pom > pom.xml
  moxie pom -o target/pom.xml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rc, s, err := c.projectSolver(ctx)
			if err != nil {
				return err
			}
			defer rc.Close()

			project, err := s.Project(ctx)
			if err != nil {
				return err
			}

			if output == "" {
				return project.WriteXML(cmd.OutOrStdout())
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := project.WriteXML(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			printSuccess("Wrote %s", project.Coordinates())
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")

	return cmd
}

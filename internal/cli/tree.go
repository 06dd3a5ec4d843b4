package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/moxie/pkg/maven"
	"github.com/matzehuels/moxie/pkg/solver"
)

// Tree output formats.
const (
	formatText = "text"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

// treeOptions holds flags for the tree command.
type treeOptions struct {
	scope  string
	format string
	output string
}

// treeCommand creates the tree command.
func (c *CLI) treeCommand() *cobra.Command {
	opts := treeOptions{format: formatText}

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the dependency graph of a scope",
		Long: `Print every path through the dependency graph of one scope before
conflict mediation. Occurrences that lost mediation are marked "(omitted)",
subtrees already shown elsewhere are marked "(*)".`,
		Example: `  moxie tree
  moxie tree --scope test
  moxie tree --format svg -o deps.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTree(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.scope, "scope", "s", string(maven.Compile), "scope to show")
	cmd.Flags().StringVar(&opts.format, "format", opts.format, "output format: text, dot or svg")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write to a file instead of stdout")

	return cmd
}

func (c *CLI) runTree(cmd *cobra.Command, opts treeOptions) error {
	ctx := cmd.Context()

	scope, err := maven.ParseScope(opts.scope)
	if err != nil {
		return err
	}
	switch opts.format {
	case formatText, formatDOT, formatSVG:
	default:
		return fmt.Errorf("unknown format %q (want text, dot or svg)", opts.format)
	}

	rc, s, err := c.projectSolver(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	tree, err := s.Tree(ctx, scope)
	if err != nil {
		return err
	}

	var data []byte
	switch opts.format {
	case formatDOT:
		data = []byte(tree.ToDOT())
	case formatSVG:
		if data, err = solver.RenderSVG(ctx, tree.ToDOT()); err != nil {
			return err
		}
	}

	if opts.output == "" {
		return writeTree(cmd.OutOrStdout(), tree, data)
	}
	f, err := os.Create(opts.output)
	if err != nil {
		return err
	}
	if err := writeTree(f, tree, data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	printSuccess("Wrote %s tree", scope)
	printFile(opts.output)
	return nil
}

// writeTree writes rendered data, or the text form when data is nil.
func writeTree(w io.Writer, tree *solver.Tree, data []byte) error {
	if data == nil {
		return tree.WriteText(w)
	}
	_, err := w.Write(data)
	return err
}

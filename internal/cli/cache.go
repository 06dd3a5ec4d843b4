package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the artifact cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheStatsCommand())
	cmd.AddCommand(c.cachePurgeCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached artifact and solution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := c.resolverContext(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rc.Close()

			before, err := rc.Cache.Stats()
			if err != nil {
				return err
			}
			if before.Artifacts == 0 {
				printInfo("Cache is empty")
			}
			if err := rc.Cache.Clear(); err != nil {
				return err
			}
			if before.Artifacts > 0 {
				printSuccess("Cleared %d cached artifacts (%s)", before.Artifacts, formatBytes(before.Bytes))
			}
			printDetail("Directory: %s", rc.Cache.Root())
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := c.resolverContext(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rc.Close()
			fmt.Fprintln(cmd.OutOrStdout(), rc.Cache.Root())
			return nil
		},
	}
}

// cacheStatsCommand creates the "cache stats" subcommand.
func (c *CLI) cacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the cache contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := c.resolverContext(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rc.Close()

			stats, err := rc.Cache.Stats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printKeyValue(out, "Root", rc.Cache.Root())
			printKeyValue(out, "Artifacts", strconv.Itoa(stats.Artifacts))
			printKeyValue(out, "Size", formatBytes(stats.Bytes))
			origins := "none"
			if len(stats.Origins) > 0 {
				origins = strings.Join(stats.Origins, ", ")
			}
			printKeyValue(out, "Origins", origins)
			printKeyValue(out, "Misses", rc.MissCache())
			for host, state := range rc.Client.BreakerState() {
				printKeyValue(out, "Breaker", host+" "+state)
			}
			return nil
		},
	}
}

// cachePurgeCommand creates the "cache purge" subcommand.
func (c *CLI) cachePurgeCommand() *cobra.Command {
	var keep, days int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove old snapshot builds of the project's dependencies",
		Long: `Solve every classpath scope of the project and remove superseded timestamped
builds of its SNAPSHOT dependencies and their SNAPSHOT parents. The newest
--keep builds always survive; older ones go once they are more than --days
days old, or at once with --days 0. Defaults come from the settings file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rc, s, err := c.projectSolver(ctx)
			if err != nil {
				return err
			}
			defer rc.Close()

			if !cmd.Flags().Changed("keep") {
				keep = rc.Settings.Purge.Keep
			}
			if !cmd.Flags().Changed("days") {
				days = rc.Settings.Purge.Days
			}

			purged, err := s.PurgeSnapshots(ctx, keep, days)
			if err != nil {
				return err
			}
			if len(purged) == 0 {
				printInfo("No snapshots to purge")
				return nil
			}
			files := 0
			for _, p := range purged {
				files += p.Files
				printDetail("%s: %d snapshots, %d files", p.Dependency.Coordinates(), len(p.Snapshots), p.Files)
			}
			printSuccess("Purged %d files from %d snapshot dependencies", files, len(purged))
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "newest snapshots to keep")
	cmd.Flags().IntVar(&days, "days", 0, "purge snapshots older than this many days")

	return cmd
}

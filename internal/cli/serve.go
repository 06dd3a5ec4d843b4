package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/moxie/pkg/server"
)

const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the artifact cache as a Maven repository",
		Long: `Expose the artifact cache over HTTP using the standard repository layout.
Files missing from the cache are fetched from the configured repositories
and verified before they are served. Point a build tool's mirror setting at
the printed address to share one cache.`,
		Example: `  moxie serve
  moxie serve --addr :9000 --offline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			rc, err := c.resolverContext(ctx, false)
			if err != nil {
				return err
			}
			defer rc.Close()

			srv, err := server.New(server.Options{Client: rc.Client, Logger: logger})
			if err != nil {
				return err
			}
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() { errc <- httpServer.ListenAndServe() }()

			printSuccess("Serving %s", rc.Cache.Root())
			printDetail("Listening on %s", StyleLink.Render("http://"+addr))
			if rc.Client.Offline() {
				printWarning("Offline: only cached files are served")
			}
			printNextStep("Stop with", "ctrl+c")

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8765", "listen address")

	return cmd
}

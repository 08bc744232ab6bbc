package cli

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/metricgraph/pkg/api"
	"github.com/matzehuels/metricgraph/pkg/cache"
	"github.com/matzehuels/metricgraph/pkg/observability"
	"github.com/matzehuels/metricgraph/pkg/session"
)

const shutdownTimeout = 10 * time.Second

// serveCommand runs the HTTP API over the store configured for the current
// project. Every project is served from that one store; each project's own
// project.toml still supplies its layout settings.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		origins []string
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig(c.project)
			if err != nil {
				return err
			}
			st, err := c.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			c.sharedCache = cache.NewMemoryCache()
			defer c.sharedCache.Close()

			open := func(ctx context.Context, projectID string) (*session.Session, error) {
				pcfg, err := c.loadConfig(projectID)
				if err != nil {
					return nil, err
				}
				path, _ := c.configPath(projectID)
				return session.Open(ctx, st, projectID, pcfg,
					session.WithLogger(logger),
					session.WithLayoutEngine(c.newLayoutEngine(projectID)),
					session.WithConfigPath(path),
				)
			}

			var opts []api.Option
			if metrics {
				m := observability.NewMetrics(appName)
				installHooks(logger, m)
				opts = append(opts, api.WithMetrics(m))
			}
			if len(origins) > 0 {
				opts = append(opts, api.WithCORS(origins...))
			}
			srv := api.New(open, logger, opts...)
			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", addr, "store", st.Backend().Name())
				errc <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !stderrors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				logger.Info("shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http shutdown", "err", err)
			}
			return srv.Close(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "allow cross-origin requests from these origins (repeatable, * for any)")
	cmd.Flags().BoolVar(&metrics, "metrics", true, "serve Prometheus metrics at /metrics")
	return cmd
}

package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/rushteam/gcnrec/server"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recommendations and metrics over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, root.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.loadServing(ctx)
			if err != nil {
				return err
			}
			srv := server.New(server.Options{
				Pipeline:     s.pipeline,
				Engine:       s.engine,
				Catalog:      s.catalog,
				Reload:       func(ctx context.Context) error { return a.reload(ctx, s) },
				DefaultMood:  a.cfg.Hybrid.DefaultMood,
				DefaultLimit: a.cfg.Hybrid.Limit,
				Logger:       a.logger,
			})

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			go srv.RunReloader(ctx, a.cfg.Server.ReloadInterval)

			errc := make(chan error, 1)
			go func() {
				a.logger.Info().Str("addr", addr).Bool("model_loaded", s.engine.Loaded()).Msg("listening")
				errc <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, done := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer done()
			a.logger.Info().Msg("shutting down")
			return httpSrv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mitchellmoss/appraisal-generator/internal/postgres"
	"github.com/mitchellmoss/appraisal-generator/internal/server"
	"github.com/mitchellmoss/appraisal-generator/pkg/sqlite"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the appraisal record store server",
		Long: "Serve the record store HTTP API at /api/appraisals, backed by SQLite in the\n" +
			"data directory or by PostgreSQL (server.backend, server.postgres_dsn).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := types.Config{
				Backend:     a.cfg.ServerBackend,
				DataDir:     a.dataDir,
				PostgresDSN: a.cfg.PostgresDSN,
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("%w: server.backend %q", err, cfg.Backend)
			}

			backend := newBackend(a, cfg.Backend)
			if err := backend.Attach(cfg); err != nil {
				return sysError(fmt.Errorf("attach %s backend: %w", cfg.Backend, err))
			}
			defer func() {
				if err := backend.Detach(); err != nil {
					a.logger.Error("detaching backend", "error", err)
				}
			}()

			if a.cfg.ServerAPIKey == "" {
				a.logger.Warn("server.api_key is empty; every /api request will be rejected")
			}
			if addr == "" {
				addr = a.cfg.ServerAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(backend, server.Options{APIKey: a.cfg.ServerAPIKey, Logger: a.logger})
			if err := srv.Run(ctx, addr); err != nil {
				return sysError(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}

func newBackend(a *app, name string) types.Backend {
	if name == types.BackendPostgres {
		return postgres.NewStore(postgres.WithLogger(a.logger))
	}
	return sqlite.NewBackend(a.logger)
}

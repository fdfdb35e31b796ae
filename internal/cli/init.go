package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mitchellmoss/appraisal-generator/internal/cache"
	"github.com/mitchellmoss/appraisal-generator/pkg/sqlite"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration, local storage and the form cache",
		Long: "Create the configuration and data directories, write a default config.yaml,\n" +
			"initialize the local record store files and the form cache.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(a.dataDir, 0o755); err != nil {
				return sysError(fmt.Errorf("create data directory: %w", err))
			}

			backend := sqlite.NewBackend(a.logger)
			if err := backend.Attach(types.Config{Backend: types.BackendSQLite, DataDir: a.dataDir}); err != nil {
				return sysError(fmt.Errorf("initialize storage: %w", err))
			}
			if err := backend.Detach(); err != nil {
				return sysError(fmt.Errorf("finalize storage: %w", err))
			}

			c, err := cache.Open(filepath.Join(a.dataDir, cache.FileName))
			if err != nil {
				return sysError(fmt.Errorf("initialize form cache: %w", err))
			}
			if err := c.Close(); err != nil {
				return sysError(fmt.Errorf("close form cache: %w", err))
			}

			configFile := a.v.ConfigFileUsed()
			return a.printResult(cmd, map[string]string{"config": configFile, "dataDir": a.dataDir}, func(w io.Writer) {
				fmt.Fprintln(w, "Appraiser initialized successfully")
				fmt.Fprintf(w, "config: %s\ndata:   %s\n", configFile, a.dataDir)
			})
		},
	}
}

// Package cli implements the appraiser command-line interface.
//
// Each invocation is one session: the form is loaded from the local cache,
// the command runs, and the form and binding are written back. Records are
// kept by the record store server named by store.url.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mitchellmoss/appraisal-generator/internal/paths"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app carries per-invocation state shared by subcommands.
type app struct {
	flags   rootFlags
	v       *viper.Viper
	cfg     settings
	dataDir string
	logger  *slog.Logger
}

// NewRootCmd creates the top-level "appraiser" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{logger: slog.Default()}

	root := &cobra.Command{
		Use:   "appraiser",
		Short: "Prepare, save and print jewelry appraisal certificates",
		Long: "appraiser edits one appraisal at a time in a locally cached form, saves it to\n" +
			"a shared record store, and prints or exports a one-page certificate.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.appraisal-db)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newServeCmd(a),
		newFormCmd(a),
		newArticleCmd(a),
		newSaveCmd(a),
		newOpenCmd(a),
		newNewCmd(a),
		newResetCmd(a),
		newDeleteCmd(a),
		newListCmd(a),
		newPrintCmd(a),
		newExportCmd(a),
	)
	return root
}

// setup resolves directories, loads config.yaml and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config directory: %w", err))
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return sysError(err)
	}
	a.v = v
	a.cfg = readSettings(v)

	a.dataDir, err = paths.ResolveDataDir(a.flags.dataDir, a.cfg.DataDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve data directory: %w", err))
	}

	logger, err := newLogger(cmd.ErrOrStderr(), a.cfg.LogLevel, a.cfg.LogFormat)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(NewRootCmd(), os.Stderr))
}

func run(root *cobra.Command, stderr io.Writer) int {
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// systemError marks a failure of the environment rather than of the input.
type systemError struct{ err error }

func (e systemError) Error() string { return e.err.Error() }
func (e systemError) Unwrap() error { return e.err }

func sysError(err error) error {
	if err == nil {
		return nil
	}
	return systemError{err: err}
}

// exitCode maps an error to the process exit status. Network, storage and
// rendering failures are system errors; everything else is the user's.
func exitCode(err error) int {
	var se systemError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &se),
		errors.Is(err, types.ErrTransient),
		errors.Is(err, types.ErrRender),
		errors.Is(err, types.ErrDetached):
		return exitSysError
	default:
		return exitUserError
	}
}

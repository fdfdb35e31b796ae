package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mitchellmoss/appraisal-generator/internal/blob"
	"github.com/mitchellmoss/appraisal-generator/internal/paths"
	"github.com/mitchellmoss/appraisal-generator/internal/render"
)

func newPrintCmd(a *app) *cobra.Command {
	var command string
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print the certificate for the current form",
		Long: "Render the form as a one-page certificate and send it to the print command\n" +
			"(print.command, default \"lp\"). The command returns once the job is submitted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.openWorkspace(cmd.Context())
			defer ws.Close()
			if command == "" {
				command = a.cfg.PrintCommand
			}
			p := render.NewPrinter(command, render.WithPrintLogger(a.logger))
			if err := p.Print(cmd.Context(), ws.form.Snapshot()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Certificate sent to printer")
			return nil
		},
	}
	cmd.Flags().StringVar(&command, "command", "", "print command (default: print.command)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var stdout bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the certificate as an HTML file",
		Long: "Render the form as a standalone HTML certificate named\n" +
			"appraisal_<client>_<YYYY-MM-DD>.html and store it with the export driver\n" +
			"(export.driver: fs, s3 or memory).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.openWorkspace(cmd.Context())
			defer ws.Close()
			rec := ws.form.Snapshot()

			if stdout {
				rec.GeneratedAt = time.Now().UTC()
				html, err := render.HTML(rec, render.ModeExport)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(html)
				return err
			}

			store, err := blob.Open(cmd.Context(), blob.Config{
				Driver: blob.Driver(a.cfg.ExportDriver),
				Dir:    paths.ExportDir(a.dataDir, a.cfg.ExportDir),
				S3:     a.cfg.S3,
			})
			if err != nil {
				return fmt.Errorf("open export store: %w", err)
			}
			rec.ID = ws.session.Binding().ID
			res, err := render.NewExporter(store, render.WithExportLogger(a.logger)).Export(cmd.Context(), rec)
			if err != nil {
				return err
			}
			return a.printResult(cmd, res, func(w io.Writer) {
				fmt.Fprintf(w, "Exported %s (%d bytes)\n", res.Key, res.Size)
				if res.URL != "" {
					fmt.Fprintln(w, res.URL)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&stdout, "stdout", false, "write the HTML to standard output instead of the export store")
	return cmd
}

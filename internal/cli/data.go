package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sadopc/reportory/internal/backup"
	"github.com/sadopc/reportory/internal/store"
)

func newExportCmd(app *App) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a full JSON backup",
		Long:  "Write a full JSON backup. Without --out the document goes to stdout; --out - does the same.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := app.backup.Export(cmd.Context())
			if err != nil {
				return err
			}
			return app.writeExport(cmd, out, data)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (use \"auto\" for daily-report-backup-<date>.json)")
	cmd.AddCommand(newExportCSVCmd(app))
	return cmd
}

func newExportCSVCmd(app *App) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:       "csv todos|reports",
		Short:     "Write todos or reports as CSV",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"todos", "reports"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var buf bytes.Buffer
			switch args[0] {
			case "todos":
				todos, err := app.todos.List(ctx)
				if err != nil {
					return err
				}
				if err := backup.WriteTodosCSV(&buf, todos); err != nil {
					return err
				}
			case "reports":
				reports, err := app.reports.List(ctx)
				if err != nil {
					return err
				}
				if err := backup.WriteReportsCSV(&buf, reports); err != nil {
					return err
				}
			}
			return app.writeExport(cmd, out, buf.Bytes())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file")
	return cmd
}

// writeExport sends data to stdout or to the file named by out.
func (a *App) writeExport(cmd *cobra.Command, out string, data []byte) error {
	switch out {
	case "", "-":
		_, err := cmd.OutOrStdout().Write(data)
		return err
	case "auto":
		out = backup.ExportFileName(a.now())
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	return a.sayMessage(cmd, "exportDone", out)
}

func newImportCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all data with a JSON backup",
		Long:  "Replace all data with a JSON backup. The file is checked before anything is deleted; use - to read stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}

			// Reject bad files before asking.
			if _, err := backup.ParseDocument(data); err != nil {
				return err
			}
			ok, err := app.confirmOrYes(cmd, yes).Confirm(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return app.sayMessage(cmd, "cancelled", "")
			}

			sum, err := app.backup.Import(cmd.Context(), data)
			if err != nil {
				return err
			}
			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), sum)
			}
			text := app.catalog.MessageWith(app.lang(), "importSummary", sum)
			style := styleGood
			if sum.Failed > 0 {
				style = styleWarn
			}
			fmt.Fprintln(cmd.OutOrStdout(), style.Render(iconDone+" "+app.msg("importDone")+". "+text))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newResetCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all data and settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := app.backup.Reset(cmd.Context(), app.confirmOrYes(cmd, yes))
			if errors.Is(err, backup.ErrCancelled) {
				return app.sayMessage(cmd, "cancelled", "")
			}
			if err != nil {
				return err
			}
			if status == store.DestroyBlocked {
				fmt.Fprintln(cmd.ErrOrStderr(), styleWarn.Render(iconWarn+" "+app.msg("databaseDestroyBlocked")))
			}
			return app.sayMessage(cmd, "resetDone", "")
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

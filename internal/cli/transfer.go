package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/hundred/internal/export"
)

func newExportCmd(app *App) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the challenge to CSV or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "csv" && format != "json" {
				return fmt.Errorf("format must be csv or json, got %q", format)
			}
			if out == "" {
				out = fmt.Sprintf("hundred-export-%s.%s", time.Now().Format("2006-01-02"), format)
			}
			if err := app.open(); err != nil {
				return err
			}
			defer app.close()

			snap, err := app.tracker.Snapshot()
			if err != nil {
				return err
			}
			if format == "csv" {
				err = export.ToCSV(snap.Days, out)
			} else {
				err = export.ToJSON(snap, out)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format (csv|json)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default: hundred-export-<date>.<format>)")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Replace all days and settings with a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := export.FromJSON(args[0])
			if err != nil {
				return err
			}
			if err := app.open(); err != nil {
				return err
			}
			defer app.close()

			if err := app.tracker.Restore(cmd.Context(), snap); err != nil {
				app.log.Printf("import %s: %v", args[0], err)
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d days from %s\n", len(snap.Days), args[0])
			return nil
		},
	}
}

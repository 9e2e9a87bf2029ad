package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/errs"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export incidents matching the list filters as CSV or XLSX",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ []string, svc services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		filter, err := listFilterFromFlags(cmd, svc.App.Config.App.Location())
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		target, _ := cmd.Flags().GetString("out")
		if _, err := svc.Incidents.ExportContentType(format); err != nil {
			return fmt.Errorf("--format must be one of %s: %w", strings.Join(svc.Incidents.ExportFormats(), "|"), err)
		}

		var w io.Writer = cmd.OutOrStdout()
		if target != "" && target != "-" {
			file, err := os.Create(target)
			if err != nil {
				return errs.Wrapf(err, "create %s", target)
			}
			defer file.Close()
			w = file
		}

		count, err := svc.Incidents.ExportIncidents(ctx, filter, format, w)
		if err != nil {
			logging.Error(ctx, "export incidents failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "export incidents")
		}
		logging.Info(ctx, "incidents exported", slog.Int("rows", count), slog.String("format", format))
		if target != "" && target != "-" {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "exported %d incidents to %s\n", count, target); err != nil {
				return errs.Wrap(err, "write export output")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(exportCmd)
	addListFlags(exportCmd)
	exportCmd.Flags().String("format", "csv", "Output format (csv|xlsx)")
	exportCmd.Flags().String("out", "", "Output file (default stdout)")
}

/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/errs"
)

// initDbCmd represents the initDb command
var initDbCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Initialize database schema and seed default parameters",
	RunE: withApp(func(cmd *cobra.Command, _ []string, svc services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		logging.Info(ctx, "start init-db")

		tables, err := svc.App.InitSchema(ctx)
		if err != nil {
			logging.Error(ctx, "initialize schema failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "initialize schema")
		}

		seeded, err := svc.Params.EnsureDefaults(ctx)
		if err != nil {
			logging.Error(ctx, "seed default parameters failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "seed default parameters")
		}

		logging.Info(ctx, "init-db finished", slog.String("database_dsn", svc.App.Config.Database.DSN), slog.Int("seeded", len(seeded)))
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "database schema initialized: %s (%s)\n", svc.App.Config.Database.DSN, strings.Join(tables, ", ")); err != nil {
			return errs.Wrap(err, "write init-db output")
		}
		if len(seeded) > 0 {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "seeded parameters: %s\n", strings.Join(seeded, ", ")); err != nil {
				return errs.Wrap(err, "write init-db output")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(initDbCmd)
}

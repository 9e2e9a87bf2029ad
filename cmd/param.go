package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/errs"
	"troubledesk/internal/ports"
	"troubledesk/internal/usecase/parameter"
)

var paramCmd = &cobra.Command{
	Use:   "param",
	Short: "Manage system parameters such as the deadline day counts",
}

var paramListCmd = &cobra.Command{
	Use:   "list",
	Short: "List system parameters",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ []string, svc services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		params, err := svc.Params.List(ctx)
		if err != nil {
			logging.Error(ctx, "list parameters failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list parameters")
		}
		if len(params) == 0 {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), "no parameters (run init-db to seed defaults)"); err != nil {
				return errs.Wrap(err, "write param list output")
			}
			return nil
		}
		for _, param := range params {
			if err := writeParameter(cmd, param); err != nil {
				return err
			}
		}
		return nil
	}),
}

var paramGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show one system parameter",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, svc services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		param, err := svc.Params.Get(ctx, args[0])
		if err != nil {
			logging.Error(ctx, "get parameter failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "get parameter")
		}
		return writeParameter(cmd, param)
	}),
}

var paramSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Create or update a system parameter",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, args []string, svc services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}
		input := parameter.SetInput{Key: args[0], Value: args[1]}
		input.Type, _ = cmd.Flags().GetString("type")
		if cmd.Flags().Changed("description") {
			description, _ := cmd.Flags().GetString("description")
			input.Description = &description
		}
		if cmd.Flags().Changed("active") {
			active, _ := cmd.Flags().GetBool("active")
			input.IsActive = &active
		}

		saved, err := svc.Params.Set(ctx, actor, input)
		if err != nil {
			logging.Error(ctx, "set parameter failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "set parameter")
		}
		return writeParameter(cmd, saved)
	}),
}

var paramImportCmd = &cobra.Command{
	Use:   "import <file.toml|file.yaml>",
	Short: "Apply a TOML or YAML seed file of parameter entries",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, svc services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}
		report := func(result parameter.ImportResult) error {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "imported %d parameters: %s\n", len(result.Keys), strings.Join(result.Keys, ", ")); err != nil {
				return errs.Wrap(err, "write param import output")
			}
			return nil
		}

		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			watchCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return svc.Params.WatchSeed(watchCtx, actor, args[0], func(result parameter.ImportResult, err error) {
				if err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "import failed: %v\n", err)
					return
				}
				_ = report(result)
			})
		}

		file, err := os.Open(args[0])
		if err != nil {
			return errs.Wrapf(err, "open %s", args[0])
		}
		defer file.Close()

		result, err := svc.Params.ImportFormat(ctx, actor, file, parameter.SeedFormatFor(args[0]))
		if err != nil {
			logging.Error(ctx, "import parameters failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "import parameters")
		}
		return report(result)
	}),
}

var paramExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print all parameters as a seed file",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ []string, svc services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		format, _ := cmd.Flags().GetString("format")
		switch parameter.SeedFormat(format) {
		case parameter.SeedTOML, parameter.SeedYAML:
		default:
			return fmt.Errorf("--format must be toml or yaml, got %q", format)
		}
		if err := svc.Params.ExportFormat(ctx, cmd.OutOrStdout(), parameter.SeedFormat(format)); err != nil {
			logging.Error(ctx, "export parameters failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "export parameters")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(paramCmd)
	addActorFlags(paramCmd)

	paramCmd.AddCommand(paramListCmd)
	paramCmd.AddCommand(paramGetCmd)
	paramCmd.AddCommand(paramSetCmd)
	paramCmd.AddCommand(paramImportCmd)
	paramCmd.AddCommand(paramExportCmd)

	paramSetCmd.Flags().String("type", "", "Value type (string|int|bool|decimal); empty keeps the stored type")
	paramSetCmd.Flags().String("description", "", "Description")
	paramSetCmd.Flags().Bool("active", true, "Whether the parameter is in effect")
	paramImportCmd.Flags().Bool("watch", false, "Keep running and re-import whenever the file changes")
	paramExportCmd.Flags().String("format", "toml", "Output format (toml|yaml)")
}

func writeParameter(cmd *cobra.Command, param ports.SystemParameter) error {
	state := "active"
	if !param.IsActive {
		state = "inactive"
	}
	if _, err := fmt.Fprintf(
		cmd.OutOrStdout(),
		"%s = %s (%s, %s) %s\n",
		param.Key,
		param.Value,
		param.ValueType,
		state,
		param.Description,
	); err != nil {
		return errs.Wrap(err, "write parameter")
	}
	return nil
}

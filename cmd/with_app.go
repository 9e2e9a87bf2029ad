package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"troubledesk/internal/bootstrap"
	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/errs"
	"troubledesk/internal/usecase/incident"
	"troubledesk/internal/usecase/parameter"
)

// services is what a command body receives once the fx graph is up.
type services struct {
	App       *bootstrap.App
	Incidents *incident.Service
	Params    *parameter.Service
}

func withApp(run func(cmd *cobra.Command, args []string, svc services) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if logLevel != "" || logFormat != "" {
			level, format := resolveLogSettings("info", "text")
			cmd.SetContext(logging.WithLogger(cmd.Context(), logging.NewLogger(cmd.ErrOrStderr(), level, format)))
		}
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var svc services
		fxApp := fx.New(
			bootstrap.Module,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&svc.App, &svc.Incidents, &svc.Params),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		// Switch to the configured handler now that log.* is known.
		level, format := resolveLogSettings(svc.App.Config.Log.Level, svc.App.Config.Log.Format)
		cmd.SetContext(logging.WithLogger(cmd.Context(), logging.NewLogger(cmd.ErrOrStderr(), level, format)))

		if err := run(cmd, args, svc); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}

// resolveLogSettings lets --log-level and --log-format win over configured values.
func resolveLogSettings(level, format string) (string, string) {
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	return level, format
}

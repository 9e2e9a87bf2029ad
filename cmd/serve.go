package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"troubledesk/internal/adapters/httpapi"
	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/errs"
	"troubledesk/internal/usecase/incident"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run the periodic status refresh",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ []string, svc services) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.WithAttrs(ctx, slog.String("command", cmd.CommandPath()))

		cfg := svc.App.Config
		addr := cfg.HTTP.Addr
		if flagAddr, _ := cmd.Flags().GetString("addr"); flagAddr != "" {
			addr = flagAddr
		}

		if cfg.Scheduler.Enabled {
			scheduler, err := startRefreshScheduler(ctx, cfg.Scheduler.RefreshSpec, cfg.App.Location(), refreshJob(svc.Incidents))
			if err != nil {
				return err
			}
			defer scheduler.Stop()
		}

		server := &http.Server{
			Addr:         addr,
			Handler:      httpapi.NewRouter(svc.Incidents, svc.Params, cfg.App.Location()),
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			BaseContext: func(_ net.Listener) context.Context {
				return ctx
			},
		}

		errCh := make(chan error, 1)
		go func() {
			logging.Info(ctx, "http server listening", slog.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			logging.Info(ctx, "shutdown signal received")
		case err := <-errCh:
			if err != nil {
				return errs.Wrap(err, "serve http")
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown http server")
		}
		logging.Info(ctx, "http server stopped")
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default http.addr)")
}

// refreshScheduler runs the status refresh on a cron schedule plus one
// kick-off run at start.
type refreshScheduler struct {
	cron    *cron.Cron
	kickoff sync.WaitGroup
}

// Stop halts the schedule and waits for any running refresh, the kick-off included.
func (r *refreshScheduler) Stop() {
	<-r.cron.Stop().Done()
	r.kickoff.Wait()
}

// startRefreshScheduler runs job once now and then on the cron schedule.
// Overlapping runs are skipped.
func startRefreshScheduler(ctx context.Context, spec string, loc *time.Location, job func(context.Context)) (*refreshScheduler, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "cmd.scheduler"))
	logger := cronLogger{ctx: logCtx}

	scheduler := &refreshScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
	id, err := scheduler.cron.AddFunc(spec, func() { job(logCtx) })
	if err != nil {
		return nil, fmt.Errorf("scheduler.refresh_spec %q: %w", spec, err)
	}

	// The kick-off goes through the same wrapped job so a tick that fires
	// while it is still running is skipped.
	wrapped := scheduler.cron.Entry(id).WrappedJob
	scheduler.kickoff.Add(1)
	go func() {
		defer scheduler.kickoff.Done()
		wrapped.Run()
	}()
	scheduler.cron.Start()
	logging.Info(logCtx, "status refresh scheduled", slog.String("spec", spec))
	return scheduler, nil
}

func refreshJob(svc *incident.Service) func(context.Context) {
	return func(ctx context.Context) {
		report, err := svc.RefreshStatuses(ctx)
		if err != nil {
			logging.Error(ctx, "status refresh failed", slog.Any("err", errs.Loggable(err)))
			return
		}
		logging.Info(
			ctx,
			"status refresh finished",
			slog.Int("scanned", report.Scanned),
			slog.Int("delayed", report.Delayed),
			slog.Int64("purged", report.Purged),
			slog.Duration("took", report.Took),
		)
	}
}

// cronLogger routes cron's own messages into the context logger.
type cronLogger struct {
	ctx context.Context
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	logging.Debug(l.ctx, "cron: "+msg, cronAttrs(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	attrs := append([]slog.Attr{slog.Any("err", errs.Loggable(err))}, cronAttrs(keysAndValues)...)
	logging.Error(l.ctx, "cron: "+msg, attrs...)
}

func cronAttrs(keysAndValues []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		attrs = append(attrs, slog.Any(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return attrs
}

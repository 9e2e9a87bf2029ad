package incident

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"troubledesk/internal/bootstrap/logging"
	domain "troubledesk/internal/domain/incident"
	"troubledesk/internal/errs"
	"troubledesk/internal/infrastructure/metrics"
	"troubledesk/internal/ports"
)

type RefreshReport struct {
	Scanned  int
	ByStatus map[domain.Status]int
	Delayed  int
	Purged   int64
	Took     time.Duration
}

// expiringCache is a cache that keeps expired entries until they are purged.
type expiringCache interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RefreshStatuses recomputes the status of every incomplete incident, rewrites
// its cache entry and publishes the per-status gauge.
func (s *Service) RefreshStatuses(ctx context.Context) (RefreshReport, error) {
	if ctx == nil {
		return RefreshReport{}, errors.New("context is required")
	}

	started := time.Now()
	rows, err := s.repo.ListIncidents(ctx, ports.IncidentFilter{OnlyIncomplete: true})
	if err != nil {
		metrics.RefreshRuns.WithLabelValues("error").Inc()
		logging.Error(s.logCtx(ctx), "status refresh failed", slog.Any("err", errs.Loggable(err)))
		return RefreshReport{}, classify(err, "list incomplete incidents")
	}

	now := s.now()
	deadlines := s.Deadlines(ctx)
	report := RefreshReport{
		Scanned:  len(rows),
		ByStatus: make(map[domain.Status]int, len(domain.AllStatuses)),
	}
	for _, row := range rows {
		status := domain.CalculateStatus(row.Snapshot(), now, deadlines)
		s.storeStatus(ctx, row, status, now, deadlines)
		report.ByStatus[status]++
		if status.Delayed() {
			report.Delayed++
		}
	}
	if purger, ok := s.cache.(expiringCache); ok {
		purged, err := purger.PurgeExpired(ctx)
		if err != nil {
			logging.Warn(s.logCtx(ctx), "purge expired cache entries failed", slog.Any("err", errs.Loggable(err)))
		}
		report.Purged = purged
	}
	report.Took = time.Since(started)

	for _, status := range domain.AllStatuses {
		if status == domain.StatusCompleted {
			continue
		}
		metrics.IncidentsByStatus.WithLabelValues(status.String()).Set(float64(report.ByStatus[status]))
	}
	metrics.RefreshRuns.WithLabelValues("ok").Inc()

	logging.Info(
		s.logCtx(ctx),
		"status refresh finished",
		slog.Int("scanned", report.Scanned),
		slog.Int("delayed", report.Delayed),
		slog.Int64("purged", report.Purged),
		slog.Duration("took", report.Took),
	)
	return report, nil
}

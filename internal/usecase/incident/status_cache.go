package incident

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"troubledesk/internal/bootstrap/logging"
	domain "troubledesk/internal/domain/incident"
	"troubledesk/internal/errs"
	"troubledesk/internal/infrastructure/metrics"
)

const (
	statusKeyPrefix = "incident_status:"
	// nearDeadlineTTL replaces the regular ttl when the next deadline is less
	// than nearDeadlineWindow away.
	nearDeadlineTTL    = time.Minute
	nearDeadlineWindow = time.Hour
)

type cachedStatus struct {
	Status     domain.Status `json:"status"`
	SecondDays int           `json:"second_days"`
	ThirdDays  int           `json:"third_days"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func statusKey(id int64) string {
	return statusKeyPrefix + strconv.FormatInt(id, 10)
}

// trusted reports whether a cached status still holds for inc at now.
func (c cachedStatus) trusted(inc domain.Incident, now time.Time, d domain.Deadlines) bool {
	if !c.Status.Valid() {
		return false
	}
	if c.SecondDays != d.SecondInfoDays || c.ThirdDays != d.ThirdInfoDays {
		return false
	}
	if !c.UpdatedAt.Equal(inc.UpdatedAt) {
		return false
	}

	switch c.Status {
	case domain.StatusSecondInfoInvestigation:
		return !now.After(inc.CreationDate.AddDate(0, 0, d.SecondInfoDays))
	case domain.StatusThirdInfoInvestigation:
		if inc.SecondInputDate == nil {
			return false
		}
		return !now.After(inc.SecondInputDate.AddDate(0, 0, d.ThirdInfoDays))
	}
	return true
}

// statusOf returns the derived status, reusing a cached value when it is still valid.
func (s *Service) statusOf(ctx context.Context, inc domain.Incident, now time.Time, d domain.Deadlines) domain.Status {
	if s.cache != nil {
		raw, found, err := s.cache.Get(ctx, statusKey(inc.ID))
		if err != nil {
			logging.Warn(s.logCtx(ctx, slog.Int64("incident_id", inc.ID)), "status cache read failed", slog.Any("err", errs.Loggable(err)))
		}
		if found {
			var cached cachedStatus
			if json.Unmarshal([]byte(raw), &cached) == nil && cached.trusted(inc, now, d) {
				metrics.StatusCacheResults.WithLabelValues("hit").Inc()
				return cached.Status
			}
			metrics.StatusCacheResults.WithLabelValues("stale").Inc()
		} else {
			metrics.StatusCacheResults.WithLabelValues("miss").Inc()
		}
	}

	status := domain.CalculateStatus(inc.Snapshot(), now, d)
	s.storeStatus(ctx, inc, status, now, d)
	return status
}

func (s *Service) storeStatus(ctx context.Context, inc domain.Incident, status domain.Status, now time.Time, d domain.Deadlines) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(cachedStatus{
		Status:     status,
		SecondDays: d.SecondInfoDays,
		ThirdDays:  d.ThirdInfoDays,
		UpdatedAt:  inc.UpdatedAt,
	})
	if err != nil {
		return
	}

	ttl := s.statusTTL
	if deadline, ok := domain.NextDeadline(inc.Snapshot(), now, d); ok && deadline.Sub(now) < nearDeadlineWindow {
		ttl = nearDeadlineTTL
	}
	if err := s.cache.Set(ctx, statusKey(inc.ID), string(raw), ttl); err != nil {
		logging.Warn(s.logCtx(ctx, slog.Int64("incident_id", inc.ID)), "status cache write failed", slog.Any("err", errs.Loggable(err)))
	}
}

func (s *Service) forgetStatus(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, statusKey(id)); err != nil {
		logging.Warn(s.logCtx(ctx, slog.Int64("incident_id", id)), "status cache delete failed", slog.Any("err", errs.Loggable(err)))
	}
}

func nextDeadline(inc domain.Incident, now time.Time, d domain.Deadlines) *time.Time {
	deadline, ok := domain.NextDeadline(inc.Snapshot(), now, d)
	if !ok {
		return nil
	}
	return &deadline
}

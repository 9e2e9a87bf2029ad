package incident

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"troubledesk/internal/bootstrap/logging"
	domain "troubledesk/internal/domain/incident"
	"troubledesk/internal/errs"
	"troubledesk/internal/ports"
)

func (s *Service) GetIncident(ctx context.Context, actor domain.Actor, id int64) (Detail, error) {
	if ctx == nil {
		return Detail{}, errors.New("context is required")
	}

	inc, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return Detail{}, classify(err, "get incident")
	}
	return s.detail(ctx, actor, inc, s.now())
}

func (s *Service) detail(ctx context.Context, actor domain.Actor, inc domain.Incident, now time.Time) (Detail, error) {
	deadlines := s.Deadlines(ctx)
	status := s.statusOf(ctx, inc, now, deadlines)

	files, err := s.repo.ListFiles(ctx, inc.ID, 0)
	if err != nil {
		return Detail{}, classify(err, "list incident files")
	}
	events, err := s.repo.ListEvents(ctx, inc.ID)
	if err != nil {
		return Detail{}, classify(err, "list incident events")
	}

	return Detail{
		Incident:     inc,
		Status:       status,
		NextDeadline: nextDeadline(inc, now, deadlines),
		Permissions:  domain.Permissions(actor.Role, status, inc.Snapshot()),
		Files:        files,
		Events:       events,
	}, nil
}

// ListIncidents derives statuses for every match, filters on them and pages
// the result newest first. PageSize < 0 returns everything.
func (s *Service) ListIncidents(ctx context.Context, filter ListFilter) (ListResult, error) {
	if ctx == nil {
		return ListResult{}, errors.New("context is required")
	}
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return ListResult{}, errs.WithCode(fmt.Errorf("%w: %q", domain.ErrUnknownStatus, status), errs.CodeInvalidInput)
		}
	}

	rows, err := s.repo.ListIncidents(ctx, s.toListFilter(filter))
	if err != nil {
		return ListResult{}, classify(err, "list incidents")
	}

	now := s.now()
	deadlines := s.Deadlines(ctx)
	matched := make([]ListItem, 0, len(rows))
	for _, row := range rows {
		status := s.statusOf(ctx, row, now, deadlines)
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, status) {
			continue
		}
		if filter.DelayedOnly && !status.Delayed() {
			continue
		}
		matched = append(matched, ListItem{
			Incident:     row,
			Status:       status,
			NextDeadline: nextDeadline(row, now, deadlines),
		})
	}

	page, pageSize := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	switch {
	case pageSize < 0:
		return ListResult{Items: matched, Total: len(matched), Page: 1, PageSize: len(matched)}, nil
	case pageSize == 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}

	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	return ListResult{
		Items:    matched[start:end],
		Total:    len(matched),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// DeleteIncident is limited to administrators and removes files and events too.
func (s *Service) DeleteIncident(ctx context.Context, actor domain.Actor, id int64) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if !actor.Role.IsAdmin() {
		return errs.WithCode(
			fmt.Errorf("%w: %s may not delete incidents", domain.ErrForbidden, actor.Role),
			errs.CodeForbidden,
		)
	}

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.DeleteIncident(txCtx, id)
	}); err != nil {
		return classify(err, "delete incident")
	}

	s.forgetStatus(ctx, id)
	s.publish(ctx, ports.IncidentEvent{
		IncidentID: id,
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Action:     "incident.delete",
		CreatedAt:  s.now(),
	})
	logging.Info(
		s.logCtx(ctx, slog.Int64("incident_id", id)),
		"incident deleted",
		slog.Int64("actor_id", actor.UserID),
	)
	return nil
}

package incident

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"troubledesk/internal/bootstrap/logging"
	domain "troubledesk/internal/domain/incident"
	"troubledesk/internal/errs"
	"troubledesk/internal/ports"
)

const (
	DefaultStatusTTL    = 5 * time.Minute
	DefaultMaxFileBytes = 10 << 20
	defaultPageSize     = 50
	maxPageSize         = 500
)

// DeadlineSource supplies the configured deadline day counts.
type DeadlineSource interface {
	DeadlineDays(ctx context.Context) domain.Deadlines
}

type Options struct {
	StatusTTL    time.Duration
	MaxFileBytes int64
	Location     *time.Location
	Now          func() time.Time
	// Publisher receives every committed change; nil disables publishing.
	Publisher ports.EventPublisher
}

// Service orchestrates incident persistence around the status and permission rules.
type Service struct {
	repo      ports.IncidentRepository
	uow       ports.UnitOfWork
	cache     ports.Cache
	deadlines DeadlineSource
	exporters map[string]ports.IncidentExporter
	publisher ports.EventPublisher

	statusTTL    time.Duration
	maxFileBytes int64
	loc          *time.Location
	now          func() time.Time
}

func NewService(
	repo ports.IncidentRepository,
	uow ports.UnitOfWork,
	cache ports.Cache,
	deadlines DeadlineSource,
	exporters []ports.IncidentExporter,
	opts Options,
) *Service {
	svc := &Service{
		repo:         repo,
		uow:          uow,
		cache:        cache,
		deadlines:    deadlines,
		exporters:    make(map[string]ports.IncidentExporter, len(exporters)),
		statusTTL:    opts.StatusTTL,
		maxFileBytes: opts.MaxFileBytes,
		loc:          opts.Location,
		now:          opts.Now,
		publisher:    opts.Publisher,
	}
	for _, exporter := range exporters {
		svc.exporters[strings.ToLower(exporter.Format())] = exporter
	}
	if svc.statusTTL <= 0 {
		svc.statusTTL = DefaultStatusTTL
	}
	if svc.maxFileBytes <= 0 {
		svc.maxFileBytes = DefaultMaxFileBytes
	}
	if svc.loc == nil {
		svc.loc = time.UTC
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Phase1Input carries the 1st-info fields. CreationDate defaults to today and
// CreatorID to the acting user.
type Phase1Input struct {
	CreationDate            time.Time
	OrganizationID          int64
	CreatorID               int64
	OccurrenceAt            time.Time
	OccurrenceLocation      string
	ShippingWarehouseID     int64
	ShippingCompanyID       int64
	TroubleCategoryID       int64
	TroubleDetailCategoryID int64
	Details                 string
	VoucherNumber           string
	CustomerCode            string
	ProductCode             string
	Quantity                *int
	Unit                    string
}

// Phase2Input carries the 2nd-info fields. A nil InputDate means today on
// create and "unchanged" on update.
type Phase2Input struct {
	InputDate          *time.Time
	ProcessDescription string
	Cause              string
	PhotoRef           string
}

type Phase3Input struct {
	InputDate                    *time.Time
	RecurrencePreventionMeasures string
}

type Detail struct {
	Incident     domain.Incident
	Status       domain.Status
	NextDeadline *time.Time
	Permissions  map[domain.Action]bool
	Files        []ports.IncidentFile
	Events       []ports.IncidentEvent
}

type ListFilter struct {
	OrganizationID      int64
	ShippingWarehouseID int64
	TroubleCategoryID   int64
	// CreatedFrom and CreatedTo are calendar dates, both inclusive.
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Keyword     string
	Statuses    []domain.Status
	DelayedOnly bool
	Page        int
	PageSize    int
}

type ListItem struct {
	Incident     domain.Incident
	Status       domain.Status
	NextDeadline *time.Time
}

type ListResult struct {
	Items    []ListItem
	Total    int
	Page     int
	PageSize int
}

// MaxFileBytes is the upload limit for a single attachment.
func (s *Service) MaxFileBytes() int64 {
	return s.maxFileBytes
}

// publish is best effort: the change is already committed, so a failure is only logged.
func (s *Service) publish(ctx context.Context, event ports.IncidentEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logging.Warn(
			s.logCtx(ctx, slog.Int64("incident_id", event.IncidentID)),
			"publish incident event failed",
			slog.String("action", event.Action),
			slog.Any("err", errs.Loggable(err)),
		)
	}
}

func (s *Service) logCtx(ctx context.Context, attrs ...slog.Attr) context.Context {
	return logging.WithAttrs(ctx, append([]slog.Attr{slog.String("component", "usecase.incident")}, attrs...)...)
}

// Deadlines never fails; a missing source yields the defaults.
func (s *Service) Deadlines(ctx context.Context) domain.Deadlines {
	if s.deadlines == nil {
		return domain.DefaultDeadlines()
	}
	return s.deadlines.DeadlineDays(ctx).Normalize()
}

func (s *Service) today() time.Time {
	year, month, day := s.now().In(s.loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, s.loc)
}

func (s *Service) dateOf(value time.Time) time.Time {
	year, month, day := value.In(s.loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, s.loc)
}

func forbidden(actor domain.Actor, action domain.Action, status domain.Status) error {
	return errs.WithCode(
		fmt.Errorf("%w: %s may not %s while %s", domain.ErrForbidden, actor.Role, action, status),
		errs.CodeForbidden,
	)
}

func invalidInput(format string, args ...any) error {
	return errs.WithCode(
		fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...)),
		errs.CodeInvalidInput,
	)
}

// classify attaches transport codes to repository and domain errors.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	switch {
	case errs.CodeOf(err) != errs.CodeInternal:
		return err
	case errors.Is(err, ports.ErrIncidentNotFound), errors.Is(err, ports.ErrFileNotFound):
		return errs.WithCode(err, errs.CodeNotFound)
	case errors.Is(err, domain.ErrForbidden):
		return errs.WithCode(err, errs.CodeForbidden)
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrMixedPhaseUpdate), errors.Is(err, domain.ErrEmptyPatch):
		return errs.WithCode(err, errs.CodeInvalidInput)
	case errors.Is(err, domain.ErrPhaseStarted), errors.Is(err, domain.ErrPhaseNotStarted):
		return errs.WithCode(err, errs.CodeConflict)
	}
	return errs.Wrap(err, msg)
}

func (s *Service) toListFilter(filter ListFilter) ports.IncidentFilter {
	out := ports.IncidentFilter{
		OrganizationID:      filter.OrganizationID,
		ShippingWarehouseID: filter.ShippingWarehouseID,
		TroubleCategoryID:   filter.TroubleCategoryID,
		Keyword:             filter.Keyword,
	}
	if filter.CreatedFrom != nil {
		from := s.dateOf(*filter.CreatedFrom)
		out.CreatedFrom = &from
	}
	if filter.CreatedTo != nil {
		before := s.dateOf(*filter.CreatedTo).AddDate(0, 0, 1)
		out.CreatedBefore = &before
	}
	if filter.DelayedOnly || (len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, domain.StatusCompleted)) {
		out.OnlyIncomplete = true
	}
	return out
}

func containsStatus(statuses []domain.Status, want domain.Status) bool {
	for _, status := range statuses {
		if status == want {
			return true
		}
	}
	return false
}

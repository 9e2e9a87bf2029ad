package incident

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"troubledesk/internal/bootstrap/logging"
	domain "troubledesk/internal/domain/incident"
	"troubledesk/internal/errs"
	"troubledesk/internal/ports"
)

func (s *Service) CreateIncident(ctx context.Context, actor domain.Actor, input Phase1Input) (Detail, error) {
	if ctx == nil {
		return Detail{}, errors.New("context is required")
	}
	if !domain.CanCreatePhase1(actor.Role) {
		return Detail{}, forbidden(actor, domain.ActionCreateFirstInfo, "")
	}

	now := s.now()
	inc := domain.Incident{}
	s.applyPhase1(&inc, input)
	if inc.CreationDate.IsZero() {
		inc.CreationDate = s.today()
	}
	if inc.CreatorID == 0 {
		inc.CreatorID = actor.UserID
	}
	if missing := inc.ValidateFirstInfo(); len(missing) > 0 {
		return Detail{}, invalidInput("missing or invalid 1st info fields: %s", strings.Join(missing, ", "))
	}
	inc.CreatedAt = now
	inc.UpdatedAt = now
	inc.CreatedBy = actor.UserID
	inc.UpdatedBy = actor.UserID

	var (
		created domain.Incident
		event   ports.IncidentEvent
	)
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.repo.CreateIncident(txCtx, inc)
		if err != nil {
			return err
		}
		event = ports.IncidentEvent{
			IncidentID: created.ID,
			ActorID:    actor.UserID,
			ActorRole:  actor.Role,
			Action:     string(domain.ActionCreateFirstInfo),
			Phase:      1,
			Changes:    changedFields(domain.Incident{}, created),
			CreatedAt:  now,
		}
		return s.repo.AppendEvent(txCtx, event)
	})
	if err != nil {
		return Detail{}, classify(err, "create incident")
	}
	s.publish(ctx, event)

	logging.Info(
		s.logCtx(ctx, slog.Int64("incident_id", created.ID)),
		"incident created",
		slog.Int64("actor_id", actor.UserID),
		slog.String("role", actor.Role.String()),
	)
	return s.detail(ctx, actor, created, now)
}

func (s *Service) UpdatePhase1(ctx context.Context, actor domain.Actor, id int64, input Phase1Input) (Detail, error) {
	return s.mutate(ctx, actor, id, func(inc *domain.Incident, _ domain.Status) (domain.Action, error) {
		creator := inc.CreatorID
		created := inc.CreationDate
		s.applyPhase1(inc, input)
		if inc.CreatorID == 0 {
			inc.CreatorID = creator
		}
		if inc.CreationDate.IsZero() {
			inc.CreationDate = created
		}
		return domain.ActionUpdateFirstInfo, nil
	})
}

func (s *Service) CreatePhase2(ctx context.Context, actor domain.Actor, id int64, input Phase2Input) (Detail, error) {
	return s.mutate(ctx, actor, id, func(inc *domain.Incident, _ domain.Status) (domain.Action, error) {
		if inc.Snapshot().SecondInfoStarted() {
			return "", errs.WithCode(domain.ErrPhaseStarted, errs.CodeConflict)
		}
		inputDate := s.today()
		if input.InputDate != nil {
			inputDate = s.dateOf(*input.InputDate)
		}
		inc.SecondInputDate = &inputDate
		inc.ProcessDescription = strings.TrimSpace(input.ProcessDescription)
		inc.Cause = strings.TrimSpace(input.Cause)
		inc.PhotoRef = strings.TrimSpace(input.PhotoRef)
		if err := requireSecondInfo(*inc); err != nil {
			return "", err
		}
		return domain.ActionCreateSecondInfo, nil
	})
}

func (s *Service) UpdatePhase2(ctx context.Context, actor domain.Actor, id int64, input Phase2Input) (Detail, error) {
	return s.mutate(ctx, actor, id, func(inc *domain.Incident, _ domain.Status) (domain.Action, error) {
		if !inc.Snapshot().SecondInfoStarted() {
			return "", errs.WithCode(domain.ErrPhaseNotStarted, errs.CodeConflict)
		}
		if input.InputDate != nil {
			inputDate := s.dateOf(*input.InputDate)
			inc.SecondInputDate = &inputDate
		}
		inc.ProcessDescription = strings.TrimSpace(input.ProcessDescription)
		inc.Cause = strings.TrimSpace(input.Cause)
		inc.PhotoRef = strings.TrimSpace(input.PhotoRef)
		if err := requireSecondInfo(*inc); err != nil {
			return "", err
		}
		return domain.ActionUpdateSecondInfo, nil
	})
}

func (s *Service) CreatePhase3(ctx context.Context, actor domain.Actor, id int64, input Phase3Input) (Detail, error) {
	return s.mutate(ctx, actor, id, func(inc *domain.Incident, _ domain.Status) (domain.Action, error) {
		if inc.Snapshot().ThirdInfoStarted() {
			return "", errs.WithCode(domain.ErrPhaseStarted, errs.CodeConflict)
		}
		inputDate := s.today()
		if input.InputDate != nil {
			inputDate = s.dateOf(*input.InputDate)
		}
		inc.ThirdInputDate = &inputDate
		inc.RecurrencePreventionMeasures = strings.TrimSpace(input.RecurrencePreventionMeasures)
		return domain.ActionCreateThirdInfo, nil
	})
}

// UpdatePhase3 keeps stored measures when the input leaves them blank.
func (s *Service) UpdatePhase3(ctx context.Context, actor domain.Actor, id int64, input Phase3Input) (Detail, error) {
	return s.mutate(ctx, actor, id, func(inc *domain.Incident, _ domain.Status) (domain.Action, error) {
		if !inc.Snapshot().ThirdInfoStarted() {
			return "", errs.WithCode(domain.ErrPhaseNotStarted, errs.CodeConflict)
		}
		if input.InputDate != nil {
			inputDate := s.dateOf(*input.InputDate)
			inc.ThirdInputDate = &inputDate
		}
		if measures := strings.TrimSpace(input.RecurrencePreventionMeasures); measures != "" {
			inc.RecurrencePreventionMeasures = measures
		}
		return domain.ActionUpdateThirdInfo, nil
	})
}

// ApplyPatch records a partial update against the phase it touches. Writes
// mixing 1st info with 2nd or 3rd info are rejected.
func (s *Service) ApplyPatch(ctx context.Context, actor domain.Actor, id int64, patch domain.Patch) (Detail, error) {
	classification := domain.ClassifyPatch(patch)
	if classification.Empty() {
		return Detail{}, errs.WithCode(domain.ErrEmptyPatch, errs.CodeInvalidInput)
	}
	if classification.Mixed() {
		return Detail{}, errs.WithCode(domain.ErrMixedPhaseUpdate, errs.CodeInvalidInput)
	}

	return s.mutate(ctx, actor, id, func(inc *domain.Incident, _ domain.Status) (domain.Action, error) {
		snapshot := inc.Snapshot()
		inc.ApplyPatch(patch)
		if patch.CreationDate != nil {
			inc.CreationDate = s.dateOf(*patch.CreationDate)
		}
		if patch.SecondInputDate != nil {
			inputDate := s.dateOf(*patch.SecondInputDate)
			inc.SecondInputDate = &inputDate
		}
		if patch.ThirdInputDate != nil {
			inputDate := s.dateOf(*patch.ThirdInputDate)
			inc.ThirdInputDate = &inputDate
		}

		switch classification.Attributed() {
		case 1:
			return domain.ActionUpdateFirstInfo, nil
		case 2:
			if snapshot.SecondInfoStarted() {
				return domain.ActionUpdateSecondInfo, nil
			}
			if inc.SecondInputDate == nil {
				today := s.today()
				inc.SecondInputDate = &today
			}
			if err := requireSecondInfo(*inc); err != nil {
				return "", err
			}
			return domain.ActionCreateSecondInfo, nil
		default:
			if snapshot.ThirdInfoStarted() {
				return domain.ActionUpdateThirdInfo, nil
			}
			if inc.ThirdInputDate == nil {
				today := s.today()
				inc.ThirdInputDate = &today
			}
			return domain.ActionCreateThirdInfo, nil
		}
	})
}

// editFunc changes inc in place and names the action to authorize. status is
// the status before the change.
type editFunc func(inc *domain.Incident, status domain.Status) (domain.Action, error)

// mutate loads, authorizes, edits and stores one incident in a transaction.
// Permission is judged on the state before the edit with a freshly derived status.
func (s *Service) mutate(ctx context.Context, actor domain.Actor, id int64, edit editFunc) (Detail, error) {
	if ctx == nil {
		return Detail{}, errors.New("context is required")
	}

	now := s.now()
	deadlines := s.Deadlines(ctx)

	var (
		updated domain.Incident
		action  domain.Action
		event   *ports.IncidentEvent
	)
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetIncident(txCtx, id)
		if err != nil {
			return err
		}
		before := current.Snapshot()
		status := domain.CalculateStatus(before, now, deadlines)

		next := current
		action, err = edit(&next, status)
		if err != nil {
			return err
		}
		if !domain.Allowed(action, actor.Role, status, before) {
			return forbidden(actor, action, status)
		}
		if missing := next.ValidateFirstInfo(); len(missing) > 0 {
			return invalidInput("missing or invalid 1st info fields: %s", strings.Join(missing, ", "))
		}

		changes := changedFields(current, next)
		if len(changes) == 0 {
			updated = current
			return nil
		}

		next.UpdatedAt = now
		next.UpdatedBy = actor.UserID
		if err := s.repo.UpdateIncident(txCtx, next); err != nil {
			return err
		}
		updated = next

		event = &ports.IncidentEvent{
			IncidentID: id,
			ActorID:    actor.UserID,
			ActorRole:  actor.Role,
			Action:     string(action),
			Phase:      action.Phase(),
			Changes:    changes,
			CreatedAt:  now,
		}
		return s.repo.AppendEvent(txCtx, *event)
	})
	if err != nil {
		logging.Info(
			s.logCtx(ctx, slog.Int64("incident_id", id)),
			"incident write rejected",
			slog.String("action", string(action)),
			slog.String("role", actor.Role.String()),
			slog.Any("err", errs.Loggable(err)),
		)
		return Detail{}, classify(err, "update incident")
	}

	s.forgetStatus(ctx, id)
	if event != nil {
		s.publish(ctx, *event)
	}
	logging.Info(
		s.logCtx(ctx, slog.Int64("incident_id", id)),
		"incident updated",
		slog.String("action", string(action)),
		slog.Int64("actor_id", actor.UserID),
	)
	return s.detail(ctx, actor, updated, now)
}

// applyPhase1 stores CreationDate as a calendar date in the service location.
func (s *Service) applyPhase1(inc *domain.Incident, input Phase1Input) {
	if !input.CreationDate.IsZero() {
		inc.CreationDate = s.dateOf(input.CreationDate)
	}
	inc.OrganizationID = input.OrganizationID
	if input.CreatorID != 0 {
		inc.CreatorID = input.CreatorID
	}
	inc.OccurrenceAt = input.OccurrenceAt
	inc.OccurrenceLocation = strings.TrimSpace(input.OccurrenceLocation)
	inc.ShippingWarehouseID = input.ShippingWarehouseID
	inc.ShippingCompanyID = input.ShippingCompanyID
	inc.TroubleCategoryID = input.TroubleCategoryID
	inc.TroubleDetailCategoryID = input.TroubleDetailCategoryID
	inc.Details = strings.TrimSpace(input.Details)
	inc.VoucherNumber = strings.TrimSpace(input.VoucherNumber)
	inc.CustomerCode = strings.TrimSpace(input.CustomerCode)
	inc.ProductCode = strings.TrimSpace(input.ProductCode)
	inc.Quantity = input.Quantity
	inc.Unit = strings.TrimSpace(input.Unit)
}

func requireSecondInfo(inc domain.Incident) error {
	var missing []string
	if inc.ProcessDescription == "" {
		missing = append(missing, "process_description")
	}
	if inc.Cause == "" {
		missing = append(missing, "cause")
	}
	if len(missing) > 0 {
		return invalidInput("2nd info requires %s", strings.Join(missing, ", "))
	}
	return nil
}

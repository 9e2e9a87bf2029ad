package parameter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/domain/incident"
	"troubledesk/internal/domain/sysparam"
	"troubledesk/internal/errs"
	"troubledesk/internal/infrastructure/metrics"
	"troubledesk/internal/ports"
)

const (
	cacheKeyPrefix = "sysparam:"
	DefaultTTL     = 30 * time.Minute
)

var ErrInvalidParameterValue = sysparam.ErrInvalidValue

// Service resolves typed system parameters with a read-through cache.
// Lookups never fail: callers pass a default that is used whenever the
// parameter is absent, inactive, mistyped or the store is unavailable.
type Service struct {
	repo  ports.ParameterRepository
	uow   ports.UnitOfWork
	cache ports.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewService(repo ports.ParameterRepository, uow ports.UnitOfWork, cache ports.Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		repo:  repo,
		uow:   uow,
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
	}
}

type cachedParameter struct {
	Missing bool   `json:"missing,omitempty"`
	Value   string `json:"value,omitempty"`
	Type    string `json:"type,omitempty"`
	Active  bool   `json:"active,omitempty"`
}

func cacheKey(key string) string {
	return cacheKeyPrefix + key
}

func (s *Service) logCtx(ctx context.Context, key string) context.Context {
	return logging.WithAttrs(ctx, slog.String("component", "usecase.parameter"), slog.String("key", key))
}

// lookup returns ok=false when the parameter does not exist or cannot be read.
func (s *Service) lookup(ctx context.Context, key string) (sysparam.Parameter, bool) {
	key = strings.TrimSpace(key)
	logCtx := s.logCtx(ctx, key)

	if s.cache != nil {
		raw, found, err := s.cache.Get(ctx, cacheKey(key))
		if err != nil {
			logging.Warn(logCtx, "parameter cache read failed", slog.Any("err", errs.Loggable(err)))
		}
		if found {
			var cached cachedParameter
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				metrics.ParameterCacheResults.WithLabelValues("hit").Inc()
				if cached.Missing {
					return sysparam.Parameter{}, false
				}
				return sysparam.Parameter{
					Key:       key,
					Value:     cached.Value,
					ValueType: sysparam.ValueType(cached.Type),
					IsActive:  cached.Active,
				}, true
			}
			logging.Warn(logCtx, "discarding undecodable parameter cache entry")
		}
	}
	metrics.ParameterCacheResults.WithLabelValues("miss").Inc()

	if s.repo == nil {
		return sysparam.Parameter{}, false
	}

	param, err := s.repo.GetParameter(ctx, key)
	if err != nil {
		if errors.Is(err, ports.ErrParameterNotFound) {
			s.store(ctx, key, cachedParameter{Missing: true})
			return sysparam.Parameter{}, false
		}
		metrics.ParameterCacheResults.WithLabelValues("error").Inc()
		logging.Warn(logCtx, "parameter lookup failed, using default", slog.Any("err", errs.Loggable(err)))
		return sysparam.Parameter{}, false
	}

	s.store(ctx, key, cachedParameter{
		Value:  param.Value,
		Type:   string(param.ValueType),
		Active: param.IsActive,
	})
	return param.Parameter, true
}

func (s *Service) store(ctx context.Context, key string, value cachedParameter) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(key), string(raw), s.ttl); err != nil {
		logging.Warn(s.logCtx(ctx, key), "parameter cache write failed", slog.Any("err", errs.Loggable(err)))
	}
}

func (s *Service) invalidate(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(key)); err != nil {
		logging.Warn(s.logCtx(ctx, key), "parameter cache delete failed", slog.Any("err", errs.Loggable(err)))
	}
}

func (s *Service) GetInt(ctx context.Context, key string, def int) int {
	param, ok := s.lookup(ctx, key)
	if !ok {
		return def
	}
	value, err := param.Int()
	if err != nil {
		logging.Debug(s.logCtx(ctx, key), "parameter unusable as int, using default", slog.Any("err", errs.Loggable(err)))
		return def
	}
	return value
}

func (s *Service) GetString(ctx context.Context, key string, def string) string {
	param, ok := s.lookup(ctx, key)
	if !ok {
		return def
	}
	value, err := param.String()
	if err != nil {
		return def
	}
	return value
}

func (s *Service) GetBool(ctx context.Context, key string, def bool) bool {
	param, ok := s.lookup(ctx, key)
	if !ok {
		return def
	}
	value, err := param.Bool()
	if err != nil {
		logging.Debug(s.logCtx(ctx, key), "parameter unusable as bool, using default", slog.Any("err", errs.Loggable(err)))
		return def
	}
	return value
}

func (s *Service) GetDecimal(ctx context.Context, key string, def decimal.Decimal) decimal.Decimal {
	param, ok := s.lookup(ctx, key)
	if !ok {
		return def
	}
	value, err := param.Decimal()
	if err != nil {
		logging.Debug(s.logCtx(ctx, key), "parameter unusable as decimal, using default", slog.Any("err", errs.Loggable(err)))
		return def
	}
	return value
}

// DeadlineDays reads both deadline parameters. Non-positive values fall back to the default.
func (s *Service) DeadlineDays(ctx context.Context) incident.Deadlines {
	if s == nil {
		return incident.DefaultDeadlines()
	}
	return incident.Deadlines{
		SecondInfoDays: s.GetInt(ctx, incident.ParamSecondInfoDeadlineDays, incident.DefaultDeadlineDays),
		ThirdInfoDays:  s.GetInt(ctx, incident.ParamThirdInfoDeadlineDays, incident.DefaultDeadlineDays),
	}.Normalize()
}

type SetInput struct {
	Key   string
	Value string
	// Type may be empty to keep the stored type (string for new keys).
	Type        string
	Description *string
	IsActive    *bool
}

func (s *Service) Set(ctx context.Context, actor incident.Actor, input SetInput) (ports.SystemParameter, error) {
	if ctx == nil {
		return ports.SystemParameter{}, errors.New("context is required")
	}
	if !actor.Role.IsAdmin() {
		return ports.SystemParameter{}, errs.WithCode(
			fmt.Errorf("%w: %s cannot change system parameters", incident.ErrForbidden, actor.Role),
			errs.CodeForbidden,
		)
	}

	var saved ports.SystemParameter
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		param, err := s.prepare(txCtx, actor, input)
		if err != nil {
			return err
		}
		saved, err = s.repo.UpsertParameter(txCtx, param)
		return err
	})
	if err != nil {
		return ports.SystemParameter{}, err
	}

	s.invalidate(ctx, saved.Key)
	logging.Info(
		s.logCtx(ctx, saved.Key),
		"system parameter updated",
		slog.String("value", saved.Value),
		slog.String("type", string(saved.ValueType)),
		slog.Int64("updated_by", actor.UserID),
	)
	return saved, nil
}

// prepare merges input over the stored row and validates the result.
func (s *Service) prepare(ctx context.Context, actor incident.Actor, input SetInput) (ports.SystemParameter, error) {
	key := strings.TrimSpace(input.Key)
	if key == "" {
		return ports.SystemParameter{}, errs.WithCode(sysparam.ErrKeyRequired, errs.CodeInvalidInput)
	}

	param := ports.SystemParameter{Parameter: sysparam.Parameter{Key: key, ValueType: sysparam.TypeString, IsActive: true}}
	existing, err := s.repo.GetParameter(ctx, key)
	switch {
	case err == nil:
		param = existing
	case errors.Is(err, ports.ErrParameterNotFound):
	default:
		return ports.SystemParameter{}, errs.Wrap(err, "load system parameter")
	}

	param.Value = strings.TrimSpace(input.Value)
	if strings.TrimSpace(input.Type) != "" {
		valueType, err := sysparam.ParseValueType(input.Type)
		if err != nil {
			return ports.SystemParameter{}, errs.WithCode(err, errs.CodeInvalidInput)
		}
		param.ValueType = valueType
	}
	if input.Description != nil {
		param.Description = strings.TrimSpace(*input.Description)
	}
	if input.IsActive != nil {
		param.IsActive = *input.IsActive
	}
	if err := param.Validate(); err != nil {
		return ports.SystemParameter{}, errs.WithCode(err, errs.CodeInvalidInput)
	}

	param.UpdatedAt = s.now().UTC()
	param.UpdatedBy = actor.UserID
	return param, nil
}

func (s *Service) List(ctx context.Context) ([]ports.SystemParameter, error) {
	items, err := s.repo.ListParameters(ctx)
	if err != nil {
		return nil, errs.Wrap(err, "list system parameters")
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, key string) (ports.SystemParameter, error) {
	param, err := s.repo.GetParameter(ctx, strings.TrimSpace(key))
	if err != nil {
		if errors.Is(err, ports.ErrParameterNotFound) {
			return ports.SystemParameter{}, errs.WithCode(err, errs.CodeNotFound)
		}
		return ports.SystemParameter{}, errs.Wrap(err, "get system parameter")
	}
	return param, nil
}

// EnsureDefaults creates the deadline parameters that do not exist yet.
func (s *Service) EnsureDefaults(ctx context.Context) ([]string, error) {
	defaults := []ports.SystemParameter{
		{Parameter: sysparam.Parameter{
			Key:         incident.ParamSecondInfoDeadlineDays,
			Value:       fmt.Sprint(incident.DefaultDeadlineDays),
			ValueType:   sysparam.TypeInt,
			Description: "days after creation before 2nd info is delayed",
			IsActive:    true,
		}},
		{Parameter: sysparam.Parameter{
			Key:         incident.ParamThirdInfoDeadlineDays,
			Value:       fmt.Sprint(incident.DefaultDeadlineDays),
			ValueType:   sysparam.TypeInt,
			Description: "days after 2nd info input before 3rd info is delayed",
			IsActive:    true,
		}},
	}

	var created []string
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		for _, param := range defaults {
			_, err := s.repo.GetParameter(txCtx, param.Key)
			if err == nil {
				continue
			}
			if !errors.Is(err, ports.ErrParameterNotFound) {
				return errs.Wrap(err, "load system parameter")
			}
			param.UpdatedAt = s.now().UTC()
			if _, err := s.repo.UpsertParameter(txCtx, param); err != nil {
				return err
			}
			created = append(created, param.Key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, key := range created {
		s.invalidate(ctx, key)
	}
	return created, nil
}

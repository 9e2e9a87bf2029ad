package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"troubledesk/internal/domain/sysparam"
	"troubledesk/internal/errs"
	"troubledesk/internal/infrastructure/persistence/sqlite/model"
	"troubledesk/internal/ports"
)

type ParameterRepository struct {
	db *gorm.DB
}

var _ ports.ParameterRepository = (*ParameterRepository)(nil)

func NewParameterRepository(db *gorm.DB) *ParameterRepository {
	return &ParameterRepository{db: db}
}

func (r *ParameterRepository) ListParameters(ctx context.Context) ([]ports.SystemParameter, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.SystemParameter
	if err := db.Order("key asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query system parameters")
	}

	items := make([]ports.SystemParameter, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapParameter(row))
	}
	return items, nil
}

func (r *ParameterRepository) GetParameter(ctx context.Context, key string) (ports.SystemParameter, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.SystemParameter{}, err
	}

	var row model.SystemParameter
	if err := db.Where("key = ?", strings.TrimSpace(key)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.SystemParameter{}, fmt.Errorf("%w: %s", ports.ErrParameterNotFound, key)
		}
		return ports.SystemParameter{}, errs.Wrap(err, "query system parameter")
	}
	return mapParameter(row), nil
}

func (r *ParameterRepository) UpsertParameter(ctx context.Context, param ports.SystemParameter) (ports.SystemParameter, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.SystemParameter{}, err
	}

	row := model.SystemParameter{
		Key:         strings.TrimSpace(param.Key),
		Value:       param.Value,
		ValueType:   string(param.ValueType),
		Description: param.Description,
		IsActive:    param.IsActive,
		UpdatedAt:   param.UpdatedAt.UTC(),
		UpdatedBy:   param.UpdatedBy,
	}

	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":       row.Value,
			"value_type":  row.ValueType,
			"description": row.Description,
			"is_active":   row.IsActive,
			"updated_at":  row.UpdatedAt,
			"updated_by":  row.UpdatedBy,
		}),
	}).Create(&row).Error; err != nil {
		return ports.SystemParameter{}, errs.Wrap(err, "upsert system parameter")
	}

	return mapParameter(row), nil
}

func mapParameter(row model.SystemParameter) ports.SystemParameter {
	return ports.SystemParameter{
		Parameter: sysparam.Parameter{
			Key:         row.Key,
			Value:       row.Value,
			ValueType:   sysparam.ValueType(row.ValueType),
			Description: row.Description,
			IsActive:    row.IsActive,
		},
		UpdatedAt: row.UpdatedAt,
		UpdatedBy: row.UpdatedBy,
	}
}

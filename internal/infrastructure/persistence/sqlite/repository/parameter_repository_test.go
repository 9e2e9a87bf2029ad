package repository

import (
	"context"
	"errors"
	"testing"

	"troubledesk/internal/domain/sysparam"
	"troubledesk/internal/ports"
)

func TestParameterUpsertAndGet(t *testing.T) {
	repo := NewParameterRepository(setupDB(t))
	ctx := context.Background()

	if _, err := repo.GetParameter(ctx, "secondInfoDeadlineDays"); !errors.Is(err, ports.ErrParameterNotFound) {
		t.Fatalf("GetParameter(missing) error = %v", err)
	}

	param := ports.SystemParameter{
		Parameter: sysparam.Parameter{
			Key:       "secondInfoDeadlineDays",
			Value:     "10",
			ValueType: sysparam.TypeInt,
			IsActive:  true,
		},
		UpdatedAt: day(2025, 1, 1),
		UpdatedBy: 1,
	}
	if _, err := repo.UpsertParameter(ctx, param); err != nil {
		t.Fatalf("UpsertParameter() error = %v", err)
	}

	param.Value = "14"
	param.IsActive = false
	param.UpdatedBy = 2
	if _, err := repo.UpsertParameter(ctx, param); err != nil {
		t.Fatalf("UpsertParameter(update) error = %v", err)
	}

	got, err := repo.GetParameter(ctx, "secondInfoDeadlineDays")
	if err != nil {
		t.Fatalf("GetParameter() error = %v", err)
	}
	if got.Value != "14" || got.IsActive || got.UpdatedBy != 2 || got.ValueType != sysparam.TypeInt {
		t.Fatalf("GetParameter() = %+v", got)
	}

	all, err := repo.ListParameters(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListParameters() = %+v, %v", all, err)
	}
}

package ports

import (
	"context"
	"errors"
	"time"

	"troubledesk/internal/domain/sysparam"
)

var ErrParameterNotFound = errors.New("system parameter not found")

type SystemParameter struct {
	sysparam.Parameter
	UpdatedAt time.Time
	UpdatedBy int64
}

type ParameterRepository interface {
	ListParameters(ctx context.Context) ([]SystemParameter, error)
	GetParameter(ctx context.Context, key string) (SystemParameter, error)
	UpsertParameter(ctx context.Context, param SystemParameter) (SystemParameter, error)
}

package ports

import (
	"context"
	"errors"
	"time"

	"troubledesk/internal/domain/incident"
)

var (
	ErrIncidentNotFound = errors.New("incident not found")
	ErrFileNotFound     = errors.New("incident file not found")
)

// IncidentFilter narrows listings. Zero values mean "any".
type IncidentFilter struct {
	OrganizationID      int64
	ShippingWarehouseID int64
	TroubleCategoryID   int64
	// CreatedFrom is inclusive, CreatedBefore exclusive.
	CreatedFrom   *time.Time
	CreatedBefore *time.Time
	Keyword       string
	// OnlyIncomplete drops rows whose 3rd info is complete.
	OnlyIncomplete bool
}

// GroupDimension is a column incidents can be counted by.
type GroupDimension string

const (
	GroupByTroubleCategory   GroupDimension = "trouble_category_id"
	GroupByShippingWarehouse GroupDimension = "shipping_warehouse_id"
)

type GroupCount struct {
	Key   int64
	Count int64
}

type IncidentFile struct {
	ID          int64
	IncidentID  int64
	InfoLevel   int
	FileName    string
	ContentType string
	FileSize    int64
	DataURI     string
	CreatedAt   time.Time
	CreatedBy   int64
}

type IncidentEvent struct {
	ID         int64
	IncidentID int64
	ActorID    int64
	ActorRole  incident.Role
	Action     string
	Phase      int
	Changes    map[string]any
	CreatedAt  time.Time
}

type IncidentReadRepository interface {
	GetIncident(ctx context.Context, id int64) (incident.Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]incident.Incident, error)
	CountIncidentsBy(ctx context.Context, filter IncidentFilter, dimension GroupDimension) ([]GroupCount, error)
	// ListFiles returns metadata only; DataURI is left empty.
	ListFiles(ctx context.Context, incidentID int64, infoLevel int) ([]IncidentFile, error)
	GetFile(ctx context.Context, fileID int64) (IncidentFile, error)
	ListEvents(ctx context.Context, incidentID int64) ([]IncidentEvent, error)
}

type IncidentRepository interface {
	IncidentReadRepository
	CreateIncident(ctx context.Context, inc incident.Incident) (incident.Incident, error)
	UpdateIncident(ctx context.Context, inc incident.Incident) error
	DeleteIncident(ctx context.Context, id int64) error
	CreateFile(ctx context.Context, file IncidentFile) (IncidentFile, error)
	DeleteFile(ctx context.Context, fileID int64) error
	AppendEvent(ctx context.Context, event IncidentEvent) error
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"troubledesk/internal/domain/incident"
	"troubledesk/internal/errs"
	"troubledesk/internal/infrastructure/persistence/sqlite/model"
	"troubledesk/internal/ports"
)

type IncidentRepository struct {
	db *gorm.DB
}

var _ ports.IncidentRepository = (*IncidentRepository)(nil)

func NewIncidentRepository(db *gorm.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

func (r *IncidentRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	return dbFromContext(ctx, r.db)
}

func dbFromContext(ctx context.Context, base *gorm.DB) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return base.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *IncidentRepository) GetIncident(ctx context.Context, id int64) (incident.Incident, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return incident.Incident{}, err
	}
	return getIncidentByID(db, id)
}

func getIncidentByID(db *gorm.DB, id int64) (incident.Incident, error) {
	var row model.Incident
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return incident.Incident{}, fmt.Errorf("%w: %d", ports.ErrIncidentNotFound, id)
		}
		return incident.Incident{}, errs.Wrap(err, "query incident by id")
	}
	return mapIncident(row), nil
}

// incompleteCondition is a prefilter; callers still derive statuses in Go.
const incompleteCondition = `NOT (
	second_input_date IS NOT NULL AND TRIM(process_description) <> '' AND TRIM(cause) <> ''
	AND third_input_date IS NOT NULL AND TRIM(recurrence_prevention_measures) <> ''
)`

func applyIncidentFilter(query *gorm.DB, filter ports.IncidentFilter) *gorm.DB {
	if filter.OrganizationID > 0 {
		query = query.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.ShippingWarehouseID > 0 {
		query = query.Where("shipping_warehouse_id = ?", filter.ShippingWarehouseID)
	}
	if filter.TroubleCategoryID > 0 {
		query = query.Where("trouble_category_id = ?", filter.TroubleCategoryID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("creation_date >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedBefore != nil {
		query = query.Where("creation_date < ?", filter.CreatedBefore.UTC())
	}
	if keyword := strings.ToLower(strings.TrimSpace(filter.Keyword)); keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where(
			"LOWER(details) LIKE ? OR LOWER(voucher_number) LIKE ? OR LOWER(customer_code) LIKE ? OR LOWER(product_code) LIKE ? OR LOWER(occurrence_location) LIKE ?",
			like, like, like, like, like,
		)
	}
	if filter.OnlyIncomplete {
		query = query.Where(incompleteCondition)
	}
	return query
}

// ListIncidents returns matches newest first.
func (r *IncidentRepository) ListIncidents(ctx context.Context, filter ports.IncidentFilter) ([]incident.Incident, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Incident
	if err := applyIncidentFilter(db.Model(&model.Incident{}), filter).
		Order("creation_date desc").
		Order("id desc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query incidents")
	}

	items := make([]incident.Incident, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapIncident(row))
	}
	return items, nil
}

func (r *IncidentRepository) CountIncidentsBy(ctx context.Context, filter ports.IncidentFilter, dimension ports.GroupDimension) ([]ports.GroupCount, error) {
	switch dimension {
	case ports.GroupByTroubleCategory, ports.GroupByShippingWarehouse:
	default:
		return nil, fmt.Errorf("unsupported group dimension %q", dimension)
	}

	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		GroupKey   int64 `gorm:"column:group_key"`
		GroupCount int64 `gorm:"column:group_count"`
	}
	column := string(dimension)
	if err := applyIncidentFilter(db.Model(&model.Incident{}), filter).
		Select(column + " AS group_key, COUNT(*) AS group_count").
		Group(column).
		Order("group_count desc").
		Order("group_key asc").
		Scan(&rows).Error; err != nil {
		return nil, errs.Wrapf(err, "count incidents by %s", column)
	}

	items := make([]ports.GroupCount, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.GroupCount{Key: row.GroupKey, Count: row.GroupCount})
	}
	return items, nil
}

func (r *IncidentRepository) CreateIncident(ctx context.Context, inc incident.Incident) (incident.Incident, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return incident.Incident{}, err
	}

	row := toIncidentRow(inc)
	row.ID = 0
	if err := db.Create(&row).Error; err != nil {
		return incident.Incident{}, errs.Wrap(err, "insert incident")
	}
	return mapIncident(row), nil
}

// UpdateIncident overwrites every mutable column of inc.ID.
func (r *IncidentRepository) UpdateIncident(ctx context.Context, inc incident.Incident) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := toIncidentRow(inc)
	result := db.Model(&model.Incident{}).
		Where("id = ?", inc.ID).
		Select("*").
		Omit("id", "created_at", "created_by").
		Updates(&row)
	if result.Error != nil {
		return errs.Wrap(result.Error, "update incident")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ports.ErrIncidentNotFound, inc.ID)
	}
	return nil
}

// DeleteIncident removes the incident together with its files and events.
func (r *IncidentRepository) DeleteIncident(ctx context.Context, id int64) error {
	if ports.TxFromContext(ctx) != nil {
		db, err := r.dbFromContext(ctx)
		if err != nil {
			return err
		}

		if err := db.Where("incident_id = ?", id).Delete(&model.IncidentFile{}).Error; err != nil {
			return errs.Wrap(err, "delete incident files")
		}
		if err := db.Where("incident_id = ?", id).Delete(&model.IncidentEvent{}).Error; err != nil {
			return errs.Wrap(err, "delete incident events")
		}
		result := db.Where("id = ?", id).Delete(&model.Incident{})
		if result.Error != nil {
			return errs.Wrap(result.Error, "delete incident")
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %d", ports.ErrIncidentNotFound, id)
		}
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := ports.WithTxContext(ctx, tx)
		return r.DeleteIncident(txCtx, id)
	})
}

func (r *IncidentRepository) ListFiles(ctx context.Context, incidentID int64, infoLevel int) ([]ports.IncidentFile, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.IncidentFile{}).Omit("data_uri").Where("incident_id = ?", incidentID)
	if infoLevel > 0 {
		query = query.Where("info_level = ?", infoLevel)
	}

	var rows []model.IncidentFile
	if err := query.Order("info_level asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query incident files")
	}

	items := make([]ports.IncidentFile, 0, len(rows))
	for _, row := range rows {
		item := mapFile(row)
		item.DataURI = ""
		items = append(items, item)
	}
	return items, nil
}

func (r *IncidentRepository) GetFile(ctx context.Context, fileID int64) (ports.IncidentFile, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.IncidentFile{}, err
	}

	var row model.IncidentFile
	if err := db.Where("id = ?", fileID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IncidentFile{}, fmt.Errorf("%w: %d", ports.ErrFileNotFound, fileID)
		}
		return ports.IncidentFile{}, errs.Wrap(err, "query incident file")
	}
	return mapFile(row), nil
}

func (r *IncidentRepository) CreateFile(ctx context.Context, file ports.IncidentFile) (ports.IncidentFile, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.IncidentFile{}, err
	}

	row := model.IncidentFile{
		IncidentID:  file.IncidentID,
		InfoLevel:   file.InfoLevel,
		FileName:    file.FileName,
		ContentType: file.ContentType,
		FileSize:    file.FileSize,
		DataURI:     file.DataURI,
		CreatedAt:   file.CreatedAt.UTC(),
		CreatedBy:   file.CreatedBy,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.IncidentFile{}, errs.Wrap(err, "insert incident file")
	}
	return mapFile(row), nil
}

func (r *IncidentRepository) DeleteFile(ctx context.Context, fileID int64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Where("id = ?", fileID).Delete(&model.IncidentFile{})
	if result.Error != nil {
		return errs.Wrap(result.Error, "delete incident file")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ports.ErrFileNotFound, fileID)
	}
	return nil
}

func (r *IncidentRepository) AppendEvent(ctx context.Context, event ports.IncidentEvent) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	changes := event.Changes
	if changes == nil {
		changes = map[string]any{}
	}
	raw, err := json.Marshal(changes)
	if err != nil {
		return errs.Wrap(err, "marshal event changes")
	}

	row := model.IncidentEvent{
		IncidentID: event.IncidentID,
		ActorID:    event.ActorID,
		ActorRole:  int(event.ActorRole),
		Action:     event.Action,
		Phase:      event.Phase,
		Changes:    datatypes.JSON(raw),
		CreatedAt:  event.CreatedAt.UTC(),
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert incident event")
	}
	return nil
}

func (r *IncidentRepository) ListEvents(ctx context.Context, incidentID int64) ([]ports.IncidentEvent, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.IncidentEvent
	if err := db.Where("incident_id = ?", incidentID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query incident events")
	}

	items := make([]ports.IncidentEvent, 0, len(rows))
	for _, row := range rows {
		changes := map[string]any{}
		if len(row.Changes) > 0 {
			if err := json.Unmarshal(row.Changes, &changes); err != nil {
				return nil, errs.Wrapf(err, "decode changes of event %d", row.ID)
			}
		}
		items = append(items, ports.IncidentEvent{
			ID:         row.ID,
			IncidentID: row.IncidentID,
			ActorID:    row.ActorID,
			ActorRole:  incident.Role(row.ActorRole),
			Action:     row.Action,
			Phase:      row.Phase,
			Changes:    changes,
			CreatedAt:  row.CreatedAt,
		})
	}
	return items, nil
}

func toIncidentRow(inc incident.Incident) model.Incident {
	return model.Incident{
		ID:                           inc.ID,
		CreationDate:                 inc.CreationDate.UTC(),
		OrganizationID:               inc.OrganizationID,
		CreatorID:                    inc.CreatorID,
		OccurrenceAt:                 inc.OccurrenceAt.UTC(),
		OccurrenceLocation:           inc.OccurrenceLocation,
		ShippingWarehouseID:          inc.ShippingWarehouseID,
		ShippingCompanyID:            inc.ShippingCompanyID,
		TroubleCategoryID:            inc.TroubleCategoryID,
		TroubleDetailCategoryID:      inc.TroubleDetailCategoryID,
		Details:                      inc.Details,
		VoucherNumber:                inc.VoucherNumber,
		CustomerCode:                 inc.CustomerCode,
		ProductCode:                  inc.ProductCode,
		Quantity:                     inc.Quantity,
		Unit:                         inc.Unit,
		SecondInputDate:              utcPtr(inc.SecondInputDate),
		ProcessDescription:           inc.ProcessDescription,
		Cause:                        inc.Cause,
		PhotoRef:                     inc.PhotoRef,
		ThirdInputDate:               utcPtr(inc.ThirdInputDate),
		RecurrencePreventionMeasures: inc.RecurrencePreventionMeasures,
		CreatedAt:                    inc.CreatedAt.UTC(),
		UpdatedAt:                    inc.UpdatedAt.UTC(),
		CreatedBy:                    inc.CreatedBy,
		UpdatedBy:                    inc.UpdatedBy,
	}
}

func mapIncident(row model.Incident) incident.Incident {
	return incident.Incident{
		ID:                           row.ID,
		CreationDate:                 row.CreationDate,
		OrganizationID:               row.OrganizationID,
		CreatorID:                    row.CreatorID,
		OccurrenceAt:                 row.OccurrenceAt,
		OccurrenceLocation:           row.OccurrenceLocation,
		ShippingWarehouseID:          row.ShippingWarehouseID,
		ShippingCompanyID:            row.ShippingCompanyID,
		TroubleCategoryID:            row.TroubleCategoryID,
		TroubleDetailCategoryID:      row.TroubleDetailCategoryID,
		Details:                      row.Details,
		VoucherNumber:                row.VoucherNumber,
		CustomerCode:                 row.CustomerCode,
		ProductCode:                  row.ProductCode,
		Quantity:                     row.Quantity,
		Unit:                         row.Unit,
		SecondInputDate:              row.SecondInputDate,
		ProcessDescription:           row.ProcessDescription,
		Cause:                        row.Cause,
		PhotoRef:                     row.PhotoRef,
		ThirdInputDate:               row.ThirdInputDate,
		RecurrencePreventionMeasures: row.RecurrencePreventionMeasures,
		CreatedAt:                    row.CreatedAt,
		UpdatedAt:                    row.UpdatedAt,
		CreatedBy:                    row.CreatedBy,
		UpdatedBy:                    row.UpdatedBy,
	}
}

func mapFile(row model.IncidentFile) ports.IncidentFile {
	return ports.IncidentFile{
		ID:          row.ID,
		IncidentID:  row.IncidentID,
		InfoLevel:   row.InfoLevel,
		FileName:    row.FileName,
		ContentType: row.ContentType,
		FileSize:    row.FileSize,
		DataURI:     row.DataURI,
		CreatedAt:   row.CreatedAt,
		CreatedBy:   row.CreatedBy,
	}
}

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}

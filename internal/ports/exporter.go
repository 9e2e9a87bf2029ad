package ports

import (
	"io"
	"time"
)

// ExportRow is one incident flattened for tabular export.
type ExportRow struct {
	ID                           int64
	Status                       string
	NextDeadline                 *time.Time
	CreationDate                 time.Time
	OrganizationID               int64
	CreatorID                    int64
	OccurrenceAt                 time.Time
	OccurrenceLocation           string
	ShippingWarehouseID          int64
	ShippingCompanyID            int64
	TroubleCategoryID            int64
	TroubleDetailCategoryID      int64
	Details                      string
	VoucherNumber                string
	CustomerCode                 string
	ProductCode                  string
	Quantity                     *int
	Unit                         string
	SecondInputDate              *time.Time
	ProcessDescription           string
	Cause                        string
	ThirdInputDate               *time.Time
	RecurrencePreventionMeasures string
	UpdatedAt                    time.Time
}

type IncidentExporter interface {
	Format() string
	ContentType() string
	Write(w io.Writer, rows []ExportRow) error
}

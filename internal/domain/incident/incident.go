package incident

import (
	"strings"
	"time"
)

// Incident is the stored record. Status is not part of it.
type Incident struct {
	ID int64

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

	SecondInputDate    *time.Time
	ProcessDescription string
	Cause              string
	PhotoRef           string

	ThirdInputDate               *time.Time
	RecurrencePreventionMeasures string

	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy int64
	UpdatedBy int64
}

func (i Incident) Snapshot() Snapshot {
	return Snapshot{
		CreationDate:                 i.CreationDate,
		SecondInputDate:              i.SecondInputDate,
		ProcessDescription:           i.ProcessDescription,
		Cause:                        i.Cause,
		ThirdInputDate:               i.ThirdInputDate,
		RecurrencePreventionMeasures: i.RecurrencePreventionMeasures,
	}
}

// ValidateFirstInfo checks the fields required at creation.
func (i Incident) ValidateFirstInfo() []string {
	var missing []string
	if i.CreationDate.IsZero() {
		missing = append(missing, "creation_date")
	}
	if i.OrganizationID <= 0 {
		missing = append(missing, "organization_id")
	}
	if i.CreatorID <= 0 {
		missing = append(missing, "creator_id")
	}
	if i.OccurrenceAt.IsZero() {
		missing = append(missing, "occurrence_at")
	}
	if strings.TrimSpace(i.OccurrenceLocation) == "" {
		missing = append(missing, "occurrence_location")
	}
	if i.ShippingWarehouseID <= 0 {
		missing = append(missing, "shipping_warehouse_id")
	}
	if i.ShippingCompanyID <= 0 {
		missing = append(missing, "shipping_company_id")
	}
	if i.TroubleCategoryID <= 0 {
		missing = append(missing, "trouble_category_id")
	}
	if i.TroubleDetailCategoryID <= 0 {
		missing = append(missing, "trouble_detail_category_id")
	}
	if strings.TrimSpace(i.Details) == "" {
		missing = append(missing, "details")
	}
	if i.Quantity != nil && *i.Quantity < 0 {
		missing = append(missing, "quantity")
	}
	return missing
}

// ApplyPatch copies every sent field of p onto i. Blank strings are not sent.
func (i *Incident) ApplyPatch(p Patch) {
	setTime(&i.CreationDate, p.CreationDate)
	setInt64(&i.OrganizationID, p.OrganizationID)
	setTime(&i.OccurrenceAt, p.OccurrenceAt)
	setString(&i.OccurrenceLocation, p.OccurrenceLocation)
	setInt64(&i.ShippingWarehouseID, p.ShippingWarehouseID)
	setInt64(&i.ShippingCompanyID, p.ShippingCompanyID)
	setInt64(&i.TroubleCategoryID, p.TroubleCategoryID)
	setInt64(&i.TroubleDetailCategoryID, p.TroubleDetailCategoryID)
	setString(&i.Details, p.Details)
	setString(&i.VoucherNumber, p.VoucherNumber)
	setString(&i.CustomerCode, p.CustomerCode)
	setString(&i.ProductCode, p.ProductCode)
	if p.Quantity != nil {
		qty := *p.Quantity
		i.Quantity = &qty
	}
	setString(&i.Unit, p.Unit)

	if p.SecondInputDate != nil {
		v := *p.SecondInputDate
		i.SecondInputDate = &v
	}
	setString(&i.ProcessDescription, p.ProcessDescription)
	setString(&i.Cause, p.Cause)
	setString(&i.PhotoRef, p.PhotoRef)

	if p.ThirdInputDate != nil {
		v := *p.ThirdInputDate
		i.ThirdInputDate = &v
	}
	setString(&i.RecurrencePreventionMeasures, p.RecurrencePreventionMeasures)
}

func setString(dst *string, src *string) {
	if present(src) {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt64(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}

func setTime(dst *time.Time, src *time.Time) {
	if src != nil {
		*dst = *src
	}
}

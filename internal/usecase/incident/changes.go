package incident

import (
	"time"

	domain "troubledesk/internal/domain/incident"
)

// changedFields lists the fields whose value differs, keyed by column name.
func changedFields(before domain.Incident, after domain.Incident) map[string]any {
	changes := map[string]any{}

	diffTime(changes, "creation_date", before.CreationDate, after.CreationDate)
	diffInt(changes, "organization_id", before.OrganizationID, after.OrganizationID)
	diffInt(changes, "creator_id", before.CreatorID, after.CreatorID)
	diffTime(changes, "occurrence_at", before.OccurrenceAt, after.OccurrenceAt)
	diffString(changes, "occurrence_location", before.OccurrenceLocation, after.OccurrenceLocation)
	diffInt(changes, "shipping_warehouse_id", before.ShippingWarehouseID, after.ShippingWarehouseID)
	diffInt(changes, "shipping_company_id", before.ShippingCompanyID, after.ShippingCompanyID)
	diffInt(changes, "trouble_category_id", before.TroubleCategoryID, after.TroubleCategoryID)
	diffInt(changes, "trouble_detail_category_id", before.TroubleDetailCategoryID, after.TroubleDetailCategoryID)
	diffString(changes, "details", before.Details, after.Details)
	diffString(changes, "voucher_number", before.VoucherNumber, after.VoucherNumber)
	diffString(changes, "customer_code", before.CustomerCode, after.CustomerCode)
	diffString(changes, "product_code", before.ProductCode, after.ProductCode)
	if !equalIntPtr(before.Quantity, after.Quantity) {
		if after.Quantity == nil {
			changes["quantity"] = nil
		} else {
			changes["quantity"] = *after.Quantity
		}
	}
	diffString(changes, "unit", before.Unit, after.Unit)

	diffTimePtr(changes, "second_input_date", before.SecondInputDate, after.SecondInputDate)
	diffString(changes, "process_description", before.ProcessDescription, after.ProcessDescription)
	diffString(changes, "cause", before.Cause, after.Cause)
	diffString(changes, "photo_ref", before.PhotoRef, after.PhotoRef)

	diffTimePtr(changes, "third_input_date", before.ThirdInputDate, after.ThirdInputDate)
	diffString(changes, "recurrence_prevention_measures", before.RecurrencePreventionMeasures, after.RecurrencePreventionMeasures)

	return changes
}

func diffString(changes map[string]any, name string, before string, after string) {
	if before != after {
		changes[name] = after
	}
}

func diffInt(changes map[string]any, name string, before int64, after int64) {
	if before != after {
		changes[name] = after
	}
}

func diffTime(changes map[string]any, name string, before time.Time, after time.Time) {
	if !before.Equal(after) {
		changes[name] = after.UTC().Format(time.RFC3339)
	}
}

func diffTimePtr(changes map[string]any, name string, before *time.Time, after *time.Time) {
	switch {
	case before == nil && after == nil:
	case after == nil:
		changes[name] = nil
	case before == nil || !before.Equal(*after):
		changes[name] = after.UTC().Format(time.RFC3339)
	}
}

func equalIntPtr(a *int, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

package export

import (
	"strconv"
	"time"

	"troubledesk/internal/ports"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

type column struct {
	header string
	width  float64
	value  func(row ports.ExportRow, loc *time.Location) any
}

var columns = []column{
	{"ID", 8, func(r ports.ExportRow, _ *time.Location) any { return r.ID }},
	{"Status", 24, func(r ports.ExportRow, _ *time.Location) any { return r.Status }},
	{"Next Deadline", 18, func(r ports.ExportRow, loc *time.Location) any {
		return formatOptional(r.NextDeadline, loc, dateTimeLayout)
	}},
	{"Creation Date", 14, func(r ports.ExportRow, loc *time.Location) any { return r.CreationDate.In(loc).Format(dateLayout) }},
	{"Organization", 12, func(r ports.ExportRow, _ *time.Location) any { return r.OrganizationID }},
	{"Creator", 10, func(r ports.ExportRow, _ *time.Location) any { return r.CreatorID }},
	{"Occurred At", 18, func(r ports.ExportRow, loc *time.Location) any { return r.OccurrenceAt.In(loc).Format(dateTimeLayout) }},
	{"Location", 20, func(r ports.ExportRow, _ *time.Location) any { return r.OccurrenceLocation }},
	{"Warehouse", 10, func(r ports.ExportRow, _ *time.Location) any { return r.ShippingWarehouseID }},
	{"Shipping Company", 10, func(r ports.ExportRow, _ *time.Location) any { return r.ShippingCompanyID }},
	{"Category", 10, func(r ports.ExportRow, _ *time.Location) any { return r.TroubleCategoryID }},
	{"Detail Category", 10, func(r ports.ExportRow, _ *time.Location) any { return r.TroubleDetailCategoryID }},
	{"Details", 40, func(r ports.ExportRow, _ *time.Location) any { return r.Details }},
	{"Voucher No.", 16, func(r ports.ExportRow, _ *time.Location) any { return r.VoucherNumber }},
	{"Customer Code", 14, func(r ports.ExportRow, _ *time.Location) any { return r.CustomerCode }},
	{"Product Code", 14, func(r ports.ExportRow, _ *time.Location) any { return r.ProductCode }},
	{"Quantity", 10, func(r ports.ExportRow, _ *time.Location) any {
		if r.Quantity == nil {
			return ""
		}
		return *r.Quantity
	}},
	{"Unit", 8, func(r ports.ExportRow, _ *time.Location) any { return r.Unit }},
	{"2nd Info Date", 14, func(r ports.ExportRow, loc *time.Location) any {
		return formatOptional(r.SecondInputDate, loc, dateLayout)
	}},
	{"Process", 40, func(r ports.ExportRow, _ *time.Location) any { return r.ProcessDescription }},
	{"Cause", 40, func(r ports.ExportRow, _ *time.Location) any { return r.Cause }},
	{"3rd Info Date", 14, func(r ports.ExportRow, loc *time.Location) any {
		return formatOptional(r.ThirdInputDate, loc, dateLayout)
	}},
	{"Recurrence Prevention", 40, func(r ports.ExportRow, _ *time.Location) any { return r.RecurrencePreventionMeasures }},
	{"Updated At", 18, func(r ports.ExportRow, loc *time.Location) any { return r.UpdatedAt.In(loc).Format(dateTimeLayout) }},
}

func Header() []string {
	out := make([]string, 0, len(columns))
	for _, col := range columns {
		out = append(out, col.header)
	}
	return out
}

func formatOptional(value *time.Time, loc *time.Location, layout string) string {
	if value == nil {
		return ""
	}
	return value.In(loc).Format(layout)
}

func textCell(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func locationOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

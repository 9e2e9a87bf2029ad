package incident

import "time"

// Patch is a partial update; nil means "not sent".
type Patch struct {
	// 1st info
	CreationDate            *time.Time
	OrganizationID          *int64
	OccurrenceAt            *time.Time
	OccurrenceLocation      *string
	ShippingWarehouseID     *int64
	ShippingCompanyID       *int64
	TroubleCategoryID       *int64
	TroubleDetailCategoryID *int64
	Details                 *string
	VoucherNumber           *string
	CustomerCode            *string
	ProductCode             *string
	Quantity                *int
	Unit                    *string

	// 2nd info
	SecondInputDate    *time.Time
	ProcessDescription *string
	Cause              *string
	PhotoRef           *string

	// 3rd info
	ThirdInputDate               *time.Time
	RecurrencePreventionMeasures *string
}

// Classification says which phases a patch touches.
type Classification struct {
	First  bool
	Second bool
	Third  bool
}

// Attributed is the phase the write is recorded against: 3 over 2 over 1, 0 for an empty patch.
func (c Classification) Attributed() int {
	switch {
	case c.Third:
		return 3
	case c.Second:
		return 2
	case c.First:
		return 1
	}
	return 0
}

// Mixed reports 1st-info fields sent together with 2nd or 3rd info. Attribution
// alone would skip the 1st-info permission check for such a write.
func (c Classification) Mixed() bool {
	return c.First && (c.Second || c.Third)
}

func (c Classification) Empty() bool {
	return !c.First && !c.Second && !c.Third
}

// ClassifyPatch checks each field group for non-nil, non-blank values.
func ClassifyPatch(p Patch) Classification {
	return Classification{
		First: p.CreationDate != nil ||
			p.OrganizationID != nil ||
			p.OccurrenceAt != nil ||
			present(p.OccurrenceLocation) ||
			p.ShippingWarehouseID != nil ||
			p.ShippingCompanyID != nil ||
			p.TroubleCategoryID != nil ||
			p.TroubleDetailCategoryID != nil ||
			present(p.Details) ||
			present(p.VoucherNumber) ||
			present(p.CustomerCode) ||
			present(p.ProductCode) ||
			p.Quantity != nil ||
			present(p.Unit),
		Second: p.SecondInputDate != nil ||
			present(p.ProcessDescription) ||
			present(p.Cause) ||
			present(p.PhotoRef),
		Third: p.ThirdInputDate != nil ||
			present(p.RecurrencePreventionMeasures),
	}
}

func present(value *string) bool {
	return value != nil && !isBlank(*value)
}

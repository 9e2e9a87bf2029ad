package model

import "time"

type Incident struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`

	CreationDate            time.Time `gorm:"column:creation_date;not null;index"`
	OrganizationID          int64     `gorm:"column:organization_id;not null;index"`
	CreatorID               int64     `gorm:"column:creator_id;not null"`
	OccurrenceAt            time.Time `gorm:"column:occurrence_at;not null"`
	OccurrenceLocation      string    `gorm:"column:occurrence_location;type:text;not null"`
	ShippingWarehouseID     int64     `gorm:"column:shipping_warehouse_id;not null;index"`
	ShippingCompanyID       int64     `gorm:"column:shipping_company_id;not null"`
	TroubleCategoryID       int64     `gorm:"column:trouble_category_id;not null;index"`
	TroubleDetailCategoryID int64     `gorm:"column:trouble_detail_category_id;not null"`
	Details                 string    `gorm:"column:details;type:text;not null"`
	VoucherNumber           string    `gorm:"column:voucher_number;type:text;not null;default:''"`
	CustomerCode            string    `gorm:"column:customer_code;type:text;not null;default:''"`
	ProductCode             string    `gorm:"column:product_code;type:text;not null;default:''"`
	Quantity                *int      `gorm:"column:quantity"`
	Unit                    string    `gorm:"column:unit;type:text;not null;default:''"`

	SecondInputDate    *time.Time `gorm:"column:second_input_date"`
	ProcessDescription string     `gorm:"column:process_description;type:text;not null;default:''"`
	Cause              string     `gorm:"column:cause;type:text;not null;default:''"`
	PhotoRef           string     `gorm:"column:photo_ref;type:text;not null;default:''"`

	ThirdInputDate               *time.Time `gorm:"column:third_input_date"`
	RecurrencePreventionMeasures string     `gorm:"column:recurrence_prevention_measures;type:text;not null;default:''"`

	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
	CreatedBy int64     `gorm:"column:created_by;not null"`
	UpdatedBy int64     `gorm:"column:updated_by;not null"`
}

func (Incident) TableName() string {
	return "incidents"
}

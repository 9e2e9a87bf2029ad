package model

import "time"

type SystemParameter struct {
	Key         string    `gorm:"column:key;type:text;primaryKey"`
	Value       string    `gorm:"column:value;type:text;not null"`
	ValueType   string    `gorm:"column:value_type;type:text;not null;default:'string'"`
	Description string    `gorm:"column:description;type:text;not null;default:''"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
	UpdatedBy   int64     `gorm:"column:updated_by;not null;default:0"`
}

func (SystemParameter) TableName() string {
	return "system_parameters"
}

package model

import "time"

type IncidentFile struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	IncidentID  int64     `gorm:"column:incident_id;not null;index:idx_incident_files_level,priority:1"`
	InfoLevel   int       `gorm:"column:info_level;not null;index:idx_incident_files_level,priority:2"`
	FileName    string    `gorm:"column:file_name;type:text;not null"`
	ContentType string    `gorm:"column:content_type;type:text;not null"`
	FileSize    int64     `gorm:"column:file_size;not null"`
	DataURI     string    `gorm:"column:data_uri;type:text;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	CreatedBy   int64     `gorm:"column:created_by;not null"`
}

func (IncidentFile) TableName() string {
	return "incident_files"
}

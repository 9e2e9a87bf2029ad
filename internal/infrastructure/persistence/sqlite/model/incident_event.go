package model

import (
	"time"

	"gorm.io/datatypes"
)

type IncidentEvent struct {
	ID         int64          `gorm:"column:id;primaryKey;autoIncrement"`
	IncidentID int64          `gorm:"column:incident_id;not null;index"`
	ActorID    int64          `gorm:"column:actor_id;not null"`
	ActorRole  int            `gorm:"column:actor_role;not null"`
	Action     string         `gorm:"column:action;type:text;not null"`
	Phase      int            `gorm:"column:phase;not null"`
	Changes    datatypes.JSON `gorm:"column:changes"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null;autoCreateTime:false"`
}

func (IncidentEvent) TableName() string {
	return "incident_events"
}

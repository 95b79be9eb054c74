package models

import (
	"gorm.io/datatypes"
	"time"
)

type Notification struct {
	BaseModel
	UserID  string `gorm:"not null;index"`
	Type    string `gorm:"not null"` // "slot_claimed", "review_submitted", "review_accepted", ...
	Title   string `gorm:"not null"`
	Message string
	Data    datatypes.JSON `gorm:"type:jsonb"` // {"slot_id": "...", "request_id": "..."}
	IsRead  bool           `gorm:"default:false"`
	ReadAt  *time.Time
}

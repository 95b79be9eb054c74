package models

import "time"

// SlotApplication is the paid/expert flow: a reviewer pitches for a slot and
// the requester picks. At most one non-terminal application may exist per
// (applicant, request) pair; SlotID is set only on acceptance.
type SlotApplication struct {
	BaseModel
	RequestID   string `gorm:"not null;index:idx_applications_request_applicant"`
	ApplicantID string `gorm:"not null;index:idx_applications_request_applicant"`
	Pitch       string

	Status    ApplicationStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	SlotID    *string           `gorm:"index"`
	DecidedAt *time.Time
	DecidedBy *string
}

package dto

import "time"

type ApplyRequest struct {
	RequestID string `json:"request_id" binding:"required,uuid"`
	Pitch     string `json:"pitch" binding:"required,min=20,max=2000"`
}

type ApplicationResponse struct {
	ID          string     `json:"id"`
	RequestID   string     `json:"request_id"`
	ApplicantID string     `json:"applicant_id"`
	Pitch       string     `json:"pitch"`
	Status      string     `json:"status"`
	SlotID      *string    `json:"slot_id,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

package dto

import (
	"time"

	"sparkreview_backend/internal/models"
)

type SubmitReviewRequest struct {
	Content string `json:"content" binding:"required,min=50,max=20000"`
}

type AcceptReviewRequest struct {
	Rating int `json:"rating" binding:"required,min=1,max=5"`
}

type RejectReviewRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=200"`
	Notes  string `json:"notes" binding:"max=2000"`
}

type SlotResponse struct {
	ID              string     `json:"id"`
	RequestID       string     `json:"request_id"`
	ReviewerID      *string    `json:"reviewer_id,omitempty"`
	Status          string     `json:"status"`
	ClaimedAt       *time.Time `json:"claimed_at,omitempty"`
	ClaimDeadline   *time.Time `json:"claim_deadline,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	AutoAcceptAt    *time.Time `json:"auto_accept_at,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	Rating          *int       `json:"rating,omitempty"`
	AcceptanceType  *string    `json:"acceptance_type,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	PaymentAmount   float64    `json:"payment_amount"`
	PaymentStatus   string     `json:"payment_status"`
	DisputeStatus   string     `json:"dispute_status"`
	DisputeDeadline *time.Time `json:"dispute_deadline,omitempty"`
}

// NewSlotResponse maps a slot row to its API shape.
func NewSlotResponse(slot *models.ReviewSlot) *SlotResponse {
	resp := &SlotResponse{
		ID:              slot.ID,
		RequestID:       slot.RequestID,
		ReviewerID:      slot.ReviewerID,
		Status:          string(slot.Status),
		ClaimedAt:       slot.ClaimedAt,
		ClaimDeadline:   slot.ClaimDeadline,
		SubmittedAt:     slot.SubmittedAt,
		AutoAcceptAt:    slot.AutoAcceptAt,
		ReviewedAt:      slot.ReviewedAt,
		Rating:          slot.Rating,
		RejectionReason: slot.RejectionReason,
		PaymentAmount:   slot.PaymentAmount,
		PaymentStatus:   string(slot.PaymentStatus),
		DisputeStatus:   string(slot.DisputeStatus),
		DisputeDeadline: slot.DisputeDeadline,
	}
	if slot.AcceptanceType != nil {
		t := string(*slot.AcceptanceType)
		resp.AcceptanceType = &t
	}
	return resp
}

type SlotListResponse struct {
	Slots    []*SlotResponse `json:"slots"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

package models

import "time"

// ReviewSlot is one reviewer's review obligation within a request. Slots are
// pre-materialized when the request is posted and never hard-deleted once
// claimed. Only the lifecycle service mutates a slot.
type ReviewSlot struct {
	BaseModel
	RequestID  string  `gorm:"not null;index"`
	ReviewerID *string `gorm:"index"`

	Status SlotStatus `gorm:"type:varchar(20);not null;default:'available';index"`

	ClaimedAt     *time.Time
	ClaimDeadline *time.Time `gorm:"index"`
	SubmittedAt   *time.Time
	AutoAcceptAt  *time.Time `gorm:"index"`
	ReviewedAt    *time.Time

	ReviewContent  string
	Rating         *int
	AcceptanceType *AcceptanceType `gorm:"type:varchar(20)"`

	RejectionReason string
	RejectionNotes  string

	// Escrow sub-ledger. PaymentStatus none means a free review.
	PaymentAmount   float64       `gorm:"not null;default:0"`
	PaymentStatus   PaymentStatus `gorm:"type:varchar(20);not null;default:'none'"`
	PaymentIntentID string        `gorm:"index"`
	TransferID      string
	RefundID        string

	// Dispute sub-flow, opened by the reviewer after a rejection.
	DisputeStatus     DisputeStatus `gorm:"type:varchar(20);not null;default:'none'"`
	DisputeNote       string
	DisputeOpenedAt   *time.Time
	DisputeDeadline   *time.Time `gorm:"index"`
	DisputeResolvedBy *string
	DisputeOutcome    *DisputeOutcome `gorm:"type:varchar(30)"`
}

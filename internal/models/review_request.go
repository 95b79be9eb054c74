package models

import "gorm.io/gorm"

// ReviewRequest is a requester's posting: a piece of creative work exposed
// for up to ReviewsRequested independent reviews. Counters are only mutated
// through the claim coordinator and the slot lifecycle service, inside the
// same transaction as the slot state change, so that
// ReviewsClaimed <= ReviewsRequested and ReviewsCompleted <= ReviewsClaimed
// hold at all times.
type ReviewRequest struct {
	BaseModel
	OwnerID     string `gorm:"not null;index"`
	Title       string `gorm:"not null"`
	Description string
	ContentURL  string
	Tier        string  `gorm:"type:varchar(20);default:'free'"`
	Budget      float64 `gorm:"not null;default:0"`

	ReviewsRequested int `gorm:"not null"`
	ReviewsClaimed   int `gorm:"not null;default:0"`
	ReviewsCompleted int `gorm:"not null;default:0"`

	Status    RequestStatus `gorm:"type:varchar(20);default:'open'"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (r *ReviewRequest) IsPaid() bool {
	return r.Budget > 0
}

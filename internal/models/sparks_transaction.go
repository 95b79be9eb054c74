package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sparks action codes. Each ledger row carries the action that produced it.
const (
	SparksActionReviewSubmitted         = "review_submitted"
	SparksActionReviewAccepted          = "review_accepted"
	SparksActionReviewAutoAccepted      = "review_auto_accepted"
	SparksActionReviewRejected          = "review_rejected"
	SparksActionSlotAbandoned           = "slot_abandoned"
	SparksActionDisputeReviewerFavored  = "dispute_reviewer_favored"
	SparksActionDisputeRequesterFavored = "dispute_requester_favored"
	SparksActionStreakBonus             = "streak_bonus"
	SparksActionWeeklyGoalBonus         = "weekly_goal_bonus"
	SparksActionProfileCompleted        = "profile_completed"
	SparksActionPortfolioAdded          = "portfolio_added"
)

// SparksTransaction is one row of the append-only reputation ledger. Rows are
// immutable once written: for a given user, ordered by CreatedAt,
// BalanceAfter[i] == BalanceAfter[i-1] + Points[i].
type SparksTransaction struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	UserID       string    `gorm:"not null;index:idx_sparks_user_created"`
	SlotID       *string   `gorm:"index"`
	Action       string    `gorm:"type:varchar(40);not null"`
	Points       int       `gorm:"not null"`
	BalanceAfter int       `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index:idx_sparks_user_created"`
}

func (t *SparksTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

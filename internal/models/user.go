package models

import "time"

type User struct {
	BaseModel
	Email        string     `gorm:"uniqueIndex;not null"`
	PasswordHash string     `gorm:"not null"`
	DisplayName  string     `gorm:"not null"`
	Role         UserRole   `gorm:"type:varchar(20);not null"`
	Status       UserStatus `gorm:"type:varchar(20);default:'pending'"`
	Tier         string     `gorm:"type:varchar(20);default:'free'"`

	// SparksPoints is a cached projection of the sparks ledger. It must
	// always equal the latest SparksTransaction.BalanceAfter for this user
	// and is only updated in the same transaction as a ledger append.
	SparksPoints int `gorm:"not null;default:0"`

	// Streak counters, advanced on review submission.
	CurrentStreakDays int        `gorm:"not null;default:0"`
	LongestStreakDays int        `gorm:"not null;default:0"`
	LastReviewDate    *time.Time
	WeeklyReviewCount int        `gorm:"not null;default:0"`
	WeekStart         *time.Time

	// External payout destination at the payment gateway.
	PayoutAccountID string
}

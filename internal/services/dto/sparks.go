package dto

import "time"

type SparksBalanceResponse struct {
	UserID       string `json:"user_id"`
	Balance      int    `json:"balance"`
	CurrentStreak int   `json:"current_streak_days"`
	LongestStreak int   `json:"longest_streak_days"`
}

type SparksTransactionResponse struct {
	ID           string    `json:"id"`
	Action       string    `json:"action"`
	Points       int       `json:"points"`
	BalanceAfter int       `json:"balance_after"`
	SlotID       *string   `json:"slot_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type SparksHistoryResponse struct {
	Transactions []*SparksTransactionResponse `json:"transactions"`
	Total        int64                        `json:"total"`
	Page         int                          `json:"page"`
	PageSize     int                          `json:"page_size"`
}

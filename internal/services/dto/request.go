package dto

import "time"

type CreateRequestRequest struct {
	Title            string  `json:"title" binding:"required,min=3,max=200"`
	Description      string  `json:"description" binding:"max=5000"`
	ContentURL       string  `json:"content_url" binding:"omitempty,url"`
	Tier             string  `json:"tier" binding:"omitempty,oneof=free standard expert"`
	Budget           float64 `json:"budget" binding:"gte=0"`
	ReviewsRequested int     `json:"reviews_requested" binding:"required,min=1,max=10"`
}

type RequestResponse struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	ContentURL       string    `json:"content_url"`
	Tier             string    `json:"tier"`
	Budget           float64   `json:"budget"`
	ReviewsRequested int       `json:"reviews_requested"`
	ReviewsClaimed   int       `json:"reviews_claimed"`
	ReviewsCompleted int       `json:"reviews_completed"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

type RequestListResponse struct {
	Requests []*RequestResponse `json:"requests"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

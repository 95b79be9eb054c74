package dto

type OpenDisputeRequest struct {
	Note string `json:"note" binding:"required,min=20,max=2000"`
}

type ResolveDisputeRequest struct {
	Outcome string `json:"outcome" binding:"required" validate:"is-dispute-outcome"`
}

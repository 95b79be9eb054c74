package models

type UserStatus string
type UserRole string
type RequestStatus string
type SlotStatus string
type ApplicationStatus string
type PaymentStatus string
type DisputeStatus string
type AcceptanceType string
type DisputeOutcome string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"

	UserRoleReviewer  UserRole = "reviewer"
	UserRoleRequester UserRole = "requester"
	UserRoleAdmin     UserRole = "admin"

	RequestStatusOpen      RequestStatus = "open"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"

	SlotStatusAvailable SlotStatus = "available"
	SlotStatusClaimed   SlotStatus = "claimed"
	SlotStatusSubmitted SlotStatus = "submitted"
	SlotStatusAccepted  SlotStatus = "accepted"
	SlotStatusRejected  SlotStatus = "rejected"
	SlotStatusDisputed  SlotStatus = "disputed"
	SlotStatusAbandoned SlotStatus = "abandoned"
	SlotStatusCancelled SlotStatus = "cancelled"

	ApplicationStatusPending   ApplicationStatus = "pending"
	ApplicationStatusAccepted  ApplicationStatus = "accepted"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
	ApplicationStatusWithdrawn ApplicationStatus = "withdrawn"
	ApplicationStatusExpired   ApplicationStatus = "expired"

	PaymentStatusNone     PaymentStatus = "none"
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusEscrowed PaymentStatus = "escrowed"
	PaymentStatusReleased PaymentStatus = "released"
	PaymentStatusRefunded PaymentStatus = "refunded"

	DisputeStatusNone     DisputeStatus = "none"
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusResolved DisputeStatus = "resolved"
	DisputeStatusExpired  DisputeStatus = "expired"

	AcceptanceManual  AcceptanceType = "manual"
	AcceptanceAuto    AcceptanceType = "auto"
	AcceptanceDispute AcceptanceType = "dispute"

	DisputeOutcomeReviewerFavored  DisputeOutcome = "reviewer_favored"
	DisputeOutcomeRequesterFavored DisputeOutcome = "requester_favored"
)

// IsTerminal reports whether a slot can no longer change state.
func (s SlotStatus) IsTerminal() bool {
	switch s {
	case SlotStatusAccepted, SlotStatusRejected, SlotStatusCancelled:
		return true
	}
	return false
}

func (s ApplicationStatus) IsTerminal() bool {
	return s != ApplicationStatusPending
}

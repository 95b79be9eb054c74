package services

import (
	"sparkreview_backend/internal/email"
)

// ServiceContainer holds every service of the application.
type ServiceContainer struct {
	AuthService         AuthService
	RequestService      RequestService
	ClaimService        ClaimService
	LifecycleService    LifecycleService
	EscrowService       EscrowService
	SparksService       SparksService
	DisputeService      DisputeService
	NotificationService NotificationService
	EmailService        email.Provider
}

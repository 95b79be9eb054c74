package validator

import (
	"log"

	"github.com/go-playground/validator/v10"

	"sparkreview_backend/internal/models"
)

// registerCustomRules wires the domain-specific validation tags into the
// validator instance. A registration failure is a startup error.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-user-role", validateUserRole)
	mustRegister("is-slot-status", validateSlotStatus)
	mustRegister("is-application-status", validateApplicationStatus)
	mustRegister("is-payment-status", validatePaymentStatus)
	mustRegister("is-dispute-outcome", validateDisputeOutcome)
}

// Empty values pass; combine with 'required' when the field is mandatory.

func validateUserRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.UserRole(value) {
	case models.UserRoleReviewer, models.UserRoleRequester, models.UserRoleAdmin:
		return true
	default:
		return false
	}
}

func validateSlotStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.SlotStatus(value) {
	case models.SlotStatusAvailable, models.SlotStatusClaimed, models.SlotStatusSubmitted,
		models.SlotStatusAccepted, models.SlotStatusRejected, models.SlotStatusDisputed,
		models.SlotStatusAbandoned, models.SlotStatusCancelled:
		return true
	default:
		return false
	}
}

func validateApplicationStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.ApplicationStatus(value) {
	case models.ApplicationStatusPending, models.ApplicationStatusAccepted,
		models.ApplicationStatusRejected, models.ApplicationStatusWithdrawn,
		models.ApplicationStatusExpired:
		return true
	default:
		return false
	}
}

func validatePaymentStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.PaymentStatus(value) {
	case models.PaymentStatusNone, models.PaymentStatusPending, models.PaymentStatusEscrowed,
		models.PaymentStatusReleased, models.PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

func validateDisputeOutcome(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.DisputeOutcome(value) {
	case models.DisputeOutcomeReviewerFavored, models.DisputeOutcomeRequesterFavored:
		return true
	default:
		return false
	}
}

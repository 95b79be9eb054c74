package apperrors

import (
	"net/http"
)

/*
Factories and predefined variables for the slot-lifecycle error taxonomy.
Lifecycle errors always carry the violated precondition (expected vs actual
state) in Details so clients can decide whether a retry makes sense.
*/

// ErrNotFound wraps a repository miss (e.g. gorm.ErrRecordNotFound).
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidState reports a lifecycle transition attempted from the wrong
// state. Expected and actual are the slot (or payment) statuses involved.
func ErrInvalidState(domain, message string, expected, actual string) *AppError {
	return New(CodeInvalidState, domain, message, http.StatusConflict).WithDetails(map[string]string{
		"expected_status": expected,
		"actual_status":   actual,
	})
}

// ErrSlotUnavailable reports a lost claim race or an exhausted claim cap.
// Callers are expected to re-query the listing rather than retry blindly.
func ErrSlotUnavailable(message string) *AppError {
	return New(CodeSlotUnavailable, "lifecycle", message, http.StatusConflict)
}

// ErrDuplicateApplication reports an existing non-terminal application for
// the same (applicant, request) pair.
func ErrDuplicateApplication() *AppError {
	return New(CodeDuplicateApplication, "applications", "An active application already exists for this request", http.StatusConflict)
}

// ErrPaymentGateway wraps a capture/transfer/refund failure. The slot stays
// in its pre-transition payment state; the operation is retryable.
func ErrPaymentGateway(err error, message string) *AppError {
	return Wrap(err, CodePaymentGateway, "escrow", message, http.StatusBadGateway)
}

var ErrInvalidUserRole = New(
	CodeValidationFailed,
	"business_logic",
	"Invalid user role for this operation",
	http.StatusBadRequest,
)

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

// ErrDeadlinePassed reports an action attempted after its window closed
// (review submission after the claim deadline, dispute after the window).
func ErrDeadlinePassed(domain, message string) *AppError {
	return New(CodeConflict, domain, message, http.StatusConflict)
}

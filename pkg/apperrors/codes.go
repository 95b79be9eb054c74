package apperrors

// ErrorCode identifies a class of application error.
type ErrorCode string

const (
	// System and unknown errors.
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Generic business-logic codes.
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeLimitExceeded    ErrorCode = "LIMIT_EXCEEDED"

	// Slot lifecycle codes.
	CodeInvalidState         ErrorCode = "INVALID_STATE"
	CodeSlotUnavailable      ErrorCode = "SLOT_UNAVAILABLE"
	CodeDuplicateApplication ErrorCode = "DUPLICATE_APPLICATION"
	CodePaymentGateway       ErrorCode = "PAYMENT_GATEWAY_ERROR"

	// Authentication and authorization.
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	CodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
)

package apperrors

// ErrorCode identifies a class of application error.
type ErrorCode string

// Generic, non-domain error codes
const (
	// System and unknown failures
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Generic business-logic codes (used by the factories)
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeLimitExceeded    ErrorCode = "LIMIT_EXCEEDED"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Storage pipeline codes
	CodeBackendUnavailable    ErrorCode = "BACKEND_UNAVAILABLE"
	CodeQuotaExceeded         ErrorCode = "QUOTA_EXCEEDED"
	CodeUnsupportedCapability ErrorCode = "UNSUPPORTED_CAPABILITY"
	CodeProcessingFailed      ErrorCode = "PROCESSING_FAILED"

	// Access control (cross-cutting)
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
)

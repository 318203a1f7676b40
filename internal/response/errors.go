package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden    ErrCode = "FORBIDDEN"
	ErrNotTestOwner ErrCode = "NOT_TEST_OWNER"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation      ErrCode = "VALIDATION_ERROR"
	ErrInvalidID       ErrCode = "INVALID_ID"
	ErrDuplicateAnswer ErrCode = "DUPLICATE_ANSWER"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound       ErrCode = "NOT_FOUND"
	ErrTestNotFound   ErrCode = "TEST_NOT_FOUND"
	ErrResultNotFound ErrCode = "RESULT_NOT_FOUND"

	// ─── Test lifecycle ────────────────────────────────────────────────
	ErrInvalidTestState ErrCode = "INVALID_TEST_STATE"
	ErrTestNotStarted   ErrCode = "TEST_NOT_STARTED"
	ErrTestExpired      ErrCode = "TEST_EXPIRED"
	ErrNoActiveAttempt  ErrCode = "NO_ACTIVE_ATTEMPT"
	ErrAttemptStarted   ErrCode = "ATTEMPT_ALREADY_STARTED"
	ErrAttemptSubmitted ErrCode = "ATTEMPT_ALREADY_SUBMITTED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrNotTestOwner:
		return "You are not the owner of this test."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrDuplicateAnswer:
		return "Each question may be answered only once."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrTestNotFound:
		return "Test not found."
	case ErrResultNotFound:
		return "No result found for this test."

	// ─── Test lifecycle ────────────────────────────────────────────────
	case ErrInvalidTestState:
		return "The test is not in a valid state for this action."
	case ErrTestNotStarted:
		return "The test has not started yet."
	case ErrTestExpired:
		return "The test window has ended."
	case ErrNoActiveAttempt:
		return "You have not started this test."
	case ErrAttemptStarted:
		return "You have already started this test."
	case ErrAttemptSubmitted:
		return "You have already submitted this test."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}

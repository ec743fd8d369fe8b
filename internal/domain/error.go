package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Voucher lifecycle
	ErrAlreadyRedeemed    = errors.New("voucher already redeemed")
	ErrExpired            = errors.New("voucher has expired")
	ErrNotActive          = errors.New("voucher is not active")
	ErrDuplicateCode      = errors.New("voucher code already exists")
	ErrCodeSpaceExhausted = errors.New("could not generate a unique voucher code")
	ErrInvalidTransition  = errors.New("invalid voucher status transition")
	ErrEncodingFailed     = errors.New("voucher encoding failed")

	// Staff
	ErrDailyLimitReached = errors.New("staff daily voucher limit reached")

	// Storage
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid database execution context")
)

// Kind classifies an error for callers that need to signal it (HTTP status, exit codes).
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindExpired
	KindInvalidTransition
	KindForbidden
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindExpired:
		return "expired"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// KindOf maps err (possibly wrapped) onto the error taxonomy. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidArgument):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyRedeemed),
		errors.Is(err, ErrDuplicateCode),
		errors.Is(err, ErrDailyLimitReached),
		errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrNotActive):
		return KindConflict
	case errors.Is(err, ErrExpired):
		return KindExpired
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrPermissionDenied):
		return KindForbidden
	case errors.Is(err, ErrInvalidCredentials):
		return KindUnauthorized
	default:
		return KindInternal
	}
}

package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ParsePGErrorCode extracts the SQLSTATE code from a pgx error.
func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

// IsUniqueViolation reports whether err is a postgres unique_violation.
func IsUniqueViolation(err error) bool {
	return ParsePGErrorCode(err) == "23505"
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrNotFound       = errors.New("not found")
)

// Payments
var (
	ErrSponsorshipEnded     = errors.New("sponsorship has ended and no longer accepts funds")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrDuplicateExternalRef = errors.New("external transaction reference already used")
	ErrInvalidPhoneNumber   = errors.New("invalid phone number for provider")
	ErrUnsupportedMethod    = errors.New("unsupported payment method")
)

// Ledger
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrChildNotFound       = errors.New("child not found")
)

// Transfers
var (
	ErrTransferNotFound     = errors.New("fund transfer not found")
	ErrTransferDecided      = errors.New("fund transfer already decided")
	ErrUnauthorizedApprover = errors.New("sponsor is not authorized to decide this transfer")
	ErrChildNotInOrg        = errors.New("child does not belong to the requesting organisation")
)

// GatewayError carries the downstream provider's failure detail. The
// orchestrator records it on the payment and surfaces it to the caller.
type GatewayError struct {
	Provider string
	Msg      string
	Err      error
}

func (e *GatewayError) Error() string {
	if e.Msg != "" {
		return e.Provider + ": " + e.Msg
	}
	return e.Provider + ": gateway request failed"
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Kind returns the stable machine-readable kind for a domain error,
// or "internal" when the error is not part of the taxonomy.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "validation_error"
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrPaymentNotFound),
		errors.Is(err, ErrChildNotFound),
		errors.Is(err, ErrTransferNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrUnauthorizedApprover):
		return "unauthorized_approver"
	case errors.Is(err, ErrInvalidPhoneNumber):
		return "invalid_phone_number"
	case errors.Is(err, ErrTransferDecided):
		return "already_decided"
	case errors.Is(err, ErrSponsorshipEnded):
		return "sponsorship_ended"
	case errors.Is(err, ErrDuplicateExternalRef):
		return "duplicate_external_ref"
	case errors.Is(err, ErrUnsupportedMethod):
		return "unsupported_method"
	case errors.Is(err, ErrChildNotInOrg):
		return "unauthorized_requester"
	default:
		var gw *GatewayError
		if errors.As(err, &gw) {
			return "gateway_error"
		}
		return "internal"
	}
}

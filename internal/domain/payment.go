package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

type PaymentMethod string
type PaymentStatus string

const (
	MethodCard        PaymentMethod = "card"
	MethodPayPal      PaymentMethod = "paypal"
	MethodOrangeMoney PaymentMethod = "orange_money"
	MethodMoovMoney   PaymentMethod = "moov_money"
	MethodWave        PaymentMethod = "wave"
	MethodCash        PaymentMethod = "cash"
)

const (
	PaymentStatusInitiated PaymentStatus = "initiated"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// IsTerminal reports whether the status can no longer change. A payment
// reaches succeeded or failed exactly once and is never reverted.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusFailed
}

func ParseMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case MethodCard, MethodPayPal, MethodOrangeMoney, MethodMoovMoney, MethodWave, MethodCash:
		return PaymentMethod(s), nil
	default:
		return "", fmt.Errorf("%w: unknown payment method %q", xerrors.ErrUnsupportedMethod, s)
	}
}

// Payment is a single monetary movement attempt against a sponsorship.
type Payment struct {
	ID             int64           `json:"id" db:"id"`
	PaymentRef     string          `json:"payment_ref" db:"payment_ref"`
	SponsorshipID  int64           `json:"sponsorship_id" db:"sponsorship_id"`
	SponsorID      int64           `json:"sponsor_id" db:"sponsor_id"`
	OrganisationID *int64          `json:"organisation_id,omitempty" db:"organisation_id"`

	Method PaymentMethod   `json:"method" db:"method"`
	Amount decimal.Decimal `json:"amount" db:"amount"`

	Status                PaymentStatus   `json:"status" db:"status"`
	ExternalTransactionID *string         `json:"external_transaction_id,omitempty" db:"external_transaction_id"`
	ConfirmationCode      *string         `json:"confirmation_code,omitempty" db:"confirmation_code"`
	ErrorMessage          *string         `json:"error_message,omitempty" db:"error_message"`
	Metadata              json.RawMessage `json:"metadata,omitempty" db:"metadata"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// InitiatePaymentRequest is the body of POST /payments/initiate.
// Method-specific fields ride along and are interpreted by the adapter.
type InitiatePaymentRequest struct {
	SponsorshipID int64           `json:"sponsorship_id"`
	SponsorID     int64           `json:"sponsor_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`

	PhoneNumber string `json:"phone_number,omitempty"` // mobile money
	CardToken   string `json:"card_token,omitempty"`   // card
	ReturnURL   string `json:"return_url,omitempty"`   // card, paypal

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func (r *InitiatePaymentRequest) Validate() error {
	if r.SponsorshipID <= 0 {
		return fmt.Errorf("%w: sponsorship_id is required", xerrors.ErrInvalidRequest)
	}
	if r.SponsorID <= 0 {
		return fmt.Errorf("%w: sponsor_id is required", xerrors.ErrInvalidRequest)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than 0", xerrors.ErrInvalidRequest)
	}
	method, err := ParseMethod(r.Method)
	if err != nil {
		return err
	}
	if method == MethodCash {
		return fmt.Errorf("%w: cash payments go through /payments/cash/record", xerrors.ErrInvalidRequest)
	}
	switch method {
	case MethodOrangeMoney, MethodMoovMoney, MethodWave:
		if r.PhoneNumber == "" {
			return fmt.Errorf("%w: phone_number is required for %s", xerrors.ErrInvalidRequest, method)
		}
	case MethodCard:
		if r.CardToken == "" {
			return fmt.Errorf("%w: card_token is required for card", xerrors.ErrInvalidRequest)
		}
	}
	return nil
}

// RecordCashRequest is the body of POST /payments/cash/record. Cash is
// physically confirmed by the recording organisation, a trusted party,
// so this is the only synchronous success path.
type RecordCashRequest struct {
	SponsorshipID    int64           `json:"sponsorship_id"`
	OrganisationID   int64           `json:"organisation_id"`
	Amount           decimal.Decimal `json:"amount"`
	ReceiptReference string          `json:"receipt_reference"`
	ReceivedDate     *time.Time      `json:"received_date,omitempty"`
}

func (r *RecordCashRequest) Validate() error {
	if r.SponsorshipID <= 0 {
		return fmt.Errorf("%w: sponsorship_id is required", xerrors.ErrInvalidRequest)
	}
	if r.OrganisationID <= 0 {
		return fmt.Errorf("%w: organisation_id is required", xerrors.ErrInvalidRequest)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than 0", xerrors.ErrInvalidRequest)
	}
	if r.ReceiptReference == "" {
		return fmt.Errorf("%w: receipt_reference is required", xerrors.ErrInvalidRequest)
	}
	return nil
}

// PaymentHandle is what initiate returns to the client: enough to poll
// status and, for redirect methods, to complete authentication.
type PaymentHandle struct {
	PaymentRef  string          `json:"payment_ref"`
	Status      PaymentStatus   `json:"status"`
	Method      PaymentMethod   `json:"method"`
	Amount      decimal.Decimal `json:"amount"`
	RedirectURL string          `json:"redirect_url,omitempty"`
}

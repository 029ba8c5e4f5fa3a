package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SponsorshipStatus string

const (
	SponsorshipActive    SponsorshipStatus = "active"
	SponsorshipSuspended SponsorshipStatus = "suspended"
	SponsorshipEnded     SponsorshipStatus = "ended"
)

// Sponsorship is the funding relationship between one sponsor and one
// child. TotalAmount is a running total of succeeded payments,
// recomputable from the payments table.
type Sponsorship struct {
	ID          int64             `json:"id" db:"id"`
	SponsorID   int64             `json:"sponsor_id" db:"sponsor_id"`
	ChildID     int64             `json:"child_id" db:"child_id"`
	Status      SponsorshipStatus `json:"status" db:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount" db:"total_amount"`
	StartDate   time.Time         `json:"start_date" db:"start_date"`
	EndDate     *time.Time        `json:"end_date,omitempty" db:"end_date"`
	EndReason   *string           `json:"end_reason,omitempty" db:"end_reason"`
}

// AcceptsFunds reports whether the sponsorship can take new payments.
// A suspended sponsorship still accepts funds already in flight; only
// an ended one refuses.
func (s *Sponsorship) AcceptsFunds() bool {
	return s.Status != SponsorshipEnded
}

// Child is the sponsorship beneficiary. Balance is the residual ledger
// value ("solde") owned exclusively by the ledger; nothing mutates the
// field directly.
type Child struct {
	ID             int64           `json:"id" db:"id"`
	OrganisationID int64           `json:"organisation_id" db:"organisation_id"`
	Balance        decimal.Decimal `json:"balance" db:"balance"`
	BalanceVersion int64           `json:"balance_version" db:"balance_version"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

type TransferStatus string
type TransferReason string

const (
	TransferPending  TransferStatus = "pending"
	TransferApproved TransferStatus = "approved"
	TransferRejected TransferStatus = "rejected"
)

const (
	ReasonDropOut  TransferReason = "drop_out"
	ReasonNeedsMet TransferReason = "needs_met"
	ReasonOther    TransferReason = "other"
)

func (s TransferStatus) IsTerminal() bool {
	return s == TransferApproved || s == TransferRejected
}

func ParseTransferReason(s string) (TransferReason, error) {
	switch TransferReason(s) {
	case ReasonDropOut, ReasonNeedsMet, ReasonOther:
		return TransferReason(s), nil
	default:
		return "", fmt.Errorf("%w: unknown transfer reason %q", xerrors.ErrInvalidRequest, s)
	}
}

// FundTransfer is a request to move a child's residual balance to
// another child, or to withdraw it when no target is given. Decided
// exactly once by the sponsor tied to the source child's funding.
type FundTransfer struct {
	ID             int64           `json:"id" db:"id"`
	TransferRef    string          `json:"transfer_ref" db:"transfer_ref"`
	SourceChildID  int64           `json:"source_child_id" db:"source_child_id"`
	TargetChildID  *int64          `json:"target_child_id,omitempty" db:"target_child_id"`
	OrganisationID int64           `json:"organisation_id" db:"organisation_id"`
	DecidedBy      *int64          `json:"decided_by,omitempty" db:"decided_by"`

	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Reason      TransferReason  `json:"reason" db:"reason"`
	Description string          `json:"description" db:"description"`

	Status          TransferStatus `json:"status" db:"status"`
	RequestDate     time.Time      `json:"request_date" db:"request_date"`
	DecisionDate    *time.Time     `json:"decision_date,omitempty" db:"decision_date"`
	ApprovalComment *string        `json:"approval_comment,omitempty" db:"approval_comment"`
}

// RequestTransferRequest is the body of POST /transfers.
type RequestTransferRequest struct {
	OrganisationID int64           `json:"organisation_id"`
	SourceChildID  int64           `json:"source_child_id"`
	TargetChildID  *int64          `json:"target_child_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason"`
	Description    string          `json:"description"`
}

func (r *RequestTransferRequest) Validate() error {
	if r.OrganisationID <= 0 {
		return fmt.Errorf("%w: organisation_id is required", xerrors.ErrInvalidRequest)
	}
	if r.SourceChildID <= 0 {
		return fmt.Errorf("%w: source_child_id is required", xerrors.ErrInvalidRequest)
	}
	if r.TargetChildID != nil && *r.TargetChildID == r.SourceChildID {
		return fmt.Errorf("%w: target child must differ from source child", xerrors.ErrInvalidRequest)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than 0", xerrors.ErrInvalidRequest)
	}
	if _, err := ParseTransferReason(r.Reason); err != nil {
		return err
	}
	return nil
}

// DecideTransferRequest is the body of PUT /transfers/{id}/decision.
type DecideTransferRequest struct {
	ApproverSponsorID int64   `json:"approver_sponsor_id"`
	Approve           bool    `json:"approve"`
	Comment           *string `json:"comment,omitempty"`
}

func (r *DecideTransferRequest) Validate() error {
	if r.ApproverSponsorID <= 0 {
		return fmt.Errorf("%w: approver_sponsor_id is required", xerrors.ErrInvalidRequest)
	}
	return nil
}

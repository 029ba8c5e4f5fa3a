package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/internal/repository"
	"github.com/djibrilmaiga/eduka-backend/pkg/id"
	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

// TransferUsecase runs the fund-transfer approval workflow:
// pending -> {approved, rejected}, terminal once decided. Only the
// sponsor whose active sponsorship funds the source child may decide.
type TransferUsecase struct {
	transferRepo    repository.TransferRepository
	balanceRepo     repository.BalanceRepository
	sponsorshipRepo repository.SponsorshipRepository
	ledger          *Ledger
	txm             repository.TxManager
	refs            *id.Generator
	logger          *zap.Logger
}

func NewTransferUsecase(
	transferRepo repository.TransferRepository,
	balanceRepo repository.BalanceRepository,
	sponsorshipRepo repository.SponsorshipRepository,
	ledger *Ledger,
	txm repository.TxManager,
	refs *id.Generator,
	logger *zap.Logger,
) *TransferUsecase {
	return &TransferUsecase{
		transferRepo:    transferRepo,
		balanceRepo:     balanceRepo,
		sponsorshipRepo: sponsorshipRepo,
		ledger:          ledger,
		txm:             txm,
		refs:            refs,
		logger:          logger,
	}
}

// Request creates a pending transfer of part of the source child's
// residual balance. No ledger effect happens until approval; the
// balance check here only rejects requests that are already hopeless.
func (uc *TransferUsecase) Request(ctx context.Context, req *domain.RequestTransferRequest) (*domain.FundTransfer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	reason, _ := domain.ParseTransferReason(req.Reason)

	source, err := uc.balanceRepo.GetChild(ctx, req.SourceChildID)
	if err != nil {
		return nil, err
	}
	if source.OrganisationID != req.OrganisationID {
		return nil, xerrors.ErrChildNotInOrg
	}

	if req.TargetChildID != nil {
		if _, err := uc.balanceRepo.GetChild(ctx, *req.TargetChildID); err != nil {
			return nil, err
		}
	}

	if req.Amount.GreaterThan(source.Balance) {
		return nil, fmt.Errorf("%w: balance %s, requested %s",
			xerrors.ErrInsufficientBalance, source.Balance.String(), req.Amount.String())
	}

	transfer := &domain.FundTransfer{
		TransferRef:    uc.refs.TransferRef(),
		SourceChildID:  req.SourceChildID,
		TargetChildID:  req.TargetChildID,
		OrganisationID: req.OrganisationID,
		Amount:         req.Amount,
		Reason:         reason,
		Description:    req.Description,
		Status:         domain.TransferPending,
	}
	if err := uc.transferRepo.Create(ctx, transfer); err != nil {
		return nil, err
	}

	uc.logger.Info("fund transfer requested",
		zap.String("transfer_ref", transfer.TransferRef),
		zap.Int64("source_child_id", transfer.SourceChildID),
		zap.String("amount", transfer.Amount.String()),
		zap.String("reason", string(reason)))

	return transfer, nil
}

// Decide applies the sponsor's decision exactly once. On approval the
// source child is debited and the target child, when present, credited
// with the same amount inside one transaction; a debit without its
// matching credit is a correctness bug, not an accepted state. The
// balance is re-validated here because it may have drifted since the
// request.
func (uc *TransferUsecase) Decide(ctx context.Context, transferID int64, req *domain.DecideTransferRequest) (*domain.FundTransfer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var sourceChild, targetChild int64

	err := uc.txm.WithinTx(ctx, func(tx pgx.Tx) error {
		transfer, err := uc.transferRepo.GetByIDForUpdate(ctx, tx, transferID)
		if err != nil {
			return err
		}
		if transfer.Status.IsTerminal() {
			return xerrors.ErrTransferDecided
		}

		sponsorship, err := uc.sponsorshipRepo.GetActiveByChild(ctx, transfer.SourceChildID)
		if err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return xerrors.ErrUnauthorizedApprover
			}
			return err
		}
		if sponsorship.SponsorID != req.ApproverSponsorID {
			return xerrors.ErrUnauthorizedApprover
		}

		if !req.Approve {
			return uc.transferRepo.MarkDecided(ctx, tx, transferID, domain.TransferRejected, req.ApproverSponsorID, req.Comment)
		}

		if transfer.TargetChildID != nil {
			if err := uc.ledger.Transfer(ctx, tx, transfer.SourceChildID, *transfer.TargetChildID, transfer.Amount); err != nil {
				return err
			}
			targetChild = *transfer.TargetChildID
		} else if err := uc.ledger.Debit(ctx, tx, transfer.SourceChildID, transfer.Amount); err != nil {
			return err
		}
		sourceChild = transfer.SourceChildID

		return uc.transferRepo.MarkDecided(ctx, tx, transferID, domain.TransferApproved, req.ApproverSponsorID, req.Comment)
	})
	if err != nil {
		return nil, err
	}

	switch {
	case targetChild != 0:
		uc.ledger.Invalidate(ctx, sourceChild, targetChild)
	case sourceChild != 0:
		uc.ledger.Invalidate(ctx, sourceChild)
	}

	decided, err := uc.transferRepo.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("fund transfer decided",
		zap.String("transfer_ref", decided.TransferRef),
		zap.String("status", string(decided.Status)),
		zap.Int64("decided_by", req.ApproverSponsorID))

	return decided, nil
}

// ListPending lists undecided transfers for operational visibility.
func (uc *TransferUsecase) ListPending(ctx context.Context) ([]*domain.FundTransfer, error) {
	return uc.transferRepo.ListPending(ctx)
}

package usecase

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/internal/gateway"
	"github.com/djibrilmaiga/eduka-backend/internal/repository"
)

// CallbackUsecase resolves gateway callbacks against locally-initiated
// payments. Gateways retry webhook delivery, so applying a callback
// must be idempotent: only the first terminal-status callback for an
// external transaction id has effect.
type CallbackUsecase struct {
	paymentRepo     repository.PaymentRepository
	sponsorshipRepo repository.SponsorshipRepository
	ledger          *Ledger
	txm             repository.TxManager
	logger          *zap.Logger
}

func NewCallbackUsecase(
	paymentRepo repository.PaymentRepository,
	sponsorshipRepo repository.SponsorshipRepository,
	ledger *Ledger,
	txm repository.TxManager,
	logger *zap.Logger,
) *CallbackUsecase {
	return &CallbackUsecase{
		paymentRepo:     paymentRepo,
		sponsorshipRepo: sponsorshipRepo,
		ledger:          ledger,
		txm:             txm,
		logger:          logger,
	}
}

// ConfirmPayment applies a translated callback to the payment known by
// externalTxID.
//
// Guarantees:
//   - Unknown outcomes never resolve the payment; it stays initiated.
//   - A payment already terminal is a duplicate delivery: observed,
//     logged and acknowledged without re-applying any ledger effect.
//   - The first succeeded callback credits the sponsored child exactly
//     once, in the same transaction as the status write.
func (uc *CallbackUsecase) ConfirmPayment(ctx context.Context, externalTxID string, outcome gateway.CallbackOutcome, confirmationCode *string, errorMsg *string) error {
	if outcome == gateway.OutcomeUnknown {
		uc.logger.Warn("callback with unrecognized provider status, leaving payment unresolved",
			zap.String("external_tx_id", externalTxID))
		return nil
	}

	var creditedChild int64

	err := uc.txm.WithinTx(ctx, func(tx pgx.Tx) error {
		payment, err := uc.paymentRepo.GetByExternalIDForUpdate(ctx, tx, externalTxID)
		if err != nil {
			return err
		}

		if payment.Status.IsTerminal() {
			// Duplicate callback. Not an error: the gateway retried
			// delivery, or two deliveries raced and this one lost.
			uc.logger.Info("duplicate callback ignored",
				zap.String("external_tx_id", externalTxID),
				zap.String("payment_ref", payment.PaymentRef),
				zap.String("status", string(payment.Status)),
				zap.String("claimed_outcome", string(outcome)))
			return nil
		}

		if outcome == gateway.OutcomeFailed {
			return uc.paymentRepo.MarkTerminal(ctx, tx, payment.ID, domain.PaymentStatusFailed, nil, errorMsg)
		}

		if err := uc.paymentRepo.MarkTerminal(ctx, tx, payment.ID, domain.PaymentStatusSucceeded, confirmationCode, nil); err != nil {
			return err
		}

		sponsorship, err := uc.sponsorshipRepo.GetByID(ctx, payment.SponsorshipID)
		if err != nil {
			return err
		}
		if err := uc.ledger.Credit(ctx, tx, sponsorship.ChildID, payment.Amount); err != nil {
			return err
		}
		creditedChild = sponsorship.ChildID

		return uc.sponsorshipRepo.RecomputeTotal(ctx, tx, sponsorship.ID)
	})
	if err != nil {
		uc.logger.Error("callback confirmation failed",
			zap.String("external_tx_id", externalTxID),
			zap.String("outcome", string(outcome)),
			zap.Error(err))
		return err
	}

	if creditedChild != 0 {
		uc.ledger.Invalidate(ctx, creditedChild)
	}

	uc.logger.Info("callback applied",
		zap.String("external_tx_id", externalTxID),
		zap.String("outcome", string(outcome)))
	return nil
}

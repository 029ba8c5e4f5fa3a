package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/internal/gateway"
	"github.com/djibrilmaiga/eduka-backend/internal/repository"
	"github.com/djibrilmaiga/eduka-backend/pkg/id"
	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

// PaymentUsecase creates payment records, selects the gateway adapter
// through the registry and runs the synchronous cash path.
type PaymentUsecase struct {
	paymentRepo     repository.PaymentRepository
	sponsorshipRepo repository.SponsorshipRepository
	balanceRepo     repository.BalanceRepository
	ledger          *Ledger
	txm             repository.TxManager
	registry        *gateway.Registry
	refs            *id.Generator
	baseCallbackURL string
	logger          *zap.Logger
}

func NewPaymentUsecase(
	paymentRepo repository.PaymentRepository,
	sponsorshipRepo repository.SponsorshipRepository,
	balanceRepo repository.BalanceRepository,
	ledger *Ledger,
	txm repository.TxManager,
	registry *gateway.Registry,
	refs *id.Generator,
	baseCallbackURL string,
	logger *zap.Logger,
) *PaymentUsecase {
	return &PaymentUsecase{
		paymentRepo:     paymentRepo,
		sponsorshipRepo: sponsorshipRepo,
		balanceRepo:     balanceRepo,
		ledger:          ledger,
		txm:             txm,
		registry:        registry,
		refs:            refs,
		baseCallbackURL: baseCallbackURL,
		logger:          logger,
	}
}

// InitiatePayment persists a pending payment and opens the external
// transaction on the selected gateway. Adapter failures mark the
// payment failed and surface to the caller; the orchestrator never
// retries on its own, retry is the gateway's job via callbacks.
func (uc *PaymentUsecase) InitiatePayment(ctx context.Context, req *domain.InitiatePaymentRequest) (*domain.PaymentHandle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	method, _ := domain.ParseMethod(req.Method)

	sponsorship, err := uc.sponsorshipRepo.GetByID(ctx, req.SponsorshipID)
	if err != nil {
		return nil, err
	}
	if !sponsorship.AcceptsFunds() {
		return nil, xerrors.ErrSponsorshipEnded
	}

	gw, err := uc.registry.Get(method)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		PaymentRef:    uc.refs.PaymentRef(),
		SponsorshipID: sponsorship.ID,
		SponsorID:     req.SponsorID,
		Method:        method,
		Amount:        req.Amount,
		Status:        domain.PaymentStatusInitiated,
	}
	if req.Metadata != nil {
		metadataJSON, _ := json.Marshal(req.Metadata)
		payment.Metadata = metadataJSON
	}

	if err := uc.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	uc.logger.Info("payment initiated",
		zap.String("payment_ref", payment.PaymentRef),
		zap.String("method", string(method)),
		zap.String("amount", payment.Amount.String()),
		zap.Int64("sponsorship_id", sponsorship.ID))

	result, err := gw.Start(ctx, payment, gateway.StartFields{
		PhoneNumber: req.PhoneNumber,
		CardToken:   req.CardToken,
		ReturnURL:   uc.callbackURL(method),
	})
	if err != nil {
		uc.logger.Error("gateway start failed",
			zap.String("payment_ref", payment.PaymentRef),
			zap.String("gateway", gw.Name()),
			zap.Error(err))
		if markErr := uc.paymentRepo.MarkFailed(ctx, payment.ID, err.Error()); markErr != nil {
			uc.logger.Error("failed to record gateway error on payment",
				zap.String("payment_ref", payment.PaymentRef),
				zap.Error(markErr))
		}
		return nil, err
	}

	if err := uc.paymentRepo.SetExternalID(ctx, payment.ID, result.ExternalID); err != nil {
		return nil, err
	}

	uc.logger.Info("gateway transaction opened",
		zap.String("payment_ref", payment.PaymentRef),
		zap.String("gateway", gw.Name()),
		zap.String("external_id", result.ExternalID))

	return &domain.PaymentHandle{
		PaymentRef:  payment.PaymentRef,
		Status:      payment.Status,
		Method:      method,
		Amount:      payment.Amount,
		RedirectURL: result.RedirectURL,
	}, nil
}

// RecordCashPayment is the only synchronous success path. Cash is
// physically confirmed by the recording organisation, a trusted party,
// so the payment succeeds and the child is credited in one
// transaction, no callback involved.
func (uc *PaymentUsecase) RecordCashPayment(ctx context.Context, req *domain.RecordCashRequest) (*domain.Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sponsorship, err := uc.sponsorshipRepo.GetByID(ctx, req.SponsorshipID)
	if err != nil {
		return nil, err
	}
	if !sponsorship.AcceptsFunds() {
		return nil, xerrors.ErrSponsorshipEnded
	}

	child, err := uc.balanceRepo.GetChild(ctx, sponsorship.ChildID)
	if err != nil {
		return nil, err
	}
	if child.OrganisationID != req.OrganisationID {
		return nil, xerrors.ErrChildNotInOrg
	}

	cashRef := uc.refs.CashRef()
	payment := &domain.Payment{
		PaymentRef:            uc.refs.PaymentRef(),
		SponsorshipID:         sponsorship.ID,
		SponsorID:             sponsorship.SponsorID,
		OrganisationID:        &req.OrganisationID,
		Method:                domain.MethodCash,
		Amount:                req.Amount,
		Status:                domain.PaymentStatusInitiated,
		ExternalTransactionID: &cashRef,
		ConfirmationCode:      &req.ReceiptReference,
	}
	if req.ReceivedDate != nil {
		metadataJSON, _ := json.Marshal(map[string]interface{}{
			"received_date": req.ReceivedDate,
		})
		payment.Metadata = metadataJSON
	}

	if err := uc.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	err = uc.txm.WithinTx(ctx, func(tx pgx.Tx) error {
		if err := uc.paymentRepo.MarkTerminal(ctx, tx, payment.ID, domain.PaymentStatusSucceeded, &req.ReceiptReference, nil); err != nil {
			return err
		}
		if err := uc.ledger.Credit(ctx, tx, sponsorship.ChildID, req.Amount); err != nil {
			return err
		}
		return uc.sponsorshipRepo.RecomputeTotal(ctx, tx, sponsorship.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("record cash payment: %w", err)
	}
	uc.ledger.Invalidate(ctx, sponsorship.ChildID)

	uc.logger.Info("cash payment recorded",
		zap.String("payment_ref", payment.PaymentRef),
		zap.String("cash_ref", cashRef),
		zap.String("receipt", req.ReceiptReference),
		zap.Int64("organisation_id", req.OrganisationID),
		zap.String("amount", req.Amount.String()))

	return uc.paymentRepo.GetByPaymentRef(ctx, payment.PaymentRef)
}

// GetPayment serves the client's status polling. No ordering guarantee
// exists between a gateway webhook and this read; both see whatever is
// persisted now.
func (uc *PaymentUsecase) GetPayment(ctx context.Context, paymentRef string) (*domain.Payment, error) {
	return uc.paymentRepo.GetByPaymentRef(ctx, paymentRef)
}

func (uc *PaymentUsecase) callbackURL(method domain.PaymentMethod) string {
	switch method {
	case domain.MethodCard:
		return uc.baseCallbackURL + "/api/v1/payments/card/webhook"
	case domain.MethodPayPal:
		return uc.baseCallbackURL + "/api/v1/payments/paypal/capture"
	case domain.MethodWave:
		return uc.baseCallbackURL + "/api/v1/payments/wave/callback"
	default:
		return uc.baseCallbackURL + "/api/v1/payments/mobile-money/confirm"
	}
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByPaymentRef(ctx context.Context, paymentRef string) (*domain.Payment, error)
	// GetByExternalIDForUpdate locks the payment row for the duration of
	// tx. The lock is what serializes duplicate callback deliveries.
	GetByExternalIDForUpdate(ctx context.Context, tx pgx.Tx, externalTxID string) (*domain.Payment, error)
	SetExternalID(ctx context.Context, id int64, externalTxID string) error
	// MarkTerminal flips the payment to a terminal status inside tx.
	MarkTerminal(ctx context.Context, tx pgx.Tx, id int64, status domain.PaymentStatus, confirmationCode, errorMsg *string) error
	// MarkFailed records an adapter failure outside any tx; used when
	// initiation dies before the gateway ever assigned an external id.
	MarkFailed(ctx context.Context, id int64, errorMsg string) error
}

type paymentRepo struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) PaymentRepository {
	return &paymentRepo{db: db}
}

const paymentColumns = `
	id, payment_ref, sponsorship_id, sponsor_id, organisation_id,
	method, amount, status, external_transaction_id, confirmation_code,
	error_message, metadata, created_at, completed_at
`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID,
		&p.PaymentRef,
		&p.SponsorshipID,
		&p.SponsorID,
		&p.OrganisationID,
		&p.Method,
		&p.Amount,
		&p.Status,
		&p.ExternalTransactionID,
		&p.ConfirmationCode,
		&p.ErrorMessage,
		&p.Metadata,
		&p.CreatedAt,
		&p.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return &p, nil
}

func (r *paymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			payment_ref, sponsorship_id, sponsor_id, organisation_id,
			method, amount, status, external_transaction_id,
			confirmation_code, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		payment.PaymentRef,
		payment.SponsorshipID,
		payment.SponsorID,
		payment.OrganisationID,
		payment.Method,
		payment.Amount,
		payment.Status,
		payment.ExternalTransactionID,
		payment.ConfirmationCode,
		payment.Metadata,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return xerrors.ErrDuplicateExternalRef
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *paymentRepo) GetByPaymentRef(ctx context.Context, paymentRef string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_ref = $1`
	return scanPayment(r.db.QueryRow(ctx, query, paymentRef))
}

func (r *paymentRepo) GetByExternalIDForUpdate(ctx context.Context, tx pgx.Tx, externalTxID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE external_transaction_id = $1 FOR UPDATE`
	return scanPayment(tx.QueryRow(ctx, query, externalTxID))
}

func (r *paymentRepo) SetExternalID(ctx context.Context, id int64, externalTxID string) error {
	query := `
		UPDATE payments
		SET external_transaction_id = $1
		WHERE id = $2 AND external_transaction_id IS NULL
	`
	tag, err := r.db.Exec(ctx, query, externalTxID, id)
	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return xerrors.ErrDuplicateExternalRef
		}
		return fmt.Errorf("set external id: %w", err)
	}
	// Zero rows means the payment vanished or already carries an
	// external id. A silently unbound id would leave a payment no
	// callback can ever match.
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment %d missing or already bound to an external id", xerrors.ErrPaymentNotFound, id)
	}
	return nil
}

func (r *paymentRepo) MarkTerminal(ctx context.Context, tx pgx.Tx, id int64, status domain.PaymentStatus, confirmationCode, errorMsg *string) error {
	query := `
		UPDATE payments
		SET status = $1,
		    confirmation_code = COALESCE($2, confirmation_code),
		    error_message = COALESCE($3, error_message),
		    completed_at = NOW()
		WHERE id = $4 AND status = 'initiated'
	`
	tag, err := tx.Exec(ctx, query, status, confirmationCode, errorMsg, id)
	if err != nil {
		return fmt.Errorf("mark payment terminal: %w", err)
	}
	// The guard clause means a lost race shows up here rather than as
	// a silent double write.
	if tag.RowsAffected() == 0 {
		return xerrors.ErrPaymentNotFound
	}
	return nil
}

func (r *paymentRepo) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	query := `
		UPDATE payments
		SET status = 'failed', error_message = $1, completed_at = NOW()
		WHERE id = $2 AND status = 'initiated'
	`
	_, err := r.db.Exec(ctx, query, errorMsg, id)
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	return nil
}

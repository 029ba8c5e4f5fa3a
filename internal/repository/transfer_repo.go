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

type TransferRepository interface {
	Create(ctx context.Context, transfer *domain.FundTransfer) error
	GetByID(ctx context.Context, id int64) (*domain.FundTransfer, error)
	// GetByIDForUpdate locks the transfer row so two concurrent
	// decisions on the same transfer serialize.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.FundTransfer, error)
	// MarkDecided flips a pending transfer to its terminal status.
	MarkDecided(ctx context.Context, tx pgx.Tx, id int64, status domain.TransferStatus, decidedBy int64, comment *string) error
	ListPending(ctx context.Context) ([]*domain.FundTransfer, error)
}

type transferRepo struct {
	db *pgxpool.Pool
}

func NewTransferRepository(db *pgxpool.Pool) TransferRepository {
	return &transferRepo{db: db}
}

const transferColumns = `
	id, transfer_ref, source_child_id, target_child_id, organisation_id,
	decided_by, amount, reason, description, status, request_date,
	decision_date, approval_comment
`

func scanTransfer(row pgx.Row) (*domain.FundTransfer, error) {
	var t domain.FundTransfer
	err := row.Scan(
		&t.ID,
		&t.TransferRef,
		&t.SourceChildID,
		&t.TargetChildID,
		&t.OrganisationID,
		&t.DecidedBy,
		&t.Amount,
		&t.Reason,
		&t.Description,
		&t.Status,
		&t.RequestDate,
		&t.DecisionDate,
		&t.ApprovalComment,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrTransferNotFound
		}
		return nil, fmt.Errorf("scan transfer: %w", err)
	}
	return &t, nil
}

func (r *transferRepo) Create(ctx context.Context, transfer *domain.FundTransfer) error {
	query := `
		INSERT INTO fund_transfers (
			transfer_ref, source_child_id, target_child_id,
			organisation_id, amount, reason, description, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, request_date
	`
	err := r.db.QueryRow(ctx, query,
		transfer.TransferRef,
		transfer.SourceChildID,
		transfer.TargetChildID,
		transfer.OrganisationID,
		transfer.Amount,
		transfer.Reason,
		transfer.Description,
		transfer.Status,
	).Scan(&transfer.ID, &transfer.RequestDate)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (r *transferRepo) GetByID(ctx context.Context, id int64) (*domain.FundTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM fund_transfers WHERE id = $1`
	return scanTransfer(r.db.QueryRow(ctx, query, id))
}

func (r *transferRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.FundTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM fund_transfers WHERE id = $1 FOR UPDATE`
	return scanTransfer(tx.QueryRow(ctx, query, id))
}

func (r *transferRepo) MarkDecided(ctx context.Context, tx pgx.Tx, id int64, status domain.TransferStatus, decidedBy int64, comment *string) error {
	query := `
		UPDATE fund_transfers
		SET status = $1,
		    decided_by = $2,
		    approval_comment = $3,
		    decision_date = NOW()
		WHERE id = $4 AND status = 'pending'
	`
	tag, err := tx.Exec(ctx, query, status, decidedBy, comment, id)
	if err != nil {
		return fmt.Errorf("mark transfer decided: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrTransferDecided
	}
	return nil
}

func (r *transferRepo) ListPending(ctx context.Context) ([]*domain.FundTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM fund_transfers WHERE status = 'pending' ORDER BY request_date ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*domain.FundTransfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

type BalanceRepository interface {
	GetChild(ctx context.Context, childID int64) (*domain.Child, error)
	// GetChildForUpdate fetches the child with a pessimistic row lock
	// (SELECT FOR UPDATE) so concurrent credits and debits on the same
	// child serialize instead of losing updates.
	GetChildForUpdate(ctx context.Context, tx pgx.Tx, childID int64) (*domain.Child, error)
	// ApplyBalance writes the new balance and bumps the version counter.
	// Callers hold the row lock from GetChildForUpdate on the same tx.
	ApplyBalance(ctx context.Context, tx pgx.Tx, childID int64, newBalance decimal.Decimal) error
}

type balanceRepo struct {
	db *pgxpool.Pool
}

func NewBalanceRepository(db *pgxpool.Pool) BalanceRepository {
	return &balanceRepo{db: db}
}

const childColumns = `id, organisation_id, balance, balance_version, updated_at`

func scanChild(row pgx.Row) (*domain.Child, error) {
	var c domain.Child
	err := row.Scan(&c.ID, &c.OrganisationID, &c.Balance, &c.BalanceVersion, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrChildNotFound
		}
		return nil, fmt.Errorf("scan child: %w", err)
	}
	return &c, nil
}

func (r *balanceRepo) GetChild(ctx context.Context, childID int64) (*domain.Child, error) {
	query := `SELECT ` + childColumns + ` FROM children WHERE id = $1`
	return scanChild(r.db.QueryRow(ctx, query, childID))
}

func (r *balanceRepo) GetChildForUpdate(ctx context.Context, tx pgx.Tx, childID int64) (*domain.Child, error) {
	query := `SELECT ` + childColumns + ` FROM children WHERE id = $1 FOR UPDATE`
	return scanChild(tx.QueryRow(ctx, query, childID))
}

func (r *balanceRepo) ApplyBalance(ctx context.Context, tx pgx.Tx, childID int64, newBalance decimal.Decimal) error {
	query := `
		UPDATE children
		SET balance = $1,
		    balance_version = balance_version + 1,
		    updated_at = NOW()
		WHERE id = $2
	`
	tag, err := tx.Exec(ctx, query, newBalance, childID)
	if err != nil {
		// The children.balance CHECK (balance >= 0) is the database-side
		// backstop for the ledger invariant.
		return fmt.Errorf("apply balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrChildNotFound
	}
	return nil
}

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

type SponsorshipRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Sponsorship, error)
	// GetActiveByChild resolves the sponsorship currently funding a
	// child; used to find the sponsor entitled to decide a transfer.
	GetActiveByChild(ctx context.Context, childID int64) (*domain.Sponsorship, error)
	// RecomputeTotal refreshes total_amount from succeeded payments,
	// inside the same tx as the payment's terminal transition.
	RecomputeTotal(ctx context.Context, tx pgx.Tx, sponsorshipID int64) error
}

type sponsorshipRepo struct {
	db *pgxpool.Pool
}

func NewSponsorshipRepository(db *pgxpool.Pool) SponsorshipRepository {
	return &sponsorshipRepo{db: db}
}

const sponsorshipColumns = `id, sponsor_id, child_id, status, total_amount, start_date, end_date, end_reason`

func scanSponsorship(row pgx.Row) (*domain.Sponsorship, error) {
	var s domain.Sponsorship
	err := row.Scan(&s.ID, &s.SponsorID, &s.ChildID, &s.Status, &s.TotalAmount,
		&s.StartDate, &s.EndDate, &s.EndReason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan sponsorship: %w", err)
	}
	return &s, nil
}

func (r *sponsorshipRepo) GetByID(ctx context.Context, id int64) (*domain.Sponsorship, error) {
	query := `SELECT ` + sponsorshipColumns + ` FROM sponsorships WHERE id = $1`
	return scanSponsorship(r.db.QueryRow(ctx, query, id))
}

func (r *sponsorshipRepo) GetActiveByChild(ctx context.Context, childID int64) (*domain.Sponsorship, error) {
	query := `
		SELECT ` + sponsorshipColumns + `
		FROM sponsorships
		WHERE child_id = $1 AND status = 'active'
		ORDER BY start_date DESC
		LIMIT 1
	`
	return scanSponsorship(r.db.QueryRow(ctx, query, childID))
}

func (r *sponsorshipRepo) RecomputeTotal(ctx context.Context, tx pgx.Tx, sponsorshipID int64) error {
	query := `
		UPDATE sponsorships
		SET total_amount = COALESCE((
			SELECT SUM(amount) FROM payments
			WHERE sponsorship_id = $1 AND status = 'succeeded'
		), 0)
		WHERE id = $1
	`
	_, err := tx.Exec(ctx, query, sponsorshipID)
	if err != nil {
		return fmt.Errorf("recompute sponsorship total: %w", err)
	}
	return nil
}

package usecase

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/djibrilmaiga/eduka-backend/internal/cache"
	"github.com/djibrilmaiga/eduka-backend/internal/repository"
	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

// Ledger owns every mutation of a child's residual balance. All
// mutation goes through Credit and Debit, never direct assignment, so
// this is the single choke point for locking and the non-negativity
// invariant. Both operations require an open transaction: the balance
// write commits or rolls back together with the business event that
// triggered it.
type Ledger struct {
	balanceRepo repository.BalanceRepository
	cache       *cache.BalanceCache
	logger      *zap.Logger
}

func NewLedger(balanceRepo repository.BalanceRepository, balanceCache *cache.BalanceCache, logger *zap.Logger) *Ledger {
	return &Ledger{
		balanceRepo: balanceRepo,
		cache:       balanceCache,
		logger:      logger,
	}
}

// Credit increases the child's balance by amount inside tx.
func (l *Ledger) Credit(ctx context.Context, tx pgx.Tx, childID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: credit amount must be positive", xerrors.ErrInvalidRequest)
	}

	child, err := l.balanceRepo.GetChildForUpdate(ctx, tx, childID)
	if err != nil {
		return err
	}

	newBalance := child.Balance.Add(amount)
	if err := l.balanceRepo.ApplyBalance(ctx, tx, childID, newBalance); err != nil {
		return err
	}

	l.logger.Info("ledger credit",
		zap.Int64("child_id", childID),
		zap.String("amount", amount.String()),
		zap.String("new_balance", newBalance.String()))
	return nil
}

// Debit decreases the child's balance by amount inside tx. A debit
// that would push the balance negative fails with
// ErrInsufficientBalance and has no effect.
func (l *Ledger) Debit(ctx context.Context, tx pgx.Tx, childID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: debit amount must be positive", xerrors.ErrInvalidRequest)
	}

	child, err := l.balanceRepo.GetChildForUpdate(ctx, tx, childID)
	if err != nil {
		return err
	}

	if amount.GreaterThan(child.Balance) {
		return fmt.Errorf("%w: balance %s, requested %s",
			xerrors.ErrInsufficientBalance, child.Balance.String(), amount.String())
	}

	newBalance := child.Balance.Sub(amount)
	if err := l.balanceRepo.ApplyBalance(ctx, tx, childID, newBalance); err != nil {
		return err
	}

	l.logger.Info("ledger debit",
		zap.Int64("child_id", childID),
		zap.String("amount", amount.String()),
		zap.String("new_balance", newBalance.String()))
	return nil
}

// Transfer moves amount from one child to another inside tx. Both
// child rows are locked in ascending id order, whichever direction the
// funds flow, so two opposing transfers on the same pair cannot
// deadlock each other.
func (l *Ledger) Transfer(ctx context.Context, tx pgx.Tx, sourceID, targetID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: transfer amount must be positive", xerrors.ErrInvalidRequest)
	}
	if sourceID == targetID {
		return fmt.Errorf("%w: transfer source and target must differ", xerrors.ErrInvalidRequest)
	}

	first, second := sourceID, targetID
	if targetID < sourceID {
		first, second = targetID, sourceID
	}
	balances := make(map[int64]decimal.Decimal, 2)
	for _, childID := range [2]int64{first, second} {
		child, err := l.balanceRepo.GetChildForUpdate(ctx, tx, childID)
		if err != nil {
			return err
		}
		balances[childID] = child.Balance
	}

	if amount.GreaterThan(balances[sourceID]) {
		return fmt.Errorf("%w: balance %s, requested %s",
			xerrors.ErrInsufficientBalance, balances[sourceID].String(), amount.String())
	}

	if err := l.balanceRepo.ApplyBalance(ctx, tx, sourceID, balances[sourceID].Sub(amount)); err != nil {
		return err
	}
	if err := l.balanceRepo.ApplyBalance(ctx, tx, targetID, balances[targetID].Add(amount)); err != nil {
		return err
	}

	l.logger.Info("ledger transfer",
		zap.Int64("source_child_id", sourceID),
		zap.Int64("target_child_id", targetID),
		zap.String("amount", amount.String()))
	return nil
}

// Balance is the cache-aside read used by the polling endpoint.
func (l *Ledger) Balance(ctx context.Context, childID int64) (decimal.Decimal, error) {
	if l.cache != nil {
		if bal, ok := l.cache.Get(ctx, childID); ok {
			return bal, nil
		}
	}

	child, err := l.balanceRepo.GetChild(ctx, childID)
	if err != nil {
		return decimal.Zero, err
	}
	if l.cache != nil {
		l.cache.Set(ctx, childID, child.Balance)
	}
	return child.Balance, nil
}

// Invalidate drops cached balances after a committed mutation.
func (l *Ledger) Invalidate(ctx context.Context, childIDs ...int64) {
	if l.cache != nil && len(childIDs) > 0 {
		l.cache.Invalidate(ctx, childIDs...)
	}
}

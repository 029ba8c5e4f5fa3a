package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

// fakeStore backs all repository interfaces with in-memory maps so the
// usecases can be exercised without postgres. WithinTx snapshots the
// whole store and restores it when the closure fails, mirroring the
// all-or-nothing commit the real transaction gives us.
type fakeStore struct {
	mu sync.Mutex

	payments     map[int64]*domain.Payment
	children     map[int64]*domain.Child
	sponsorships map[int64]*domain.Sponsorship
	transfers    map[int64]*domain.FundTransfer

	nextPaymentID  int64
	nextTransferID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		payments:     make(map[int64]*domain.Payment),
		children:     make(map[int64]*domain.Child),
		sponsorships: make(map[int64]*domain.Sponsorship),
		transfers:    make(map[int64]*domain.FundTransfer),
	}
}

func (s *fakeStore) addChild(id, orgID int64, balance decimal.Decimal) {
	s.children[id] = &domain.Child{ID: id, OrganisationID: orgID, Balance: balance}
}

func (s *fakeStore) addSponsorship(id, sponsorID, childID int64, status domain.SponsorshipStatus) {
	s.sponsorships[id] = &domain.Sponsorship{
		ID:        id,
		SponsorID: sponsorID,
		ChildID:   childID,
		Status:    status,
		StartDate: time.Now(),
	}
}

func (s *fakeStore) balanceOf(childID int64) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.children[childID].Balance
}

// --- snapshotting ---

func (s *fakeStore) snapshot() *fakeStore {
	snap := newFakeStore()
	for k, v := range s.payments {
		c := *v
		snap.payments[k] = &c
	}
	for k, v := range s.children {
		c := *v
		snap.children[k] = &c
	}
	for k, v := range s.sponsorships {
		c := *v
		snap.sponsorships[k] = &c
	}
	for k, v := range s.transfers {
		c := *v
		snap.transfers[k] = &c
	}
	snap.nextPaymentID = s.nextPaymentID
	snap.nextTransferID = s.nextTransferID
	return snap
}

func (s *fakeStore) restore(snap *fakeStore) {
	s.payments = snap.payments
	s.children = snap.children
	s.sponsorships = snap.sponsorships
	s.transfers = snap.transfers
	s.nextPaymentID = snap.nextPaymentID
	s.nextTransferID = snap.nextTransferID
}

// TxManager

func (s *fakeStore) WithinTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// PaymentRepository

func (s *fakeStore) Create(ctx context.Context, payment *domain.Payment) error {
	if payment.ExternalTransactionID != nil {
		for _, p := range s.payments {
			if p.ExternalTransactionID != nil && *p.ExternalTransactionID == *payment.ExternalTransactionID {
				return xerrors.ErrDuplicateExternalRef
			}
		}
	}
	s.nextPaymentID++
	payment.ID = s.nextPaymentID
	payment.CreatedAt = time.Now()
	c := *payment
	s.payments[payment.ID] = &c
	return nil
}

func (s *fakeStore) GetByPaymentRef(ctx context.Context, paymentRef string) (*domain.Payment, error) {
	for _, p := range s.payments {
		if p.PaymentRef == paymentRef {
			c := *p
			return &c, nil
		}
	}
	return nil, xerrors.ErrPaymentNotFound
}

func (s *fakeStore) GetByExternalIDForUpdate(ctx context.Context, tx pgx.Tx, externalTxID string) (*domain.Payment, error) {
	for _, p := range s.payments {
		if p.ExternalTransactionID != nil && *p.ExternalTransactionID == externalTxID {
			c := *p
			return &c, nil
		}
	}
	return nil, xerrors.ErrPaymentNotFound
}

func (s *fakeStore) SetExternalID(ctx context.Context, id int64, externalTxID string) error {
	p, ok := s.payments[id]
	if !ok || p.ExternalTransactionID != nil {
		return xerrors.ErrPaymentNotFound
	}
	p.ExternalTransactionID = &externalTxID
	return nil
}

func (s *fakeStore) MarkTerminal(ctx context.Context, tx pgx.Tx, id int64, status domain.PaymentStatus, confirmationCode, errorMsg *string) error {
	p, ok := s.payments[id]
	if !ok || p.Status != domain.PaymentStatusInitiated {
		return xerrors.ErrPaymentNotFound
	}
	p.Status = status
	if confirmationCode != nil {
		p.ConfirmationCode = confirmationCode
	}
	if errorMsg != nil {
		p.ErrorMessage = errorMsg
	}
	now := time.Now()
	p.CompletedAt = &now
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	p, ok := s.payments[id]
	if !ok {
		return xerrors.ErrPaymentNotFound
	}
	if p.Status == domain.PaymentStatusInitiated {
		p.Status = domain.PaymentStatusFailed
		p.ErrorMessage = &errorMsg
		now := time.Now()
		p.CompletedAt = &now
	}
	return nil
}

// BalanceRepository

func (s *fakeStore) GetChild(ctx context.Context, childID int64) (*domain.Child, error) {
	c, ok := s.children[childID]
	if !ok {
		return nil, xerrors.ErrChildNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeStore) GetChildForUpdate(ctx context.Context, tx pgx.Tx, childID int64) (*domain.Child, error) {
	return s.GetChild(ctx, childID)
}

func (s *fakeStore) ApplyBalance(ctx context.Context, tx pgx.Tx, childID int64, newBalance decimal.Decimal) error {
	c, ok := s.children[childID]
	if !ok {
		return xerrors.ErrChildNotFound
	}
	c.Balance = newBalance
	c.BalanceVersion++
	c.UpdatedAt = time.Now()
	return nil
}

// SponsorshipRepository

func (s *fakeStore) GetByID(ctx context.Context, id int64) (*domain.Sponsorship, error) {
	sp, ok := s.sponsorships[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *sp
	return &cp, nil
}

func (s *fakeStore) GetActiveByChild(ctx context.Context, childID int64) (*domain.Sponsorship, error) {
	for _, sp := range s.sponsorships {
		if sp.ChildID == childID && sp.Status == domain.SponsorshipActive {
			cp := *sp
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *fakeStore) RecomputeTotal(ctx context.Context, tx pgx.Tx, sponsorshipID int64) error {
	sp, ok := s.sponsorships[sponsorshipID]
	if !ok {
		return xerrors.ErrNotFound
	}
	total := decimal.Zero
	for _, p := range s.payments {
		if p.SponsorshipID == sponsorshipID && p.Status == domain.PaymentStatusSucceeded {
			total = total.Add(p.Amount)
		}
	}
	sp.TotalAmount = total
	return nil
}

// TransferRepository

func (s *fakeStore) CreateTransfer(ctx context.Context, transfer *domain.FundTransfer) error {
	s.nextTransferID++
	transfer.ID = s.nextTransferID
	transfer.RequestDate = time.Now()
	c := *transfer
	s.transfers[transfer.ID] = &c
	return nil
}

func (s *fakeStore) GetTransferByID(ctx context.Context, id int64) (*domain.FundTransfer, error) {
	t, ok := s.transfers[id]
	if !ok {
		return nil, xerrors.ErrTransferNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.FundTransfer, error) {
	return s.GetTransferByID(ctx, id)
}

func (s *fakeStore) MarkDecided(ctx context.Context, tx pgx.Tx, id int64, status domain.TransferStatus, decidedBy int64, comment *string) error {
	t, ok := s.transfers[id]
	if !ok || t.Status != domain.TransferPending {
		return xerrors.ErrTransferDecided
	}
	t.Status = status
	t.DecidedBy = &decidedBy
	t.ApprovalComment = comment
	now := time.Now()
	t.DecisionDate = &now
	return nil
}

func (s *fakeStore) ListPending(ctx context.Context) ([]*domain.FundTransfer, error) {
	var out []*domain.FundTransfer
	for _, t := range s.transfers {
		if t.Status == domain.TransferPending {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// transferRepoAdapter reconciles the fakeStore method names with the
// TransferRepository interface (Create/GetByID collide with the
// payment methods on the same struct).
type transferRepoAdapter struct {
	s *fakeStore
}

func (a transferRepoAdapter) Create(ctx context.Context, t *domain.FundTransfer) error {
	return a.s.CreateTransfer(ctx, t)
}

func (a transferRepoAdapter) GetByID(ctx context.Context, id int64) (*domain.FundTransfer, error) {
	return a.s.GetTransferByID(ctx, id)
}

func (a transferRepoAdapter) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.FundTransfer, error) {
	return a.s.GetByIDForUpdate(ctx, tx, id)
}

func (a transferRepoAdapter) MarkDecided(ctx context.Context, tx pgx.Tx, id int64, status domain.TransferStatus, decidedBy int64, comment *string) error {
	return a.s.MarkDecided(ctx, tx, id, status, decidedBy, comment)
}

func (a transferRepoAdapter) ListPending(ctx context.Context) ([]*domain.FundTransfer, error) {
	return a.s.ListPending(ctx)
}

func testLogger() *zap.Logger { return zap.NewNop() }

func testLedger(s *fakeStore) *Ledger {
	return NewLedger(s, nil, testLogger())
}

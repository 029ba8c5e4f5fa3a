package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/internal/gateway"
	"github.com/djibrilmaiga/eduka-backend/pkg/id"
	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

// stubGateway lets tests script the adapter's behavior.
type stubGateway struct {
	name    string
	result  *gateway.StartResult
	err     error
	started int
	onStart func(payment *domain.Payment)
}

func (g *stubGateway) Name() string { return g.name }

func (g *stubGateway) Start(ctx context.Context, payment *domain.Payment, fields gateway.StartFields) (*gateway.StartResult, error) {
	g.started++
	if g.onStart != nil {
		g.onStart(payment)
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func (g *stubGateway) TranslateCallback(providerStatus string) gateway.CallbackOutcome {
	return gateway.OutcomeUnknown
}

func newPaymentUC(store *fakeStore, registry *gateway.Registry) *PaymentUsecase {
	return NewPaymentUsecase(
		store, store, store,
		testLedger(store),
		store,
		registry,
		id.NewGenerator(),
		"https://api.test",
		testLogger(),
	)
}

func TestInitiatePaymentOpensGatewayTransaction(t *testing.T) {
	store := newFakeStore()
	store.addChild(1, 10, dec("0"))
	store.addSponsorship(100, 50, 1, domain.SponsorshipActive)

	stub := &stubGateway{
		name:   "orange_money",
		result: &gateway.StartResult{ExternalID: "OM-42"},
	}
	registry := gateway.NewRegistry()
	registry.Register(domain.MethodOrangeMoney, stub)

	uc := newPaymentUC(store, registry)
	handle, err := uc.InitiatePayment(context.Background(), &domain.InitiatePaymentRequest{
		SponsorshipID: 100,
		SponsorID:     50,
		Amount:        dec("5000"),
		Method:        "orange_money",
		PhoneNumber:   "76123456",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stub.started)
	assert.Equal(t, domain.PaymentStatusInitiated, handle.Status)
	assert.True(t, strings.HasPrefix(handle.PaymentRef, "PAY-"))

	p, err := store.GetByPaymentRef(context.Background(), handle.PaymentRef)
	require.NoError(t, err)
	require.NotNil(t, p.ExternalTransactionID)
	assert.Equal(t, "OM-42", *p.ExternalTransactionID)
	assert.True(t, store.balanceOf(1).IsZero(), "no credit before the callback")
}

func TestInitiatePaymentSurfacesLostExternalIDBind(t *testing.T) {
	store := newFakeStore()
	store.addChild(1, 10, dec("0"))
	store.addSponsorship(100, 50, 1, domain.SponsorshipActive)

	// The payment row disappears between creation and the external id
	// bind. Initiation must fail loudly, not return a handle for a
	// payment no callback can resolve.
	stub := &stubGateway{
		name:   "orange_money",
		result: &gateway.StartResult{ExternalID: "OM-77"},
		onStart: func(p *domain.Payment) {
			delete(store.payments, p.ID)
		},
	}
	registry := gateway.NewRegistry()
	registry.Register(domain.MethodOrangeMoney, stub)

	uc := newPaymentUC(store, registry)
	_, err := uc.InitiatePayment(context.Background(), &domain.InitiatePaymentRequest{
		SponsorshipID: 100,
		SponsorID:     50,
		Amount:        dec("5000"),
		Method:        "orange_money",
		PhoneNumber:   "76123456",
	})
	require.ErrorIs(t, err, xerrors.ErrPaymentNotFound)
}

func TestInitiatePaymentReturnsRedirectForCard(t *testing.T) {
	store := newFakeStore()
	store.addChild(1, 10, dec("0"))
	store.addSponsorship(100, 50, 1, domain.SponsorshipActive)

	registry := gateway.NewRegistry()
	registry.Register(domain.MethodCard, &stubGateway{
		name:   "card",
		result: &gateway.StartResult{ExternalID: "ch_1", RedirectURL: "https://3ds.example/auth"},
	})

	uc := newPaymentUC(store, registry)
	handle, err := uc.InitiatePayment(context.Background(), &domain.InitiatePaymentRequest{
		SponsorshipID: 100,
		SponsorID:     50,
		Amount:        dec("25.50"),
		Method:        "card",
		CardToken:     "tok_abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://3ds.example/auth", handle.RedirectURL)
}

func TestInitiatePaymentGatewayFailureMarksPaymentFailed(t *testing.T) {
	store := newFakeStore()
	store.addChild(1, 10, dec("0"))
	store.addSponsorship(100, 50, 1, domain.SponsorshipActive)

	registry := gateway.NewRegistry()
	registry.Register(domain.MethodWave, &stubGateway{
		name: "wave",
		err:  &xerrors.GatewayError{Provider: "wave", Msg: "session creation returned no id"},
	})

	uc := newPaymentUC(store, registry)
	_, err := uc.InitiatePayment(context.Background(), &domain.InitiatePaymentRequest{
		SponsorshipID: 100,
		SponsorID:     50,
		Amount:        dec("1000"),
		Method:        "wave",
		PhoneNumber:   "771234567",
	})
	require.Error(t, err)
	assert.Equal(t, "gateway_error", xerrors.Kind(err))

	// The failure is recorded on the payment record.
	var failed *domain.Payment
	for _, p := range store.payments {
		failed = p
	}
	require.NotNil(t, failed)
	assert.Equal(t, domain.PaymentStatusFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Contains(t, *failed.ErrorMessage, "session creation returned no id")
}

func TestInitiatePaymentRejectsEndedSponsorship(t *testing.T) {
	store := newFakeStore()
	store.addChild(1, 10, dec("0"))
	store.addSponsorship(100, 50, 1, domain.SponsorshipEnded)

	registry := gateway.NewRegistry()
	registry.Register(domain.MethodOrangeMoney, &stubGateway{name: "orange_money"})

	uc := newPaymentUC(store, registry)
	_, err := uc.InitiatePayment(context.Background(), &domain.InitiatePaymentRequest{
		SponsorshipID: 100,
		SponsorID:     50,
		Amount:        dec("5000"),
		Method:        "orange_money",
		PhoneNumber:   "76123456",
	})
	assert.ErrorIs(t, err, xerrors.ErrSponsorshipEnded)
	assert.Empty(t, store.payments, "no payment record for a refused initiation")
}

func TestInitiatePaymentRejectsCashMethod(t *testing.T) {
	store := newFakeStore()
	uc := newPaymentUC(store, gateway.NewRegistry())

	_, err := uc.InitiatePayment(context.Background(), &domain.InitiatePaymentRequest{
		SponsorshipID: 100,
		SponsorID:     50,
		Amount:        dec("5000"),
		Method:        "cash",
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidRequest)
}

// Scenario: an organisation records a cash receipt and the payment is
// immediately succeeded with a cash-prefixed external id and the
// receipt reference as confirmation code.
func TestRecordCashPaymentSucceedsSynchronously(t *testing.T) {
	store := newFakeStore()
	store.addChild(1, 10, dec("0"))
	store.addSponsorship(100, 50, 1, domain.SponsorshipActive)

	uc := newPaymentUC(store, gateway.NewRegistry())
	payment, err := uc.RecordCashPayment(context.Background(), &domain.RecordCashRequest{
		SponsorshipID:    100,
		OrganisationID:   10,
		Amount:           dec("5000"),
		ReceiptReference: "REC-2024-001",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusSucceeded, payment.Status)
	require.NotNil(t, payment.ExternalTransactionID)
	assert.True(t, strings.HasPrefix(*payment.ExternalTransactionID, "CASH-"))
	require.NotNil(t, payment.ConfirmationCode)
	assert.Equal(t, "REC-2024-001", *payment.ConfirmationCode)
	require.NotNil(t, payment.OrganisationID)
	assert.Equal(t, int64(10), *payment.OrganisationID)

	assert.True(t, store.balanceOf(1).Equal(dec("5000")), "cash credits the child immediately")
}

func TestRecordCashPaymentRejectsForeignOrganisation(t *testing.T) {
	store := newFakeStore()
	store.addChild(1, 10, dec("0"))
	store.addSponsorship(100, 50, 1, domain.SponsorshipActive)

	uc := newPaymentUC(store, gateway.NewRegistry())
	_, err := uc.RecordCashPayment(context.Background(), &domain.RecordCashRequest{
		SponsorshipID:    100,
		OrganisationID:   99,
		Amount:           dec("5000"),
		ReceiptReference: "REC-1",
	})
	assert.ErrorIs(t, err, xerrors.ErrChildNotInOrg)
	assert.True(t, store.balanceOf(1).IsZero())
}

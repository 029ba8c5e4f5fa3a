package gateway

import (
	"context"

	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

// CallbackOutcome is the canonical status vocabulary shared by all
// gateways. Each provider speaks its own dialect; adapters translate
// before the orchestrator ever sees it.
type CallbackOutcome string

const (
	OutcomeSucceeded CallbackOutcome = "succeeded"
	OutcomeFailed    CallbackOutcome = "failed"
	// OutcomeUnknown means the provider sent vocabulary the adapter does
	// not recognize. It never resolves a payment; the payment stays
	// initiated until a recognizable callback arrives.
	OutcomeUnknown CallbackOutcome = "unknown"
)

// StartFields carries the method-specific inputs from the initiate
// request to the adapter.
type StartFields struct {
	PhoneNumber string
	CardToken   string
	ReturnURL   string
}

// StartResult is what an adapter reports after opening the external
// transaction. RedirectURL is set by card and wallet-redirect
// adapters; mobile-money adapters push a prompt to the payer's phone
// instead and leave it empty.
type StartResult struct {
	ExternalID  string
	RedirectURL string
}

// Gateway encapsulates one external payment provider's request,
// response and callback vocabulary.
type Gateway interface {
	Name() string
	Start(ctx context.Context, payment *domain.Payment, fields StartFields) (*StartResult, error)
	TranslateCallback(providerStatus string) CallbackOutcome
}

// Registry maps a payment method to its adapter so new providers are
// added without touching the orchestrator.
type Registry struct {
	gateways map[domain.PaymentMethod]Gateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: make(map[domain.PaymentMethod]Gateway)}
}

func (r *Registry) Register(method domain.PaymentMethod, gw Gateway) {
	r.gateways[method] = gw
}

func (r *Registry) Get(method domain.PaymentMethod) (Gateway, error) {
	gw, ok := r.gateways[method]
	if !ok {
		return nil, xerrors.ErrUnsupportedMethod
	}
	return gw, nil
}

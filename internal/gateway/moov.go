package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/djibrilmaiga/eduka-backend/config"
	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

// MoovMoneyGateway pushes a payment prompt to a Moov Money wallet.
type MoovMoneyGateway struct {
	cfg        config.MobileMoneyConfig
	phone      PhoneSpec
	httpClient *http.Client
}

func NewMoovMoneyGateway(cfg config.MobileMoneyConfig) *MoovMoneyGateway {
	return &MoovMoneyGateway{
		cfg: cfg,
		phone: PhoneSpec{
			CountryCode: cfg.CountryCode,
			Prefixes:    cfg.Prefixes,
			LocalDigits: cfg.LocalDigits,
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *MoovMoneyGateway) Name() string { return "moov_money" }

type moovPushRequest struct {
	Msisdn      string `json:"msisdn"`
	Amount      string `json:"amount"`
	Reference   string `json:"reference"`
	Description string `json:"description"`
	CallbackURL string `json:"callback_url"`
}

type moovPushResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Description   string `json:"description"`
}

func (g *MoovMoneyGateway) Start(ctx context.Context, payment *domain.Payment, fields StartFields) (*StartResult, error) {
	msisdn, err := g.phone.Normalize(fields.PhoneNumber)
	if err != nil {
		return nil, err
	}

	req := moovPushRequest{
		Msisdn:      msisdn,
		Amount:      payment.Amount.StringFixed(0),
		Reference:   payment.PaymentRef,
		Description: "Parrainage " + payment.PaymentRef,
		CallbackURL: fields.ReturnURL,
	}

	var resp moovPushResponse
	url := g.cfg.BaseURL + "/v2/merchant/push"
	headers := map[string]string{"X-API-Key": g.cfg.APIKey}
	if err := postJSON(ctx, g.httpClient, g.Name(), url, headers, req, &resp); err != nil {
		return nil, err
	}

	if resp.TransactionID == "" {
		return nil, &xerrors.GatewayError{Provider: g.Name(), Msg: resp.Description}
	}

	return &StartResult{ExternalID: resp.TransactionID}, nil
}

func (g *MoovMoneyGateway) TranslateCallback(providerStatus string) CallbackOutcome {
	switch providerStatus {
	case "SUCCESSFUL":
		return OutcomeSucceeded
	case "FAILED", "CANCELLED", "TIMEOUT":
		return OutcomeFailed
	default:
		return OutcomeUnknown
	}
}

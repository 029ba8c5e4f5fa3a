package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/djibrilmaiga/eduka-backend/config"
	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

// WaveGateway opens a Wave checkout session tied to the payer's
// wallet number and waits for the session callback.
type WaveGateway struct {
	cfg        config.MobileMoneyConfig
	phone      PhoneSpec
	httpClient *http.Client
}

func NewWaveGateway(cfg config.MobileMoneyConfig) *WaveGateway {
	return &WaveGateway{
		cfg: cfg,
		phone: PhoneSpec{
			CountryCode: cfg.CountryCode,
			Prefixes:    cfg.Prefixes,
			LocalDigits: cfg.LocalDigits,
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *WaveGateway) Name() string { return "wave" }

type waveSessionRequest struct {
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	ClientReference string `json:"client_reference"`
	Mobile          string `json:"mobile"`
	ErrorURL        string `json:"error_url,omitempty"`
	SuccessURL      string `json:"success_url,omitempty"`
}

type waveSessionResponse struct {
	ID            string `json:"id"`
	PaymentStatus string `json:"payment_status"`
	WaveLaunchURL string `json:"wave_launch_url"`
}

func (g *WaveGateway) Start(ctx context.Context, payment *domain.Payment, fields StartFields) (*StartResult, error) {
	msisdn, err := g.phone.Normalize(fields.PhoneNumber)
	if err != nil {
		return nil, err
	}

	req := waveSessionRequest{
		Amount:          payment.Amount.StringFixed(0),
		Currency:        "XOF",
		ClientReference: payment.PaymentRef,
		Mobile:          msisdn,
	}

	var resp waveSessionResponse
	url := g.cfg.BaseURL + "/v1/checkout/sessions"
	headers := map[string]string{"Authorization": "Bearer " + g.cfg.APIKey}
	if err := postJSON(ctx, g.httpClient, g.Name(), url, headers, req, &resp); err != nil {
		return nil, err
	}

	if resp.ID == "" {
		return nil, &xerrors.GatewayError{Provider: g.Name(), Msg: "session creation returned no id"}
	}

	return &StartResult{ExternalID: resp.ID}, nil
}

func (g *WaveGateway) TranslateCallback(providerStatus string) CallbackOutcome {
	switch providerStatus {
	case "succeeded", "complete":
		return OutcomeSucceeded
	case "failed", "cancelled":
		return OutcomeFailed
	default:
		return OutcomeUnknown
	}
}

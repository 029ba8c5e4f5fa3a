package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/djibrilmaiga/eduka-backend/config"
	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

// CardGateway charges tokenized cards through the card processor. The
// processor returns a 3-D Secure authentication URL the client must
// visit; the final outcome arrives on the signed webhook.
type CardGateway struct {
	cfg        config.CardConfig
	httpClient *http.Client
}

func NewCardGateway(cfg config.CardConfig) *CardGateway {
	return &CardGateway{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *CardGateway) Name() string { return "card" }

type cardChargeRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	CardToken   string `json:"card_token"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url"`
	ReturnURL   string `json:"return_url,omitempty"`
}

type cardChargeResponse struct {
	ChargeID          string `json:"charge_id"`
	Status            string `json:"status"`
	AuthenticationURL string `json:"authentication_url"`
	Message           string `json:"message"`
}

func (g *CardGateway) Start(ctx context.Context, payment *domain.Payment, fields StartFields) (*StartResult, error) {
	if fields.CardToken == "" {
		return nil, fmt.Errorf("%w: card_token is required", xerrors.ErrInvalidRequest)
	}

	req := cardChargeRequest{
		Amount:      payment.Amount.StringFixed(2),
		Currency:    "XOF",
		CardToken:   fields.CardToken,
		Reference:   payment.PaymentRef,
		CallbackURL: fields.ReturnURL,
		ReturnURL:   fields.ReturnURL,
	}

	var resp cardChargeResponse
	url := g.cfg.BaseURL + "/v1/charges"
	headers := map[string]string{"Authorization": "Bearer " + g.cfg.APIKey}
	if err := postJSON(ctx, g.httpClient, g.Name(), url, headers, req, &resp); err != nil {
		return nil, err
	}

	if resp.ChargeID == "" {
		return nil, &xerrors.GatewayError{Provider: g.Name(), Msg: resp.Message}
	}

	return &StartResult{
		ExternalID:  resp.ChargeID,
		RedirectURL: resp.AuthenticationURL,
	}, nil
}

func (g *CardGateway) TranslateCallback(providerStatus string) CallbackOutcome {
	switch providerStatus {
	case "succeeded", "captured":
		return OutcomeSucceeded
	case "failed", "declined", "canceled":
		return OutcomeFailed
	default:
		return OutcomeUnknown
	}
}

// VerifySignature checks the webhook body against the X-Signature
// header (hex HMAC-SHA256 keyed with the shared webhook secret).
func (g *CardGateway) VerifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(g.cfg.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

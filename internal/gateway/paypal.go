package gateway

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/djibrilmaiga/eduka-backend/config"
	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

// PayPalGateway creates a PayPal order and hands the payer's approval
// link back to the client. The capture webhook settles the payment.
type PayPalGateway struct {
	cfg        config.PayPalConfig
	httpClient *http.Client
}

func NewPayPalGateway(cfg config.PayPalConfig) *PayPalGateway {
	return &PayPalGateway{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *PayPalGateway) Name() string { return "paypal" }

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalOrderRequest struct {
	Intent        string `json:"intent"`
	PurchaseUnits []struct {
		ReferenceID string       `json:"reference_id"`
		Amount      paypalAmount `json:"amount"`
	} `json:"purchase_units"`
}

type paypalOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

func (g *PayPalGateway) Start(ctx context.Context, payment *domain.Payment, fields StartFields) (*StartResult, error) {
	req := paypalOrderRequest{Intent: "CAPTURE"}
	req.PurchaseUnits = append(req.PurchaseUnits, struct {
		ReferenceID string       `json:"reference_id"`
		Amount      paypalAmount `json:"amount"`
	}{
		ReferenceID: payment.PaymentRef,
		Amount: paypalAmount{
			CurrencyCode: "EUR",
			Value:        payment.Amount.StringFixed(2),
		},
	})

	basic := base64.StdEncoding.EncodeToString([]byte(g.cfg.ClientID + ":" + g.cfg.ClientSecret))
	headers := map[string]string{"Authorization": "Basic " + basic}

	var resp paypalOrderResponse
	url := g.cfg.BaseURL + "/v2/checkout/orders"
	if err := postJSON(ctx, g.httpClient, g.Name(), url, headers, req, &resp); err != nil {
		return nil, err
	}

	if resp.ID == "" {
		return nil, &xerrors.GatewayError{Provider: g.Name(), Msg: "order creation returned no id"}
	}

	var approveURL string
	for _, link := range resp.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			approveURL = link.Href
			break
		}
	}

	return &StartResult{
		ExternalID:  resp.ID,
		RedirectURL: approveURL,
	}, nil
}

// PayPal capture vocabulary. "APPROVED" is deliberately unknown: the
// payer approved the order but nothing was captured yet, so the
// payment must not resolve on it.
func (g *PayPalGateway) TranslateCallback(providerStatus string) CallbackOutcome {
	switch providerStatus {
	case "COMPLETED":
		return OutcomeSucceeded
	case "DECLINED", "VOIDED", "DENIED":
		return OutcomeFailed
	default:
		return OutcomeUnknown
	}
}

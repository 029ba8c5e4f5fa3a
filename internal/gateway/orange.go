package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/djibrilmaiga/eduka-backend/config"
	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

// OrangeMoneyGateway pushes a USSD payment prompt to the payer's
// Orange Money wallet. There is no redirect; resolution comes purely
// from the provider callback.
type OrangeMoneyGateway struct {
	cfg        config.MobileMoneyConfig
	phone      PhoneSpec
	httpClient *http.Client
}

func NewOrangeMoneyGateway(cfg config.MobileMoneyConfig) *OrangeMoneyGateway {
	return &OrangeMoneyGateway{
		cfg: cfg,
		phone: PhoneSpec{
			CountryCode: cfg.CountryCode,
			Prefixes:    cfg.Prefixes,
			LocalDigits: cfg.LocalDigits,
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *OrangeMoneyGateway) Name() string { return "orange_money" }

type orangePaymentRequest struct {
	MerchantKey string `json:"merchant_key"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
	Subscriber  string `json:"subscriber_msisdn"`
	NotifURL    string `json:"notif_url"`
}

type orangePaymentResponse struct {
	Status  string `json:"status"`
	PayToken string `json:"pay_token"`
	Message string `json:"message"`
}

func (g *OrangeMoneyGateway) Start(ctx context.Context, payment *domain.Payment, fields StartFields) (*StartResult, error) {
	msisdn, err := g.phone.Normalize(fields.PhoneNumber)
	if err != nil {
		return nil, err
	}

	req := orangePaymentRequest{
		MerchantKey: g.cfg.APIKey,
		Amount:      payment.Amount.StringFixed(0),
		Currency:    "XOF",
		OrderID:     payment.PaymentRef,
		Subscriber:  msisdn,
		NotifURL:    fields.ReturnURL,
	}

	var resp orangePaymentResponse
	url := g.cfg.BaseURL + "/v1/webpayment"
	headers := map[string]string{"Authorization": "Bearer " + g.cfg.APISecret}
	if err := postJSON(ctx, g.httpClient, g.Name(), url, headers, req, &resp); err != nil {
		return nil, err
	}

	if resp.PayToken == "" {
		msg := resp.Message
		if msg == "" {
			msg = fmt.Sprintf("push rejected with status %q", resp.Status)
		}
		return nil, &xerrors.GatewayError{Provider: g.Name(), Msg: msg}
	}

	return &StartResult{ExternalID: resp.PayToken}, nil
}

func (g *OrangeMoneyGateway) TranslateCallback(providerStatus string) CallbackOutcome {
	switch providerStatus {
	case "SUCCESS", "SUCCESSFULL": // the provider really spells it with two Ls
		return OutcomeSucceeded
	case "FAILED", "EXPIRED":
		return OutcomeFailed
	default:
		return OutcomeUnknown
	}
}

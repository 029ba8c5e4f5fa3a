package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/djibrilmaiga/eduka-backend/config"
	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/internal/gateway"
)

const testWebhookSecret = "whsec_test"

type confirmCall struct {
	externalTxID     string
	outcome          gateway.CallbackOutcome
	confirmationCode *string
	errorMsg         *string
}

// stubConfirmer records every confirmation the routes hand off.
type stubConfirmer struct {
	calls []confirmCall
	err   error
}

func (c *stubConfirmer) ConfirmPayment(ctx context.Context, externalTxID string, outcome gateway.CallbackOutcome, confirmationCode *string, errorMsg *string) error {
	c.calls = append(c.calls, confirmCall{
		externalTxID:     externalTxID,
		outcome:          outcome,
		confirmationCode: confirmationCode,
		errorMsg:         errorMsg,
	})
	return c.err
}

func newCallbackHandlerForTest(confirmer *stubConfirmer) *CallbackHandler {
	card := gateway.NewCardGateway(config.CardConfig{WebhookSecret: testWebhookSecret})
	mmCfg := config.MobileMoneyConfig{CountryCode: "+223", Prefixes: []string{"7", "9"}, LocalDigits: 8}

	registry := gateway.NewRegistry()
	registry.Register(domain.MethodCard, card)
	registry.Register(domain.MethodPayPal, gateway.NewPayPalGateway(config.PayPalConfig{}))
	registry.Register(domain.MethodOrangeMoney, gateway.NewOrangeMoneyGateway(mmCfg))
	registry.Register(domain.MethodMoovMoney, gateway.NewMoovMoneyGateway(mmCfg))
	registry.Register(domain.MethodWave, gateway.NewWaveGateway(mmCfg))

	return NewCallbackHandler(confirmer, registry, card, zap.NewNop())
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCardWebhookRejectsBadSignature(t *testing.T) {
	confirmer := &stubConfirmer{}
	h := newCallbackHandlerForTest(confirmer)

	body := []byte(`{"charge_id":"ch_1","status":"succeeded"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/card/webhook", bytes.NewReader(body))
	req.Header.Set("X-Signature", "deadbeef")
	rec := httptest.NewRecorder()

	h.HandleCardWebhook(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, confirmer.calls, "an unauthenticated webhook must not reach the usecase")
}

func TestCardWebhookValidSignatureConfirms(t *testing.T) {
	confirmer := &stubConfirmer{}
	h := newCallbackHandlerForTest(confirmer)

	body := []byte(`{"charge_id":"ch_1","status":"succeeded","receipt":"RCPT-9"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/card/webhook", bytes.NewReader(body))
	req.Header.Set("X-Signature", signBody(body))
	rec := httptest.NewRecorder()

	h.HandleCardWebhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, confirmer.calls, 1)
	call := confirmer.calls[0]
	assert.Equal(t, "ch_1", call.externalTxID)
	assert.Equal(t, gateway.OutcomeSucceeded, call.outcome)
	require.NotNil(t, call.confirmationCode)
	assert.Equal(t, "RCPT-9", *call.confirmationCode)
}

func TestCardWebhookFailureStatusTranslates(t *testing.T) {
	confirmer := &stubConfirmer{}
	h := newCallbackHandlerForTest(confirmer)

	body := []byte(`{"charge_id":"ch_2","status":"declined","failure_message":"card declined"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/card/webhook", bytes.NewReader(body))
	req.Header.Set("X-Signature", signBody(body))
	rec := httptest.NewRecorder()

	h.HandleCardWebhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, confirmer.calls, 1)
	assert.Equal(t, gateway.OutcomeFailed, confirmer.calls[0].outcome)
	require.NotNil(t, confirmer.calls[0].errorMsg)
	assert.Equal(t, "card declined", *confirmer.calls[0].errorMsg)
}

func TestCardWebhookRejectsMalformedPayload(t *testing.T) {
	confirmer := &stubConfirmer{}
	h := newCallbackHandlerForTest(confirmer)

	// Signed, so authentication passes; the payload itself is bad.
	for _, body := range [][]byte{
		[]byte(`not json`),
		[]byte(`{"status":"succeeded"}`),
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/card/webhook", bytes.NewReader(body))
		req.Header.Set("X-Signature", signBody(body))
		rec := httptest.NewRecorder()

		h.HandleCardWebhook(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.Empty(t, confirmer.calls)
}

func TestPayPalCaptureRequiresOrderID(t *testing.T) {
	confirmer := &stubConfirmer{}
	h := newCallbackHandlerForTest(confirmer)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/paypal/capture",
		strings.NewReader(`{"status":"COMPLETED"}`))
	rec := httptest.NewRecorder()

	h.HandlePayPalCapture(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, confirmer.calls)
}

func TestPayPalCaptureCompletedConfirms(t *testing.T) {
	confirmer := &stubConfirmer{}
	h := newCallbackHandlerForTest(confirmer)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/paypal/capture",
		strings.NewReader(`{"order_id":"ORD-1","capture_id":"CAP-1","status":"COMPLETED"}`))
	rec := httptest.NewRecorder()

	h.HandlePayPalCapture(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, confirmer.calls, 1)
	assert.Equal(t, "ORD-1", confirmer.calls[0].externalTxID)
	assert.Equal(t, gateway.OutcomeSucceeded, confirmer.calls[0].outcome)
}

func TestWaveCallbackTranslatesFailure(t *testing.T) {
	confirmer := &stubConfirmer{}
	h := newCallbackHandlerForTest(confirmer)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/wave/callback",
		strings.NewReader(`{"id":"cos-1","payment_status":"cancelled","last_payment_error":"payer cancelled"}`))
	rec := httptest.NewRecorder()

	h.HandleWaveCallback(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, confirmer.calls, 1)
	assert.Equal(t, gateway.OutcomeFailed, confirmer.calls[0].outcome)
}

func TestMobileMoneyConfirmRejectsForeignProviders(t *testing.T) {
	confirmer := &stubConfirmer{}
	h := newCallbackHandlerForTest(confirmer)

	// Only the two push-payment operators may use this route.
	for _, provider := range []string{"wave", "card", "mpesa", ""} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/mobile-money/confirm",
			strings.NewReader(`{"provider":"`+provider+`","transaction_id":"MM-1","status":"SUCCESSFUL"}`))
		rec := httptest.NewRecorder()

		h.HandleMobileMoneyConfirm(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "provider %q", provider)
	}
	assert.Empty(t, confirmer.calls)
}

func TestMobileMoneyConfirmDispatchesToNamedProvider(t *testing.T) {
	confirmer := &stubConfirmer{}
	h := newCallbackHandlerForTest(confirmer)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/mobile-money/confirm",
		strings.NewReader(`{"provider":"orange_money","transaction_id":"omtok_7","status":"SUCCESSFULL"}`))
	rec := httptest.NewRecorder()

	h.HandleMobileMoneyConfirm(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, confirmer.calls, 1)
	assert.Equal(t, "omtok_7", confirmer.calls[0].externalTxID)
	assert.Equal(t, gateway.OutcomeSucceeded, confirmer.calls[0].outcome)
}

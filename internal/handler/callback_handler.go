package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/internal/gateway"
	"github.com/djibrilmaiga/eduka-backend/pkg/response"
	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

// paymentConfirmer is the slice of the callback usecase the webhook
// routes need.
type paymentConfirmer interface {
	ConfirmPayment(ctx context.Context, externalTxID string, outcome gateway.CallbackOutcome, confirmationCode *string, errorMsg *string) error
}

// CallbackHandler terminates the provider-facing webhook routes. Each
// route authenticates or sanity-checks the sender, extracts the
// external transaction id and the provider's status vocabulary, has
// the owning adapter translate it, then hands off to ConfirmPayment.
type CallbackHandler struct {
	callbackUC paymentConfirmer
	registry   *gateway.Registry
	card       *gateway.CardGateway
	logger     *zap.Logger
}

func NewCallbackHandler(callbackUC paymentConfirmer, registry *gateway.Registry, card *gateway.CardGateway, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{
		callbackUC: callbackUC,
		registry:   registry,
		card:       card,
		logger:     logger,
	}
}

type cardWebhookPayload struct {
	ChargeID       string `json:"charge_id"`
	Status         string `json:"status"`
	Receipt        string `json:"receipt"`
	FailureMessage string `json:"failure_message"`
}

// HandleCardWebhook handles POST /payments/card/webhook. The card
// processor signs the raw body; an invalid signature is rejected
// before anything is looked up.
func (h *CallbackHandler) HandleCardWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, h.logger, xerrors.ErrInvalidRequest)
		return
	}

	if !h.card.VerifySignature(body, r.Header.Get("X-Signature")) {
		h.logger.Warn("card webhook with bad signature", zap.String("remote_addr", r.RemoteAddr))
		response.Error(w, http.StatusUnauthorized, "bad_signature", "signature verification failed")
		return
	}

	var payload cardWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.ChargeID == "" {
		writeError(w, h.logger, xerrors.ErrInvalidRequest)
		return
	}

	h.confirm(w, r, domain.MethodCard, payload.ChargeID, payload.Status, payload.Receipt, payload.FailureMessage)
}

type paypalCapturePayload struct {
	OrderID   string `json:"order_id"`
	CaptureID string `json:"capture_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
}

// HandlePayPalCapture handles POST /payments/paypal/capture.
func (h *CallbackHandler) HandlePayPalCapture(w http.ResponseWriter, r *http.Request) {
	var payload paypalCapturePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.OrderID == "" {
		writeError(w, h.logger, xerrors.ErrInvalidRequest)
		return
	}

	h.confirm(w, r, domain.MethodPayPal, payload.OrderID, payload.Status, payload.CaptureID, payload.Reason)
}

type waveCallbackPayload struct {
	ID            string `json:"id"`
	PaymentStatus string `json:"payment_status"`
	TransactionID string `json:"transaction_id"`
	LastError     string `json:"last_payment_error"`
}

// HandleWaveCallback handles POST /payments/wave/callback.
func (h *CallbackHandler) HandleWaveCallback(w http.ResponseWriter, r *http.Request) {
	var payload waveCallbackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ID == "" {
		writeError(w, h.logger, xerrors.ErrInvalidRequest)
		return
	}

	h.confirm(w, r, domain.MethodWave, payload.ID, payload.PaymentStatus, payload.TransactionID, payload.LastError)
}

type mobileMoneyConfirmPayload struct {
	Provider      string `json:"provider"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	ErrorMessage  string `json:"error_message"`
}

// HandleMobileMoneyConfirm handles POST /payments/mobile-money/confirm
// for orange_money and moov_money; the payload names the provider.
func (h *CallbackHandler) HandleMobileMoneyConfirm(w http.ResponseWriter, r *http.Request) {
	var payload mobileMoneyConfirmPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.TransactionID == "" {
		writeError(w, h.logger, xerrors.ErrInvalidRequest)
		return
	}

	method, err := domain.ParseMethod(payload.Provider)
	if err != nil || (method != domain.MethodOrangeMoney && method != domain.MethodMoovMoney) {
		writeError(w, h.logger, xerrors.ErrInvalidRequest)
		return
	}

	h.confirm(w, r, method, payload.TransactionID, payload.Status, payload.TransactionID, payload.ErrorMessage)
}

func (h *CallbackHandler) confirm(w http.ResponseWriter, r *http.Request, method domain.PaymentMethod, externalTxID, providerStatus, confirmationCode, errorMsg string) {
	gw, err := h.registry.Get(method)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	outcome := gw.TranslateCallback(providerStatus)

	h.logger.Info("gateway callback received",
		zap.String("gateway", gw.Name()),
		zap.String("external_tx_id", externalTxID),
		zap.String("provider_status", providerStatus),
		zap.String("outcome", string(outcome)))

	var code, msg *string
	if confirmationCode != "" {
		code = &confirmationCode
	}
	if errorMsg != "" {
		msg = &errorMsg
	}

	if err := h.callbackUC.ConfirmPayment(r.Context(), externalTxID, outcome, code, msg); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"result": "accepted"})
}

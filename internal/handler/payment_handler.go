package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/djibrilmaiga/eduka-backend/internal/domain"
	"github.com/djibrilmaiga/eduka-backend/internal/usecase"
	"github.com/djibrilmaiga/eduka-backend/pkg/response"
	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

type PaymentHandler struct {
	paymentUC *usecase.PaymentUsecase
	ledger    *usecase.Ledger
	logger    *zap.Logger
}

func NewPaymentHandler(paymentUC *usecase.PaymentUsecase, ledger *usecase.Ledger, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentUC: paymentUC,
		ledger:    ledger,
		logger:    logger,
	}
}

// HandleInitiate handles POST /payments/initiate.
func (h *PaymentHandler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	var req domain.InitiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, xerrors.ErrInvalidRequest)
		return
	}

	handle, err := h.paymentUC.InitiatePayment(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, handle)
}

// HandleRecordCash handles POST /payments/cash/record. This endpoint
// returns a succeeded payment synchronously.
func (h *PaymentHandler) HandleRecordCash(w http.ResponseWriter, r *http.Request) {
	var req domain.RecordCashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, xerrors.ErrInvalidRequest)
		return
	}

	payment, err := h.paymentUC.RecordCashPayment(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, payment)
}

// HandleGetPayment handles GET /payments/{ref}; clients poll it while
// waiting for the gateway callback.
func (h *PaymentHandler) HandleGetPayment(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	payment, err := h.paymentUC.GetPayment(r.Context(), ref)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, payment)
}

// HandleGetBalance handles GET /children/{id}/balance.
func (h *PaymentHandler) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	childID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, h.logger, xerrors.ErrInvalidRequest)
		return
	}

	balance, err := h.ledger.Balance(r.Context(), childID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"child_id": childID,
		"balance":  balance,
	})
}

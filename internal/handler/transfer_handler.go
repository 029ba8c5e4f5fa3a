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

type TransferHandler struct {
	transferUC *usecase.TransferUsecase
	logger     *zap.Logger
}

func NewTransferHandler(transferUC *usecase.TransferUsecase, logger *zap.Logger) *TransferHandler {
	return &TransferHandler{
		transferUC: transferUC,
		logger:     logger,
	}
}

// HandleRequest handles POST /transfers.
func (h *TransferHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	var req domain.RequestTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, xerrors.ErrInvalidRequest)
		return
	}

	transfer, err := h.transferUC.Request(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, transfer)
}

// HandleDecide handles PUT /transfers/{id}/decision.
func (h *TransferHandler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	transferID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, h.logger, xerrors.ErrInvalidRequest)
		return
	}

	var req domain.DecideTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, xerrors.ErrInvalidRequest)
		return
	}

	transfer, err := h.transferUC.Decide(r.Context(), transferID, &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, transfer)
}

// HandleListPending handles GET /transfers/pending.
func (h *TransferHandler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.transferUC.ListPending(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if transfers == nil {
		transfers = []*domain.FundTransfer{}
	}
	response.JSON(w, http.StatusOK, transfers)
}

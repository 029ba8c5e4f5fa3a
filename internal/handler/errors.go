package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/djibrilmaiga/eduka-backend/pkg/response"
	"github.com/djibrilmaiga/eduka-backend/pkg/xerrors"
)

// writeError maps a domain error onto the HTTP surface. Business
// errors keep their message; internal errors get a generic one so
// nothing leaks.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	kind := xerrors.Kind(err)

	var status int
	switch kind {
	case "validation_error", "invalid_phone_number", "unsupported_method":
		status = http.StatusBadRequest
	case "not_found":
		status = http.StatusNotFound
	case "unauthorized_approver", "unauthorized_requester":
		status = http.StatusForbidden
	case "insufficient_balance", "already_decided", "sponsorship_ended", "duplicate_external_ref":
		status = http.StatusConflict
	case "gateway_error":
		status = http.StatusBadGateway
	default:
		logger.Error("internal error", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal", "an internal error occurred")
		return
	}

	response.Error(w, status, kind, err.Error())
}

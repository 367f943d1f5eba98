package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kyc-ledger/internal/domain"
)

// httpError maps a service error to its HTTP status. Verification errors carry
// their code; anything unclassified is logged and hidden behind a 500.
func httpError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrBadRequest):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
		writeError(w, status, "internal server error")
		return
	}
	writeJSON(w, status, MessageEnvelope{Error: err.Error(), ErrorCode: domain.ErrorCode(err)})
}

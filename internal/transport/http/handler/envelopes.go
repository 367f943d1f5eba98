package handler

import (
	"encoding/json"
	"net/http"

	"github.com/kyc-ledger/internal/domain"
	"github.com/kyc-ledger/internal/pkg/validate"
)

// MessageEnvelope is the generic response wrapper. ErrorCode is a stable
// machine-readable code for verification errors.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// PaginatedUsersEnvelope wraps cursor-paginated user list responses.
type PaginatedUsersEnvelope struct {
	Data       []*SafeUser `json:"data"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// RecordsEnvelope wraps a moderation queue.
type RecordsEnvelope struct {
	Status domain.VerificationStatus   `json:"status"`
	Count  int                         `json:"count"`
	Data   []domain.VerificationRecord `json:"data"`
}

// NotificationsEnvelope wraps the caller's unread notices, newest first.
type NotificationsEnvelope struct {
	Unread int                   `json:"unread"`
	Data   []domain.Notification `json:"data"`
}

type URLEnvelope struct {
	URL string `json:"url"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// decodeJSON decodes and validates the body into dst, writing 400 or 422 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}

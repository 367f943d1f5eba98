package middleware

import (
	"encoding/json"
	"net/http"
)

// Codes carried in error_code by middleware rejections, alongside the
// verification codes the handlers emit.
const (
	codeUnauthenticated = "unauthenticated"
	codeRoleRequired    = "role_required"
	codeRateLimited     = "rate_limited"
)

type errorBody struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// writeJSONError writes the same error shape the handlers use.
func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg, ErrorCode: code})
}

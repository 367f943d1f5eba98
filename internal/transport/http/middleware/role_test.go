package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	jwtinfra "github.com/kyc-ledger/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
)

func serveWithRole(role string, allowed ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if role != "" {
		req = req.WithContext(WithClaims(context.Background(), &jwtinfra.Claims{UserID: "u1", Role: role}))
	}
	rr := httptest.NewRecorder()
	RequireRole(allowed...)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	return rr
}

func TestRequireRole_NoClaimsInContext(t *testing.T) {
	rr := serveWithRole("", "admin")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireRole_WrongRole(t *testing.T) {
	rr := serveWithRole("artist", "admin")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.JSONEq(t, `{"error":"requires role admin","error_code":"role_required"}`, rr.Body.String())
}

func TestRequireRole_CorrectRole(t *testing.T) {
	assert.Equal(t, http.StatusOK, serveWithRole("admin", "admin").Code)
}

func TestRequireRole_MultipleAllowedRoles(t *testing.T) {
	assert.Equal(t, http.StatusOK, serveWithRole("artist", "admin", "artist").Code)
	assert.Equal(t, http.StatusForbidden, serveWithRole("customer", "admin", "artist").Code)
}

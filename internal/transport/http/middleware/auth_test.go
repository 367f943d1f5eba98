package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	jwtinfra "github.com/kyc-ledger/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) (*jwtinfra.Provider, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return jwtinfra.NewProviderFromKeys(key, &key.PublicKey, 24*time.Hour), key
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func serveAuth(p *jwtinfra.Provider, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	Auth(p)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	return rr
}

func TestAuth_RejectsMalformedHeaders(t *testing.T) {
	p, _ := newTestProvider(t)
	for _, header := range []string{
		"",
		"Bearer",
		"Bearer    ",
		"Basic dXNlcjpwYXNz",
		"Bearer not-a-real-token",
	} {
		assert.Equal(t, http.StatusUnauthorized, serveAuth(p, header).Code, header)
	}
}

func TestAuth_SchemeIsCaseInsensitive(t *testing.T) {
	p, _ := newTestProvider(t)
	signed, err := p.Sign("u1", "artist")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serveAuth(p, "bearer "+signed).Code)
}

func TestAuth_ExpiredToken(t *testing.T) {
	p, key := newTestProvider(t)

	claims := &jwtinfra.Claims{
		UserID: "u1",
		Role:   "artist",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, serveAuth(p, "Bearer "+signed).Code)
}

func TestAuth_TokenFromOtherKey(t *testing.T) {
	p, _ := newTestProvider(t)
	other, _ := newTestProvider(t)
	signed, err := other.Sign("u1", "admin")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, serveAuth(p, "Bearer "+signed).Code)
}

func TestAuth_ValidToken_InjectsClaims(t *testing.T) {
	p, _ := newTestProvider(t)
	signed, err := p.Sign("u1", "artist")
	require.NoError(t, err)

	var gotClaims *jwtinfra.Claims
	captureHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	Auth(p)(captureHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "u1", gotClaims.UserID)
	assert.Equal(t, "artist", gotClaims.Role)
}

func TestAuth_ErrorBodyIsJSON(t *testing.T) {
	p, _ := newTestProvider(t)
	rr := serveAuth(p, "")

	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"missing or invalid authorization header","error_code":"unauthenticated"}`, rr.Body.String())
}

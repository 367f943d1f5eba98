package http

import (
	"net/http"

	"github.com/kyc-ledger/internal/application/kyc"
	"github.com/kyc-ledger/internal/application/notification"
	"github.com/kyc-ledger/internal/application/user"
	"github.com/kyc-ledger/internal/transport/http/handler"
	"github.com/kyc-ledger/internal/transport/http/middleware"
)

// Deps holds the application services and collaborators the router needs.
type Deps struct {
	Users         user.Service
	KYC           kyc.Service
	Notifications notification.Service

	// Tokens verifies bearer tokens. Nil disables authentication, which only
	// makes sense in tests.
	Tokens middleware.TokenVerifier

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	// HealthChecks back /v1/health-check/ready, keyed by dependency name.
	HealthChecks map[string]handler.HealthCheck
}

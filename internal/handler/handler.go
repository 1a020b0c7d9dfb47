// Package handler exposes the client-facing settlement API consumed by the
// kiosk front-end. Every response uses a uniform JSON envelope: a "success"
// flag plus either the payload fields or an error code and message.
package handler

import (
	"net/http"

	"github.com/quickserve/kiosk/internal/domain/menu"
	"github.com/quickserve/kiosk/internal/domain/settlement"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// GatewayKeyID is the public key identifier the kiosk's checkout widget
	// passes to the gateway's client SDK.
	GatewayKeyID string
	// ImageBaseURL is prepended to relative image paths in menu responses.
	ImageBaseURL string
}

// Handler implements the settlement API endpoints, delegating business logic
// to the orchestrator and the injected repositories.
type Handler struct {
	cfg    Config
	menu   menu.Repository
	ledger settlement.Ledger
	orch   *settlement.Orchestrator
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	menuRepo menu.Repository,
	ledger settlement.Ledger,
	orch *settlement.Orchestrator,
) *Handler {
	return &Handler{
		cfg:    cfg,
		menu:   menuRepo,
		ledger: ledger,
		orch:   orch,
	}
}

// Register mounts all API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/menu", h.ListMenu)
	mux.HandleFunc("POST /api/orders", h.RegisterOrder)
	mux.HandleFunc("POST /api/payments/initiate", h.InitiatePayment)
	mux.HandleFunc("POST /api/payments/verify", h.VerifyPayment)
	mux.HandleFunc("POST /api/payments/status", h.PaymentStatus)
	mux.HandleFunc("POST /api/receipts", h.IssueReceipt)
}

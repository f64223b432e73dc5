package payment

import (
	"encoding/json"
	"net/http"

	"github.com/bazaarhq/bazaar-backend/internal/httpapi"
	"github.com/bazaarhq/bazaar-backend/internal/modules/auth"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes payment endpoints.
type Handler struct {
	service    Service
	log        *zap.Logger
	production bool
}

func NewHandler(service Service, log *zap.Logger, production bool) *Handler {
	return &Handler{service: service, log: log, production: production}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/api/v1/payments", func(r chi.Router) {
		r.Post("/confirm", h.confirm)
		r.Post("/refunds", h.refund)
		r.Post("/payouts", h.payout)
	})
}

// confirm is the client's "I finished paying" callback. The intent status
// is re-verified with the processor, never trusted from the request.
func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	type request struct {
		IntentID string `json:"intent_id"`
	}
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "invalid request body"))
		return
	}
	settled, err := h.service.ConfirmAndSettle(r.Context(), req.IntentID)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, map[string]interface{}{
		"settled_orders": len(settled),
	})
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	if !actor.IsAdmin() {
		httpapi.Error(w, r, h.log, h.production, apperror.ErrForbidden)
		return
	}
	type request struct {
		IntentID string  `json:"intent_id"`
		Amount   float64 `json:"amount"`
	}
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "invalid request body"))
		return
	}
	rf, err := h.service.RefundIntent(r.Context(), req.IntentID, req.Amount)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, rf)
}

func (h *Handler) payout(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	if !actor.IsAdmin() {
		httpapi.Error(w, r, h.log, h.production, apperror.ErrForbidden)
		return
	}
	type request struct {
		VendorID string  `json:"vendor_id"`
		Amount   float64 `json:"amount"`
	}
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "invalid request body"))
		return
	}
	tr, err := h.service.PayoutVendor(r.Context(), req.VendorID, req.Amount)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, tr)
}

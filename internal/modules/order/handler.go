package order

import (
	"encoding/json"
	"net/http"

	"github.com/bazaarhq/bazaar-backend/internal/httpapi"
	"github.com/bazaarhq/bazaar-backend/internal/modules/auth"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes order endpoints. All of them require authentication.
type Handler struct {
	service    Service
	log        *zap.Logger
	production bool
}

func NewHandler(service Service, log *zap.Logger, production bool) *Handler {
	return &Handler{service: service, log: log, production: production}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/checkout", h.checkout)
		r.Get("/", h.listMine)
		r.Get("/vendor", h.listForVendor)
		r.Get("/{id}", h.get)
		r.Put("/{id}/status", h.updateStatus)
		r.Post("/{id}/cancel", h.cancel)
	})
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	var in CheckoutInput
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "invalid request body"))
			return
		}
	}
	result, err := h.service.Checkout(r.Context(), actor.UserID, in)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusCreated, result)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	orders, err := h.service.ListMine(r.Context(), actor.UserID)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, orders)
}

func (h *Handler) listForVendor(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	orders, err := h.service.ListForVendor(r.Context(), actor.UserID)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, orders)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	o, err := h.service.Get(r.Context(), actor.UserID, actor.IsAdmin(), chi.URLParam(r, "id"))
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, o)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	type request struct {
		Status string `json:"status"`
	}
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "invalid request body"))
		return
	}
	to, ok := ParseStatus(req.Status)
	if !ok {
		httpapi.Error(w, r, h.log, h.production, apperror.New(apperror.KindValidation, "unknown status %q", req.Status))
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), actor.UserID, actor.IsAdmin(), chi.URLParam(r, "id"), to)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, o)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	o, err := h.service.Cancel(r.Context(), actor.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, o)
}

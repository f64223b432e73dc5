package cart

import (
	"encoding/json"
	"net/http"

	"github.com/bazaarhq/bazaar-backend/internal/httpapi"
	"github.com/bazaarhq/bazaar-backend/internal/modules/auth"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes cart endpoints. All of them require an authenticated
// customer.
type Handler struct {
	service    Service
	log        *zap.Logger
	production bool
}

func NewHandler(service Service, log *zap.Logger, production bool) *Handler {
	return &Handler{service: service, log: log, production: production}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/api/v1/cart", func(r chi.Router) {
		r.Get("/", h.get)
		r.Post("/items", h.addItem)
		r.Put("/items/{productID}", h.updateItem)
		r.Delete("/items/{productID}", h.removeItem)
		r.Delete("/", h.clear)
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	c, err := h.service.Get(r.Context(), actor.UserID)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, c)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	type request struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "invalid request body"))
		return
	}
	c, err := h.service.AddItem(r.Context(), actor.UserID, req.ProductID, req.Quantity)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, c)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	type request struct {
		Quantity int `json:"quantity"`
	}
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "invalid request body"))
		return
	}
	c, err := h.service.UpdateItem(r.Context(), actor.UserID, chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, c)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	c, err := h.service.RemoveItem(r.Context(), actor.UserID, chi.URLParam(r, "productID"))
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, c)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	if err := h.service.Clear(r.Context(), actor.UserID); err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, map[string]string{"status": "cleared"})
}

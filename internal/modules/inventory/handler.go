package inventory

import (
	"encoding/json"
	"net/http"

	"github.com/bazaarhq/bazaar-backend/internal/httpapi"
	"github.com/bazaarhq/bazaar-backend/internal/modules/auth"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes the vendor restock endpoint.
type Handler struct {
	service    Service
	log        *zap.Logger
	production bool
}

func NewHandler(service Service, log *zap.Logger, production bool) *Handler {
	return &Handler{service: service, log: log, production: production}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/api/v1/inventory/{productID}/adjust", h.adjust)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	type request struct {
		Delta int `json:"delta"`
	}
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "invalid request body"))
		return
	}
	remaining, err := h.service.Adjust(r.Context(), actor.UserID, chi.URLParam(r, "productID"), req.Delta)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, map[string]int{"stock": remaining})
}

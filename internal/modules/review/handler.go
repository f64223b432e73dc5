package review

import (
	"encoding/json"
	"net/http"

	"github.com/bazaarhq/bazaar-backend/internal/httpapi"
	"github.com/bazaarhq/bazaar-backend/internal/modules/auth"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes review endpoints.
type Handler struct {
	service    Service
	log        *zap.Logger
	production bool
}

func NewHandler(service Service, log *zap.Logger, production bool) *Handler {
	return &Handler{service: service, log: log, production: production}
}

// RegisterPublicRoutes mounts the unauthenticated read endpoints.
func (h *Handler) RegisterPublicRoutes(router chi.Router) {
	router.Get("/api/v1/products/{id}/reviews", h.list)
	router.Get("/api/v1/products/{id}/reviews/summary", h.summary)
}

// RegisterRoutes mounts the authenticated write endpoint.
func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/api/v1/products/{id}/reviews", h.add)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListByProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, reviews)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.SummaryByProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, s)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	type request struct {
		Rating  int    `json:"rating"`
		Title   string `json:"title"`
		Comment string `json:"comment"`
	}
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "invalid request body"))
		return
	}
	rv, err := h.service.Add(r.Context(), actor.UserID, chi.URLParam(r, "id"), req.Rating, req.Title, req.Comment)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusCreated, rv)
}

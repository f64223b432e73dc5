package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bazaarhq/bazaar-backend/internal/httpapi"
	"github.com/bazaarhq/bazaar-backend/internal/modules/auth"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes product endpoints.
type Handler struct {
	service    Service
	log        *zap.Logger
	production bool
}

func NewHandler(service Service, log *zap.Logger, production bool) *Handler {
	return &Handler{service: service, log: log, production: production}
}

// RegisterPublicRoutes mounts the unauthenticated browse endpoints.
func (h *Handler) RegisterPublicRoutes(router chi.Router) {
	router.Get("/api/v1/products", h.search)
	router.Get("/api/v1/products/{id}", h.get)
	router.Get("/api/v1/products/slug/{slug}", h.getBySlug)
}

// RegisterRoutes mounts the authenticated vendor listing endpoints.
// Registered flat because the /api/v1/products prefix also carries the
// public browse routes.
func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/api/v1/products", h.create)
	router.Put("/api/v1/products/{id}", h.update)
	router.Delete("/api/v1/products/{id}", h.deactivate)
	router.Get("/api/v1/products/low-stock", h.lowStock)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := SearchFilter{
		Query:    q.Get("q"),
		VendorID: q.Get("vendor"),
	}
	f.MinPrice, _ = strconv.ParseFloat(q.Get("min_price"), 64)
	f.MaxPrice, _ = strconv.ParseFloat(q.Get("max_price"), 64)
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	result, err := h.service.Search(r.Context(), f)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, p)
}

func (h *Handler) getBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, p)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	var in CreateProduct
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "invalid request body"))
		return
	}
	p, err := h.service.Create(r.Context(), actor.UserID, in)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusCreated, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	var in UpdateProduct
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "invalid request body"))
		return
	}
	p, err := h.service.Update(r.Context(), actor.UserID, chi.URLParam(r, "id"), in)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, p)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	p, err := h.service.Deactivate(r.Context(), actor.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, p)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	products, err := h.service.LowStock(r.Context(), actor.UserID)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, products)
}

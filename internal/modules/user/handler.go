package user

import (
	"encoding/json"
	"net/http"

	"github.com/bazaarhq/bazaar-backend/internal/httpapi"
	"github.com/bazaarhq/bazaar-backend/internal/modules/auth"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler exposes profile endpoints for the authenticated user.
type Handler struct {
	service    Service
	log        *zap.Logger
	production bool
}

func NewHandler(service Service, log *zap.Logger, production bool) *Handler {
	return &Handler{service: service, log: log, production: production}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/api/v1/users", func(r chi.Router) {
		r.Get("/me", h.me)
		r.Put("/me", h.updateProfile)
		r.Get("/me/addresses", h.listAddresses)
		r.Post("/me/addresses", h.addAddress)
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	u, err := h.service.Me(r.Context(), actor.UserID)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, u)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	type request struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		AvatarURL string `json:"avatar_url"`
	}
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "invalid request body"))
		return
	}
	u, err := h.service.UpdateProfile(r.Context(), actor.UserID, req.FirstName, req.LastName, req.AvatarURL)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, u)
}

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	addrs, err := h.service.ListAddresses(r.Context(), actor.UserID)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, addrs)
}

func (h *Handler) addAddress(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	var a Address
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "invalid request body"))
		return
	}
	uid, err := parseUUID(actor.UserID)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	a.UserID = uid
	created, err := h.service.AddAddress(r.Context(), &a)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusCreated, created)
}

func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, apperror.Wrap(apperror.KindValidation, err, "invalid id")
	}
	return id, nil
}

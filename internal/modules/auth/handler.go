package auth

import (
	"encoding/json"
	"net/http"

	"github.com/bazaarhq/bazaar-backend/internal/httpapi"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes the credential login endpoint used by vendor and admin
// accounts; customer sessions arrive through the identity webhook instead.
type Handler struct {
	service    Service
	log        *zap.Logger
	production bool
}

func NewHandler(service Service, log *zap.Logger, production bool) *Handler {
	return &Handler{service: service, log: log, production: production}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/api/v1/auth/login", h.login)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "invalid request body"))
		return
	}
	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, map[string]string{"token": token})
}

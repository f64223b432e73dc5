package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/bazaarhq/bazaar-backend/internal/httpapi"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v81"
	stripewebhook "github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// maxBodyBytes caps webhook payloads; both providers send small JSON.
const maxBodyBytes = 1 << 16

// Handler exposes the webhook endpoints. They are mounted outside the
// auth middleware; the signatures are the authentication.
type Handler struct {
	service        Service
	identitySecret string
	stripeSecret   string
	log            *zap.Logger
	production     bool
}

func NewHandler(service Service, identitySecret, stripeSecret string, log *zap.Logger, production bool) *Handler {
	return &Handler{
		service:        service,
		identitySecret: identitySecret,
		stripeSecret:   stripeSecret,
		log:            log,
		production:     production,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/api/v1/webhooks/identity", h.identity)
	router.Post("/api/v1/webhooks/payments", h.payments)
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "read webhook body"))
		return
	}

	msgID := r.Header.Get("svix-id")
	if err := VerifySignature(h.identitySecret, msgID,
		r.Header.Get("svix-timestamp"), r.Header.Get("svix-signature"), body); err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}

	if err := h.service.HandleIdentityEvent(r.Context(), msgID, body); err != nil {
		httpapi.Error(w, r, h.log, h.production, err)
		return
	}
	httpapi.Respond(w, http.StatusOK, map[string]string{"received": "true"})
}

func (h *Handler) payments(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "read webhook body"))
		return
	}

	event, err := stripewebhook.ConstructEvent(body, r.Header.Get("Stripe-Signature"), h.stripeSecret)
	if err != nil {
		httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindUnauthorized, err, "verify stripe signature"))
		return
	}

	switch string(event.Type) {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "decode payment intent"))
			return
		}
		if string(event.Type) == "payment_intent.succeeded" {
			err = h.service.HandlePaymentSucceeded(r.Context(), event.ID, pi.ID)
		} else {
			err = h.service.HandlePaymentFailed(r.Context(), event.ID, pi.ID)
		}
		if err != nil {
			httpapi.Error(w, r, h.log, h.production, err)
			return
		}
	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			httpapi.Error(w, r, h.log, h.production, apperror.Wrap(apperror.KindValidation, err, "decode charge"))
			return
		}
		if ch.PaymentIntent == nil {
			h.log.Warn("refunded charge without payment intent", zap.String("charge_id", ch.ID))
			break
		}
		if err := h.service.HandlePaymentRefunded(r.Context(), event.ID, ch.PaymentIntent.ID); err != nil {
			httpapi.Error(w, r, h.log, h.production, err)
			return
		}
	default:
		h.log.Info("unhandled stripe event type", zap.String("type", string(event.Type)))
	}

	httpapi.Respond(w, http.StatusOK, map[string]string{"received": "true"})
}

// Package httpapi holds the JSON response helpers shared by every handler.
// Error mapping from the apperror taxonomy to HTTP status codes happens
// here and nowhere else.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Respond writes body as JSON with the given status.
func Respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Error maps err's Kind to a status code and writes a JSON error body.
// Internal errors are logged with full request context and, in production,
// their message is suppressed from the client.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, production bool, err error) {
	status := statusFor(apperror.KindOf(err))
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		if production {
			msg = "internal server error"
		}
	}
	Respond(w, status, map[string]string{"error": msg})
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bazaarhq/bazaar-backend/internal/httpapi"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/bazaarhq/bazaar-backend/pkg/cache"
	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
)

// sessionProjection is the cached shape written by the identity webhook on
// session.created.
type sessionProjection struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Middleware authenticates requests. A Bearer JWT is checked first; failing
// that, an X-Session-Id header is resolved against the session projection in
// the cache. Unauthenticated requests are rejected.
func Middleware(jwtKey []byte, sessions *cache.Cache, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if actor, ok := actorFromRequest(r, jwtKey, sessions); ok {
				next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
				return
			}
			httpapi.Error(w, r, log, false, apperror.New(apperror.KindUnauthorized, "authentication required"))
		})
	}
}

func actorFromRequest(r *http.Request, jwtKey []byte, sessions *cache.Cache) (Actor, bool) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		raw := strings.TrimPrefix(header, "Bearer ")
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return jwtKey, nil
		})
		if err == nil && token.Valid && claims.Subject != "" {
			return Actor{UserID: claims.Subject, Role: claims.Role}, true
		}
		return Actor{}, false
	}

	if sessionID := r.Header.Get("X-Session-Id"); sessionID != "" {
		return actorFromSession(r.Context(), sessionID, sessions)
	}
	return Actor{}, false
}

func actorFromSession(ctx context.Context, sessionID string, sessions *cache.Cache) (Actor, bool) {
	raw, ok := sessions.Get(ctx, cache.SessionKey(sessionID))
	if !ok {
		return Actor{}, false
	}
	var s sessionProjection
	if err := json.Unmarshal(raw, &s); err != nil || s.UserID == "" {
		return Actor{}, false
	}
	return Actor{UserID: s.UserID, Role: s.Role}, true
}

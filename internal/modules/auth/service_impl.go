package auth

import (
	"context"
	"time"

	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// Claims carried by the signed token.
type Claims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

type service struct {
	accounts AccountSource
	jwtKey   []byte
}

// NewService creates a new auth service signing tokens with jwtKey.
func NewService(accounts AccountSource, jwtKey []byte) Service {
	return &service{accounts: accounts, jwtKey: jwtKey}
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	a, err := s.accounts.AccountByEmail(ctx, email)
	if err != nil {
		return "", apperror.New(apperror.KindUnauthorized, "invalid credentials")
	}
	if !a.Active {
		return "", apperror.New(apperror.KindUnauthorized, "account is deactivated")
	}
	// Webhook-provisioned customers have no password; they authenticate
	// through the identity provider's session, never here.
	if a.PasswordHash == "" {
		return "", apperror.New(apperror.KindUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return "", apperror.New(apperror.KindUnauthorized, "invalid credentials")
	}

	claims := &Claims{
		Role: a.Role,
		StandardClaims: jwt.StandardClaims{
			Subject:   a.ID.String(),
			ExpiresAt: time.Now().Add(24 * time.Hour).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

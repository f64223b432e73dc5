package auth

import (
	"context"
	"testing"

	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type staticAccounts struct {
	byEmail map[string]*Account
}

func (s *staticAccounts) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	if a, ok := s.byEmail[email]; ok {
		return a, nil
	}
	return nil, apperror.ErrNotFound
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func TestLoginIssuesTokenWithRole(t *testing.T) {
	key := []byte("test-key")
	id := uuid.New()
	svc := NewService(&staticAccounts{byEmail: map[string]*Account{
		"vendor@example.com": {ID: id, Email: "vendor@example.com", Role: RoleVendor, PasswordHash: hash(t, "s3cret"), Active: true},
	}}, key)

	signed, err := svc.Login(context.Background(), "vendor@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != id.String() || claims.Role != RoleVendor {
		t.Errorf("claims = subject %q role %q, want %s / VENDOR", claims.Subject, claims.Role, id)
	}
}

func TestLoginRejections(t *testing.T) {
	svc := NewService(&staticAccounts{byEmail: map[string]*Account{
		"vendor@example.com":   {ID: uuid.New(), Role: RoleVendor, PasswordHash: hash(t, "s3cret"), Active: true},
		"inactive@example.com": {ID: uuid.New(), Role: RoleVendor, PasswordHash: hash(t, "s3cret"), Active: false},
		"customer@example.com": {ID: uuid.New(), Role: RoleCustomer, Active: true}, // no password, webhook-provisioned
	}}, []byte("test-key"))
	ctx := context.Background()

	tests := []struct {
		name            string
		email, password string
	}{
		{"wrong password", "vendor@example.com", "nope"},
		{"unknown email", "ghost@example.com", "s3cret"},
		{"deactivated account", "inactive@example.com", "s3cret"},
		{"passwordless account", "customer@example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.email, tt.password)
			if err == nil || apperror.KindOf(err) != apperror.KindUnauthorized {
				t.Fatalf("err = %v, want unauthorized", err)
			}
		})
	}
}

func TestActorIsAdmin(t *testing.T) {
	if (Actor{Role: RoleVendor}).IsAdmin() {
		t.Error("vendor must not pass the admin gate")
	}
	if !(Actor{Role: RoleAdmin}).IsAdmin() {
		t.Error("admin role not recognized")
	}
}

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
)

type postgresAccounts struct {
	db *sql.DB
}

// NewPostgresAccounts reads login credentials from the users table.
func NewPostgresAccounts(db *sql.DB) AccountSource {
	return &postgresAccounts{db: db}
}

func (r *postgresAccounts) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	var a Account
	var hash sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, role, password_hash, is_active
		FROM users WHERE email = $1`, email).
		Scan(&a.ID, &a.Email, &a.Role, &hash, &a.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", email, apperror.ErrNotFound)
		}
		return nil, err
	}
	a.PasswordHash = hash.String
	return &a, nil
}

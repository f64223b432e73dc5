package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/google/uuid"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL user repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

const userColumns = `id, external_id, email, first_name, last_name, avatar_url,
	role, is_active, last_login_at, created_at, updated_at`

func (r *postgresRepository) UpsertByExternalID(ctx context.Context, u *User) (*User, bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, external_id, email, first_name, last_name, avatar_url, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_id) DO NOTHING`,
		u.ID, u.ExternalID, u.Email, u.FirstName, u.LastName, nullable(u.AvatarURL), u.Role)
	if err != nil {
		return nil, false, fmt.Errorf("upsert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	stored, err := r.GetByExternalID(ctx, u.ExternalID)
	return stored, n > 0, err
}

func (r *postgresRepository) EnsureCustomerProfile(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customers (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`,
		uuid.New(), userID)
	if err != nil {
		return fmt.Errorf("ensure customer profile: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, err, "invalid user id")
	}
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, parsed))
}

func (r *postgresRepository) GetByExternalID(ctx context.Context, externalID string) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID))
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	u := &User{}
	var avatar sql.NullString
	var lastLogin sql.NullTime
	var hash sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, external_id, email, first_name, last_name, avatar_url,
		       role, password_hash, is_active, last_login_at, created_at, updated_at
		FROM users WHERE email = $1`, email).Scan(
		&u.ID, &u.ExternalID, &u.Email, &u.FirstName, &u.LastName, &avatar,
		&u.Role, &hash, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", email, apperror.ErrNotFound)
		}
		return nil, err
	}
	u.AvatarURL = avatar.String
	u.PasswordHash = hash.String
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return u, nil
}

func (r *postgresRepository) UpdateProfile(ctx context.Context, externalID string, p Profile) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, avatar_url = $5,
		    role = $6, updated_at = $7
		WHERE external_id = $1
		RETURNING `+userColumns,
		externalID, p.Email, p.FirstName, p.LastName, nullable(p.AvatarURL), p.Role, time.Now()))
}

func (r *postgresRepository) Deactivate(ctx context.Context, externalID string) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users SET is_active = FALSE, updated_at = $2
		WHERE external_id = $1
		RETURNING `+userColumns,
		externalID, time.Now()))
}

func (r *postgresRepository) TouchLastLogin(ctx context.Context, externalID string) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users SET last_login_at = $2, updated_at = $2
		WHERE external_id = $1
		RETURNING `+userColumns,
		externalID, time.Now()))
}

func (r *postgresRepository) ListAddresses(ctx context.Context, userID string) ([]*Address, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, line1, line2, city, state, postal_code, country,
		       is_default, created_at, updated_at
		FROM addresses WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var addrs []*Address
	for rows.Next() {
		a := &Address{}
		var line2, state sql.NullString
		if err := rows.Scan(&a.ID, &a.UserID, &a.Kind, &a.Line1, &line2, &a.City,
			&state, &a.PostalCode, &a.Country, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.Line2 = line2.String
		a.State = state.String
		addrs = append(addrs, a)
	}
	return addrs, rows.Err()
}

func (r *postgresRepository) CreateAddress(ctx context.Context, a *Address) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO addresses (id, user_id, kind, line1, line2, city, state, postal_code, country, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.UserID, a.Kind, a.Line1, nullable(a.Line2), a.City, nullable(a.State),
		a.PostalCode, a.Country, a.IsDefault)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}

func (r *postgresRepository) scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	var avatar sql.NullString
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.FirstName, &u.LastName, &avatar,
		&u.Role, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	u.AvatarURL = avatar.String
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return u, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

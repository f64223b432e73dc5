package webhook

import (
	"context"
	"database/sql"
	"fmt"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL webhook event ledger.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Processed(ctx context.Context, eventID string) (bool, error) {
	var seen bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM webhook_events WHERE id = $1)`,
		eventID).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("check webhook event: %w", err)
	}
	return seen, nil
}

func (r *postgresRepository) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_events (id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`,
		eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

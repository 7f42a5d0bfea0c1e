package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActionRepository handles the durable per-day action counters used by the rate limiter.
// Counters are keyed by calendar date, so a new day starts from zero without any deletion.
type ActionRepository struct {
	pool *pgxpool.Pool
}

// NewActionRepository creates a new ActionRepository instance.
func NewActionRepository(pool *pgxpool.Pool) *ActionRepository {
	return &ActionRepository{pool: pool}
}

// GetDailyActionCount returns how many times the user performed action on day (YYYY-MM-DD).
func (r *ActionRepository) GetDailyActionCount(ctx context.Context, userID int64, action, day string) (int, error) {
	const query = `
		SELECT count FROM daily_action_counts
		WHERE user_id = $1 AND action = $2 AND action_date = $3::date
	`

	var count int
	err := r.pool.QueryRow(ctx, query, userID, action, day).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get daily action count: %w", classifyError(err))
	}

	return count, nil
}

// IncrementDailyActionCount atomically increments the counter and returns the new value.
// It calls the increment_daily_action_count stored function; when the function is not
// installed the error wraps ErrUnsupported and callers fall back to UpsertDailyActionCount.
func (r *ActionRepository) IncrementDailyActionCount(ctx context.Context, userID int64, action, day string) (int, error) {
	const query = `SELECT increment_daily_action_count($1, $2, $3::date)`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, action, day).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment daily action count: %w", classifyError(err))
	}

	return count, nil
}

// UpsertDailyActionCount sets the counter to an exact value.
func (r *ActionRepository) UpsertDailyActionCount(ctx context.Context, userID int64, action, day string, count int) error {
	const query = `
		INSERT INTO daily_action_counts (user_id, action, action_date, count)
		VALUES ($1, $2, $3::date, $4)
		ON CONFLICT (user_id, action, action_date)
		DO UPDATE SET count = EXCLUDED.count
	`

	if _, err := r.pool.Exec(ctx, query, userID, action, day, count); err != nil {
		return fmt.Errorf("failed to upsert daily action count: %w", classifyError(err))
	}

	return nil
}

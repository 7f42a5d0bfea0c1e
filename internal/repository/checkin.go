package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CheckinRepository handles daily check-in history.
type CheckinRepository struct {
	pool *pgxpool.Pool
}

// NewCheckinRepository creates a new CheckinRepository instance.
func NewCheckinRepository(pool *pgxpool.Pool) *CheckinRepository {
	return &CheckinRepository{pool: pool}
}

// Create records a check-in for the calendar day of date.
// Returns false if the user already checked in that day.
func (r *CheckinRepository) Create(ctx context.Context, userID int64, date time.Time) (bool, error) {
	const query = `
		INSERT INTO checkins (user_id, checkin_date)
		VALUES ($1, $2::date)
		ON CONFLICT (user_id, checkin_date) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query, userID, date.Format(time.DateOnly))
	if err != nil {
		return false, fmt.Errorf("failed to create checkin: %w", classifyError(err))
	}

	return result.RowsAffected() > 0, nil
}

// Delete removes the check-in for the calendar day of date. Deleting a missing day is not an error.
func (r *CheckinRepository) Delete(ctx context.Context, userID int64, date time.Time) error {
	const query = `DELETE FROM checkins WHERE user_id = $1 AND checkin_date = $2::date`

	if _, err := r.pool.Exec(ctx, query, userID, date.Format(time.DateOnly)); err != nil {
		return fmt.Errorf("failed to delete checkin: %w", classifyError(err))
	}

	return nil
}

// GetCheckins returns the user's check-in dates, newest first.
// Dates come back as midnight UTC of the stored calendar day.
func (r *CheckinRepository) GetCheckins(ctx context.Context, userID int64) ([]time.Time, error) {
	const query = `
		SELECT checkin_date
		FROM checkins
		WHERE user_id = $1
		ORDER BY checkin_date DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkins: %w", classifyError(err))
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan checkin: %w", err)
		}
		dates = append(dates, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkins: %w", err)
	}

	return dates, nil
}

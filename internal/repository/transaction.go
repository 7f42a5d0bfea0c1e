package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"gamification-bot/internal/model"
)

// TransactionRepository handles the append-only XP audit trail.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create appends an XP transaction. A missing ID or timestamp is filled in.
func (r *TransactionRepository) Create(ctx context.Context, tx *model.XPTransaction) error {
	const query = `
		INSERT INTO xp_transactions (id, user_id, activity, xp_delta, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}

	_, err := r.pool.Exec(ctx, query, tx.ID, tx.UserID, string(tx.Activity), tx.XPDelta, tx.Details, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create xp transaction: %w", classifyError(err))
	}

	return nil
}

// GetByUserID retrieves a user's transactions, newest first.
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.XPTransaction, error) {
	const query = `
		SELECT id, user_id, activity, xp_delta, details, created_at
		FROM xp_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get xp transactions: %w", classifyError(err))
	}
	defer rows.Close()

	var transactions []*model.XPTransaction
	for rows.Next() {
		var tx model.XPTransaction
		var activity string
		err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&activity,
			&tx.XPDelta,
			&tx.Details,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan xp transaction: %w", err)
		}
		tx.Activity = model.Activity(activity)
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating xp transactions: %w", err)
	}

	return transactions, nil
}

// GetDailyLeaders retrieves the users who earned the most XP on the given date.
// Only positive totals are included.
func (r *TransactionRepository) GetDailyLeaders(ctx context.Context, date time.Time, limit int) ([]*model.DailyXP, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	const query = `
		SELECT t.user_id, u.username, COALESCE(SUM(t.xp_delta), 0) AS xp
		FROM xp_transactions t
		JOIN users u ON t.user_id = u.telegram_id
		WHERE t.created_at >= $1
		  AND t.created_at < $2
		GROUP BY t.user_id, u.username
		HAVING SUM(t.xp_delta) > 0
		ORDER BY xp DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, startOfDay, endOfDay, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily leaders: %w", classifyError(err))
	}
	defer rows.Close()

	var leaders []*model.DailyXP
	for rows.Next() {
		var entry model.DailyXP
		if err := rows.Scan(&entry.UserID, &entry.Username, &entry.XP); err != nil {
			return nil, fmt.Errorf("failed to scan daily leader: %w", err)
		}
		leaders = append(leaders, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily leaders: %w", err)
	}

	return leaders, nil
}

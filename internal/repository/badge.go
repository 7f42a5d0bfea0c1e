package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gamification-bot/internal/model"
)

// BadgeRepository handles badge definitions and badge ownership.
type BadgeRepository struct {
	pool *pgxpool.Pool
}

// NewBadgeRepository creates a new BadgeRepository instance.
func NewBadgeRepository(pool *pgxpool.Pool) *BadgeRepository {
	return &BadgeRepository{pool: pool}
}

// HasBadge reports whether the user already owns the badge.
func (r *BadgeRepository) HasBadge(ctx context.Context, userID int64, badgeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM user_badges WHERE user_id = $1 AND badge_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, badgeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check badge ownership: %w", classifyError(err))
	}

	return exists, nil
}

// InsertUserBadge grants a badge. A row that already exists is left untouched and
// reported as inserted=false with a nil error, so concurrent grants stay idempotent.
func (r *BadgeRepository) InsertUserBadge(ctx context.Context, userID int64, badgeID string, unlockedAt time.Time) (bool, error) {
	const query = `
		INSERT INTO user_badges (user_id, badge_id, unlocked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query, userID, badgeID, unlockedAt)
	if err != nil {
		err = classifyError(err)
		if errors.Is(err, ErrConstraintViolation) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert user badge: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// GetOrCreateDefinition returns the stored definition for def.BadgeID, inserting def if absent.
func (r *BadgeRepository) GetOrCreateDefinition(ctx context.Context, def model.BadgeDefinition) (model.BadgeDefinition, error) {
	const insert = `
		INSERT INTO badges (badge_id, name, description, icon, rarity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (badge_id) DO NOTHING
	`
	const selectQuery = `
		SELECT badge_id, name, description, icon, rarity
		FROM badges
		WHERE badge_id = $1
	`

	if _, err := r.pool.Exec(ctx, insert, def.BadgeID, def.Name, def.Description, def.Icon, def.Rarity.String()); err != nil {
		return model.BadgeDefinition{}, fmt.Errorf("failed to create badge definition: %w", classifyError(err))
	}

	stored, err := scanDefinition(r.pool.QueryRow(ctx, selectQuery, def.BadgeID))
	if err != nil {
		return model.BadgeDefinition{}, fmt.Errorf("failed to get badge definition: %w", classifyError(err))
	}

	return stored, nil
}

// ListUserBadges returns every badge the user owns, most recent first.
func (r *BadgeRepository) ListUserBadges(ctx context.Context, userID int64) ([]model.UserBadge, error) {
	const query = `
		SELECT b.badge_id, b.name, b.description, b.icon, b.rarity, ub.unlocked_at
		FROM user_badges ub
		JOIN badges b ON b.badge_id = ub.badge_id
		WHERE ub.user_id = $1
		ORDER BY ub.unlocked_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user badges: %w", classifyError(err))
	}
	defer rows.Close()

	var badges []model.UserBadge
	for rows.Next() {
		var (
			ub     model.UserBadge
			rarity string
		)
		err := rows.Scan(&ub.Badge.BadgeID, &ub.Badge.Name, &ub.Badge.Description, &ub.Badge.Icon, &rarity, &ub.UnlockedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user badge: %w", err)
		}
		ub.UserID = userID
		ub.Badge.Rarity, _ = model.ParseRarity(rarity)
		badges = append(badges, ub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user badges: %w", err)
	}

	return badges, nil
}

func scanDefinition(row pgx.Row) (model.BadgeDefinition, error) {
	var (
		def    model.BadgeDefinition
		rarity string
	)
	if err := row.Scan(&def.BadgeID, &def.Name, &def.Description, &def.Icon, &rarity); err != nil {
		return model.BadgeDefinition{}, err
	}

	parsed, err := model.ParseRarity(rarity)
	if err != nil {
		return model.BadgeDefinition{}, err
	}
	def.Rarity = parsed

	return def, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"gamification-bot/internal/model"
)

// entityTables maps each countable kind to its table and owner column.
// Table names are never taken from input.
var entityTables = map[model.EntityKind]struct {
	table  string
	column string
}{
	model.EntityPosts:    {"posts", "author_id"},
	model.EntityProjects: {"projects", "owner_id"},
	model.EntityTeams:    {"team_members", "user_id"},
	model.EntityEvents:   {"event_registrations", "user_id"},
	model.EntityComments: {"comments", "author_id"},
	model.EntityLikes:    {"likes", "user_id"},
}

// EntityRepository counts content owned by the platform's content side.
type EntityRepository struct {
	pool *pgxpool.Pool
}

// NewEntityRepository creates a new EntityRepository instance.
func NewEntityRepository(pool *pgxpool.Pool) *EntityRepository {
	return &EntityRepository{pool: pool}
}

// CountEntities returns how many entities of kind belong to the user.
func (r *EntityRepository) CountEntities(ctx context.Context, kind model.EntityKind, userID int64) (int, error) {
	target, ok := entityTables[kind]
	if !ok {
		return 0, fmt.Errorf("unknown entity kind %q: %w", kind, ErrUnsupported)
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`, target.table, target.column)

	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", kind, classifyError(err))
	}

	return count, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type migration struct {
	name string
	sql  string
}

// migrations are idempotent and applied in order on every start.
var migrations = []migration{
	{
		name: "users table",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				telegram_id BIGINT PRIMARY KEY,
				username VARCHAR(255) NOT NULL,
				total_xp BIGINT NOT NULL DEFAULT 0,
				level INT NOT NULL DEFAULT 1,
				rank VARCHAR(64) NOT NULL DEFAULT 'Newcomer',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_users_total_xp ON users(total_xp DESC);
		`,
	},
	{
		name: "xp_transactions table",
		sql: `
			CREATE TABLE IF NOT EXISTS xp_transactions (
				id UUID PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
				activity VARCHAR(64) NOT NULL,
				xp_delta BIGINT NOT NULL,
				details JSONB,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_xp_transactions_user_time ON xp_transactions(user_id, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_xp_transactions_time ON xp_transactions(created_at DESC);
		`,
	},
	{
		name: "badge tables",
		sql: `
			CREATE TABLE IF NOT EXISTS badges (
				badge_id VARCHAR(64) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				icon VARCHAR(32) NOT NULL DEFAULT '',
				rarity VARCHAR(16) NOT NULL
			);
			CREATE TABLE IF NOT EXISTS user_badges (
				user_id BIGINT NOT NULL,
				badge_id VARCHAR(64) NOT NULL REFERENCES badges(badge_id),
				unlocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (user_id, badge_id)
			);
		`,
	},
	{
		name: "checkins table",
		sql: `
			CREATE TABLE IF NOT EXISTS checkins (
				user_id BIGINT NOT NULL,
				checkin_date DATE NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (user_id, checkin_date)
			);
		`,
	},
	{
		name: "daily_action_counts table",
		sql: `
			CREATE TABLE IF NOT EXISTS daily_action_counts (
				user_id BIGINT NOT NULL,
				action VARCHAR(64) NOT NULL,
				action_date DATE NOT NULL,
				count INT NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, action, action_date)
			);
			CREATE OR REPLACE FUNCTION increment_daily_action_count(p_user_id BIGINT, p_action VARCHAR, p_date DATE)
			RETURNS INT AS $$
				INSERT INTO daily_action_counts (user_id, action, action_date, count)
				VALUES (p_user_id, p_action, p_date, 1)
				ON CONFLICT (user_id, action, action_date)
				DO UPDATE SET count = daily_action_counts.count + 1
				RETURNING count;
			$$ LANGUAGE sql;
		`,
	},
	{
		// Content tables are owned by the CMS; these only guarantee the counts resolve.
		name: "content tables",
		sql: `
			CREATE TABLE IF NOT EXISTS posts (id BIGSERIAL PRIMARY KEY, author_id BIGINT NOT NULL, created_at TIMESTAMPTZ NOT NULL DEFAULT NOW());
			CREATE TABLE IF NOT EXISTS projects (id BIGSERIAL PRIMARY KEY, owner_id BIGINT NOT NULL, created_at TIMESTAMPTZ NOT NULL DEFAULT NOW());
			CREATE TABLE IF NOT EXISTS team_members (team_id BIGINT NOT NULL, user_id BIGINT NOT NULL, PRIMARY KEY (team_id, user_id));
			CREATE TABLE IF NOT EXISTS event_registrations (event_id BIGINT NOT NULL, user_id BIGINT NOT NULL, PRIMARY KEY (event_id, user_id));
			CREATE TABLE IF NOT EXISTS comments (id BIGSERIAL PRIMARY KEY, author_id BIGINT NOT NULL, created_at TIMESTAMPTZ NOT NULL DEFAULT NOW());
			CREATE TABLE IF NOT EXISTS likes (post_id BIGINT NOT NULL, user_id BIGINT NOT NULL, PRIMARY KEY (post_id, user_id));
			CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id);
			CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id);
			CREATE INDEX IF NOT EXISTS idx_comments_author ON comments(author_id);
		`,
	},
}

// Migrate applies the database schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Info().Int("migration", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}

// Package model defines the data models for the gamification engine.
package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents a Telegram user together with their progression aggregate.
// TotalXP is the only stored input; Level and Rank are derived from it by the ledger.
type User struct {
	TelegramID int64     `db:"telegram_id"`
	Username   string    `db:"username"`
	TotalXP    int64     `db:"total_xp"`
	Level      int       `db:"level"`
	Rank       string    `db:"rank"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Progression is the mutable part of the user aggregate written by the XP ledger.
type Progression struct {
	TotalXP int64
	Level   int
	Rank    string
}

// XPTransaction is an append-only audit record of one XP change.
type XPTransaction struct {
	ID        uuid.UUID      `db:"id"`
	UserID    int64          `db:"user_id"`
	Activity  Activity       `db:"activity"`
	XPDelta   int64          `db:"xp_delta"`
	Details   map[string]any `db:"details"`
	CreatedAt time.Time      `db:"created_at"`
}

// DailyXP is a user's XP total for one calendar day, used by the daily leaderboard.
type DailyXP struct {
	UserID   int64  `db:"user_id"`
	Username string `db:"username"`
	XP       int64  `db:"xp"`
}

// Activity identifies what earned (or cost) XP and which rate rule applies.
type Activity string

// Known activities. Rewards and rate rules for each are configured in config.yaml.
const (
	ActivityDailyCheckin  Activity = "daily_checkin"
	ActivityChatMessage   Activity = "chat_message"
	ActivityCreatePost    Activity = "create_post"
	ActivityCreateComment Activity = "create_comment"
	ActivityLikePost      Activity = "like_post"
	ActivityCreateProject Activity = "create_project"
	ActivityJoinTeam      Activity = "join_team"
	ActivityLeaveTeam     Activity = "leave_team"
	ActivityAttendEvent   Activity = "attend_event"
	ActivityAdminAdjust   Activity = "admin_adjust"
)

// Checkin is one calendar day on which a user checked in.
type Checkin struct {
	UserID int64     `db:"user_id"`
	Date   time.Time `db:"checkin_date"`
}

// EntityKind names a countable collection owned by the content side of the platform.
type EntityKind string

// Countable entity kinds used by activity-count badges.
const (
	EntityPosts    EntityKind = "posts"
	EntityProjects EntityKind = "projects"
	EntityTeams    EntityKind = "teams"
	EntityEvents   EntityKind = "events"
	EntityComments EntityKind = "comments"
	EntityLikes    EntityKind = "likes"
)

// EntityKinds returns every countable entity kind.
func EntityKinds() []EntityKind {
	return []EntityKind{EntityPosts, EntityProjects, EntityTeams, EntityEvents, EntityComments, EntityLikes}
}

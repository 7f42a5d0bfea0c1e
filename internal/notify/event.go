// Package notify delivers progression events (level-ups, rank-ups, badge unlocks)
// to external sinks. Delivery is best-effort and never blocks an XP award.
package notify

import (
	"context"
	"fmt"
	"time"

	"gamification-bot/internal/model"
)

// EventType identifies what happened.
type EventType string

// Event types.
const (
	EventLevelUp       EventType = "level_up"
	EventRankUp        EventType = "rank_up"
	EventBadgeUnlocked EventType = "badge_unlocked"
)

// Event is a single progression notification.
type Event struct {
	Type       EventType              `json:"type"`
	UserID     int64                  `json:"user_id"`
	OldLevel   int                    `json:"old_level,omitempty"`
	NewLevel   int                    `json:"new_level,omitempty"`
	OldRank    string                 `json:"old_rank,omitempty"`
	NewRank    string                 `json:"new_rank,omitempty"`
	Badge      *model.BadgeDefinition `json:"badge,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Text renders the event as a short chat message.
func (e Event) Text() string {
	switch e.Type {
	case EventLevelUp:
		return fmt.Sprintf("⬆️ Level up! You are now level %d.", e.NewLevel)
	case EventRankUp:
		return fmt.Sprintf("🏅 New rank: %s (was %s).", e.NewRank, e.OldRank)
	case EventBadgeUnlocked:
		if e.Badge != nil {
			return fmt.Sprintf("%s Badge unlocked: %s (%s)", e.Badge.Icon, e.Badge.Name, e.Badge.Rarity)
		}
		return "Badge unlocked!"
	}
	return string(e.Type)
}

// Sink delivers events somewhere.
type Sink interface {
	Name() string
	Send(ctx context.Context, events []Event) error
}

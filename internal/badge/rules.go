// Package badge evaluates badge unlock rules after an XP change.
package badge

import (
	"fmt"

	"gamification-bot/internal/model"
)

// Category groups rules that are evaluated and fail together.
type Category string

// Rule categories.
const (
	CategoryMilestone Category = "milestone"
	CategoryStreak    Category = "streak"
	CategoryActivity  Category = "activity"
)

// Rule unlocks Badge once its condition holds.
//
//   - milestone: fires when an award crosses Threshold XP (oldXP < Threshold <= newXP).
//   - streak: fires while the check-in streak is at least Threshold.
//   - activity: fires while the user's count of Entity is at least Threshold.
type Rule struct {
	Category  Category
	Threshold int64
	Entity    model.EntityKind
	Badge     model.BadgeDefinition
}

func milestone(xp int64, name, description, icon string, rarity model.Rarity) Rule {
	return Rule{
		Category:  CategoryMilestone,
		Threshold: xp,
		Badge: model.BadgeDefinition{
			BadgeID:     fmt.Sprintf("xp_%d", xp),
			Name:        name,
			Description: description,
			Icon:        icon,
			Rarity:      rarity,
		},
	}
}

func streakRule(days int64, name, description, icon string, rarity model.Rarity) Rule {
	return Rule{
		Category:  CategoryStreak,
		Threshold: days,
		Badge: model.BadgeDefinition{
			BadgeID:     fmt.Sprintf("streak_%d", days),
			Name:        name,
			Description: description,
			Icon:        icon,
			Rarity:      rarity,
		},
	}
}

func activity(kind model.EntityKind, count int64, name, description, icon string, rarity model.Rarity) Rule {
	return Rule{
		Category:  CategoryActivity,
		Threshold: count,
		Entity:    kind,
		Badge: model.BadgeDefinition{
			BadgeID:     fmt.Sprintf("%s_%d", kind, count),
			Name:        name,
			Description: description,
			Icon:        icon,
			Rarity:      rarity,
		},
	}
}

// DefaultRules returns the built-in badge catalogue.
func DefaultRules() []Rule {
	return []Rule{
		milestone(100, "First Steps", "Earned your first 100 XP", "🌱", model.RarityCommon),
		milestone(500, "Rising Star", "Reached 500 XP", "⭐", model.RarityUncommon),
		milestone(1000, "Powerhouse", "Reached 1,000 XP", "⚡", model.RarityRare),
		milestone(2500, "Veteran", "Reached 2,500 XP", "🛡️", model.RarityEpic),
		milestone(5000, "Titan", "Reached 5,000 XP", "🏔️", model.RarityEpic),
		milestone(10000, "Living Legend", "Reached 10,000 XP", "👑", model.RarityLegendary),

		streakRule(3, "Warming Up", "Checked in 3 days in a row", "🔥", model.RarityCommon),
		streakRule(7, "Week Warrior", "Checked in 7 days in a row", "📅", model.RarityUncommon),
		streakRule(30, "Monthly Devotee", "Checked in 30 days in a row", "🗓️", model.RarityRare),
		streakRule(100, "Unstoppable", "Checked in 100 days in a row", "💯", model.RarityLegendary),

		activity(model.EntityPosts, 1, "First Post", "Published your first post", "✍️", model.RarityCommon),
		activity(model.EntityPosts, 10, "Storyteller", "Published 10 posts", "📚", model.RarityUncommon),
		activity(model.EntityPosts, 50, "Prolific Author", "Published 50 posts", "🖋️", model.RarityRare),
		activity(model.EntityProjects, 1, "Builder", "Created your first project", "🛠️", model.RarityCommon),
		activity(model.EntityProjects, 5, "Serial Builder", "Created 5 projects", "🏗️", model.RarityRare),
		activity(model.EntityTeams, 1, "Team Player", "Joined your first team", "🤝", model.RarityCommon),
		activity(model.EntityTeams, 3, "Connector", "Joined 3 teams", "🕸️", model.RarityUncommon),
		activity(model.EntityEvents, 1, "Event Goer", "Registered for your first event", "🎟️", model.RarityCommon),
		activity(model.EntityEvents, 10, "Regular", "Registered for 10 events", "🎪", model.RarityRare),
		activity(model.EntityComments, 10, "Conversationalist", "Wrote 10 comments", "💬", model.RarityCommon),
		activity(model.EntityComments, 100, "Community Voice", "Wrote 100 comments", "📣", model.RarityEpic),
		activity(model.EntityLikes, 50, "Supporter", "Liked 50 posts", "❤️", model.RarityUncommon),
	}
}

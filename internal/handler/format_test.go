package handler

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"gamification-bot/internal/badge"
	"gamification-bot/internal/model"
	"gamification-bot/internal/progression"
	"gamification-bot/internal/ratelimit"
	"gamification-bot/internal/service"
)

var now = time.Date(2025, time.June, 1, 22, 0, 0, 0, time.UTC)

func TestFormatRateLimit(t *testing.T) {
	cooldown := ratelimit.Result{Reason: ratelimit.ReasonCooldown, Remaining: 42}
	assert.Equal(t, "⏳ Slow down! Try again in 42 seconds.", FormatRateLimit(cooldown, now))

	daily := ratelimit.Result{Reason: ratelimit.ReasonDailyLimit, ResetTime: now.Add(2 * time.Hour)}
	assert.Equal(t, "📅 Daily limit reached. Resets in 2h0m0s.", FormatRateLimit(daily, now))

	assert.Equal(t, "⏳ Please try again later.", FormatRateLimit(ratelimit.Result{}, now))
}

func TestFormatAward(t *testing.T) {
	assert.Empty(t, FormatAward(service.AwardResult{Success: true}))

	award := service.AwardResult{
		Success:   true,
		LeveledUp: true, OldLevel: 1, NewLevel: 2,
		RankedUp: true, NewRank: "Explorer",
		BadgesUnlocked: []badge.UnlockedBadge{{
			Badge: model.BadgeDefinition{BadgeID: "xp_100", Name: "First Steps", Icon: "🌱", Rarity: model.RarityCommon},
		}},
	}
	lines := strings.Split(FormatAward(award), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "⬆️ Level 1 → 2", lines[0])
	assert.Equal(t, "🏅 Rank: Explorer", lines[1])
	assert.Equal(t, "🌱 New badge: First Steps (common)", lines[2])
}

func TestFormatCheckin(t *testing.T) {
	allowed := ratelimit.Result{Allowed: true}

	assert.Equal(t, "✅ You already checked in today.",
		FormatCheckin(service.CheckinOutcome{RateLimit: allowed, AlreadyCheckedIn: true}, now))

	rejected := service.CheckinOutcome{RateLimit: ratelimit.Result{Reason: ratelimit.ReasonDailyLimit, ResetTime: now.Add(time.Hour)}}
	assert.Contains(t, FormatCheckin(rejected, now), "Daily limit reached")

	ok := service.CheckinOutcome{
		RateLimit: allowed,
		Date:      time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		Streak:    4,
		Award:     service.AwardResult{Success: true, NewXP: 40},
	}
	msg := FormatCheckin(ok, now)
	assert.Contains(t, msg, "2025-06-01")
	assert.Contains(t, msg, "Streak: 4")
	assert.Contains(t, msg, "XP: 40")
}

func TestFormatProfile(t *testing.T) {
	next, hasNext := progression.NextRank(250)
	p := &service.Profile{
		User:        &model.User{TelegramID: 5, Username: "alice", TotalXP: 250, Level: 3, Rank: "Explorer"},
		XPIntoLevel: 50,
		NextRank:    next,
		HasNextRank: hasNext,
		Streak:      2,
		Badges:      []model.UserBadge{{Badge: model.BadgeDefinition{BadgeID: "xp_100"}}},
	}

	msg := FormatProfile(p)
	assert.Contains(t, msg, "@alice")
	assert.Contains(t, msg, "Rank: Explorer (2/9)")
	assert.Contains(t, msg, "Level 3 ▰▰▰▰▰▱▱▱▱▱ 50/100")
	assert.Contains(t, msg, "Next: Builder at 300 XP ▰▰▰▰▰▰▰▱▱▱")
	assert.Contains(t, msg, "Streak: 2")
	assert.Contains(t, msg, "Badges: 1")

	p.HasNextRank = false
	assert.Contains(t, FormatProfile(p), "Highest rank reached")

	p.User.Rank = "Retired"
	assert.Contains(t, FormatProfile(p), "Rank: Retired\n")
}

func TestFormatBadges(t *testing.T) {
	assert.Equal(t, "🎖 No badges yet. Keep going!", FormatBadges(nil))

	msg := FormatBadges([]model.UserBadge{{
		Badge:      model.BadgeDefinition{Name: "Week Warrior", Icon: "📅", Rarity: model.RarityUncommon},
		UnlockedAt: now,
	}})
	assert.Contains(t, msg, "📅 Week Warrior [uncommon] 2025-06-01")
}

func TestFormatLeaderboards(t *testing.T) {
	assert.Equal(t, "📊 No ranking data yet", FormatLeaderboard(nil))
	assert.Equal(t, "📊 Nobody has earned XP today yet", FormatDailyLeaders(nil))

	users := []*model.User{
		{TelegramID: 1, Username: "a", TotalXP: 900, Rank: "Contributor"},
		{TelegramID: 2, TotalXP: 500, Rank: "Builder"},
		{TelegramID: 3, Username: "c", TotalXP: 300, Rank: "Builder"},
		{TelegramID: 4, Username: "d", TotalXP: 10, Rank: "Newcomer"},
	}
	msg := FormatLeaderboard(users)
	assert.Contains(t, msg, "🥇 @a: 900 XP (Contributor)")
	assert.Contains(t, msg, "🥈 User2: 500 XP (Builder)")
	assert.Contains(t, msg, "4. @d: 10 XP (Newcomer)")

	daily := FormatDailyLeaders([]*model.DailyXP{{UserID: 9, Username: "z", XP: 31}})
	assert.Contains(t, daily, "🥇 @z: +31 XP")
}

func TestProgressBarClamps(t *testing.T) {
	assert.Equal(t, "▱▱▱▱▱▱▱▱▱▱", progressBar(-1))
	assert.Equal(t, "▰▰▰▰▰▰▰▰▰▰", progressBar(2))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "bob", displayName(&tele.User{Username: "bob", FirstName: "Bob"}))
	assert.Equal(t, "Bob", displayName(&tele.User{FirstName: "Bob"}))
}

func TestParseAdminXPArgs(t *testing.T) {
	id, amount, err := parseAdminXPArgs([]string{"123", "-50"})
	require.NoError(t, err)
	assert.Equal(t, int64(123), id)
	assert.Equal(t, int64(-50), amount)

	_, _, err = parseAdminXPArgs([]string{"123"})
	assert.EqualError(t, err, usageAdminXP)

	_, _, err = parseAdminXPArgs([]string{"abc", "5"})
	assert.Error(t, err)

	_, _, err = parseAdminXPArgs([]string{"1", "5.5"})
	assert.Error(t, err)
}

func TestFindBadge(t *testing.T) {
	def, ok := findBadge(badge.DefaultRules(), "streak_7")
	require.True(t, ok)
	assert.Equal(t, "Week Warrior", def.Name)

	_, ok = findBadge(badge.DefaultRules(), "nope")
	assert.False(t, ok)
}

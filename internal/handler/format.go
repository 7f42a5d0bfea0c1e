package handler

import (
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"gamification-bot/internal/badge"
	"gamification-bot/internal/model"
	"gamification-bot/internal/progression"
	"gamification-bot/internal/ratelimit"
	"gamification-bot/internal/service"
)

const divider = "━━━━━━━━━━━━━━━"

var medals = []string{"🥇", "🥈", "🥉"}

// displayName picks a readable name for a Telegram user.
func displayName(sender *tele.User) string {
	if sender.Username != "" {
		return sender.Username
	}
	return sender.FirstName
}

func userLabel(username string, id int64) string {
	if username == "" {
		return fmt.Sprintf("User%d", id)
	}
	return "@" + username
}

func placeLabel(i int) string {
	if i < len(medals) {
		return medals[i]
	}
	return fmt.Sprintf("%d.", i+1)
}

// FormatRateLimit renders a rejected rate-limit result.
func FormatRateLimit(r ratelimit.Result, now time.Time) string {
	switch r.Reason {
	case ratelimit.ReasonCooldown:
		return fmt.Sprintf("⏳ Slow down! Try again in %d seconds.", r.Remaining)
	case ratelimit.ReasonDailyLimit:
		left := r.ResetTime.Sub(now).Round(time.Minute)
		if left < 0 {
			left = 0
		}
		return fmt.Sprintf("📅 Daily limit reached. Resets in %s.", left)
	}
	return "⏳ Please try again later."
}

// FormatAward renders the highlights of an XP award. Empty when nothing notable happened.
func FormatAward(award service.AwardResult) string {
	var lines []string
	if award.LeveledUp {
		lines = append(lines, fmt.Sprintf("⬆️ Level %d → %d", award.OldLevel, award.NewLevel))
	}
	if award.RankedUp {
		lines = append(lines, fmt.Sprintf("🏅 Rank: %s", award.NewRank))
	}
	for _, b := range award.BadgesUnlocked {
		lines = append(lines, formatUnlocked(b))
	}
	return strings.Join(lines, "\n")
}

func formatUnlocked(b badge.UnlockedBadge) string {
	return fmt.Sprintf("%s New badge: %s (%s)", b.Badge.Icon, b.Badge.Name, b.Badge.Rarity)
}

// FormatCheckin renders a check-in outcome.
func FormatCheckin(o service.CheckinOutcome, now time.Time) string {
	if !o.RateLimit.Allowed {
		return FormatRateLimit(o.RateLimit, now)
	}
	if o.AlreadyCheckedIn {
		return "✅ You already checked in today."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ Checked in for %s\n", o.Date.Format(time.DateOnly))
	fmt.Fprintf(&b, "🔥 Streak: %d day(s)\n", o.Streak)
	fmt.Fprintf(&b, "✨ XP: %d", o.Award.NewXP)
	if extra := FormatAward(o.Award); extra != "" {
		b.WriteString("\n" + extra)
	}
	return b.String()
}

// progressBar draws a ten-cell bar for a fraction in [0,1].
func progressBar(fraction float64) string {
	filled := int(fraction * 10)
	filled = min(max(filled, 0), 10)
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}

// rankPosition returns the 1-based tier of a rank name and the tier count.
// The tier is 0 for names missing from the table.
func rankPosition(name string) (int, int) {
	table := progression.Ranks()
	for i, r := range table {
		if r.Name == name {
			return i + 1, len(table)
		}
	}
	return 0, len(table)
}

// FormatProfile renders a profile card.
func FormatProfile(p *service.Profile) string {
	var b strings.Builder
	b.WriteString("📊 Profile\n" + divider + "\n")
	fmt.Fprintf(&b, "👤 %s\n", userLabel(p.User.Username, p.User.TelegramID))
	fmt.Fprintf(&b, "✨ XP: %d\n", p.User.TotalXP)
	fmt.Fprintf(&b, "🎚 Level %d %s %d/%d\n", p.User.Level,
		progressBar(float64(p.XPIntoLevel)/progression.XPPerLevel), p.XPIntoLevel, progression.XPPerLevel)
	if tier, total := rankPosition(p.User.Rank); tier > 0 {
		fmt.Fprintf(&b, "🏅 Rank: %s (%d/%d)\n", p.User.Rank, tier, total)
	} else {
		fmt.Fprintf(&b, "🏅 Rank: %s\n", p.User.Rank)
	}
	if p.HasNextRank {
		fmt.Fprintf(&b, "➡️ Next: %s at %d XP %s\n", p.NextRank.Name, p.NextRank.MinXP, progressBar(p.NextRank.Progress))
	} else {
		b.WriteString("👑 Highest rank reached\n")
	}
	fmt.Fprintf(&b, "🔥 Streak: %d day(s)\n", p.Streak)
	fmt.Fprintf(&b, "🎖 Badges: %d\n", len(p.Badges))
	b.WriteString(divider)
	return b.String()
}

// FormatBadges renders an owned badge list.
func FormatBadges(badges []model.UserBadge) string {
	if len(badges) == 0 {
		return "🎖 No badges yet. Keep going!"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎖 Your badges (%d)\n%s\n", len(badges), divider)
	for _, ub := range badges {
		fmt.Fprintf(&b, "%s %s [%s] %s\n", ub.Badge.Icon, ub.Badge.Name, ub.Badge.Rarity, ub.UnlockedAt.Format(time.DateOnly))
	}
	b.WriteString(divider)
	return b.String()
}

// FormatLeaderboard renders the all-time XP leaderboard.
func FormatLeaderboard(users []*model.User) string {
	if len(users) == 0 {
		return "📊 No ranking data yet"
	}

	var b strings.Builder
	b.WriteString("🏆 XP leaderboard\n" + divider + "\n")
	for i, u := range users {
		fmt.Fprintf(&b, "%s %s: %d XP (%s)\n", placeLabel(i), userLabel(u.Username, u.TelegramID), u.TotalXP, u.Rank)
	}
	b.WriteString(divider)
	return b.String()
}

// FormatDailyLeaders renders today's XP earners.
func FormatDailyLeaders(leaders []*model.DailyXP) string {
	if len(leaders) == 0 {
		return "📊 Nobody has earned XP today yet"
	}

	var b strings.Builder
	b.WriteString("📈 Today's top earners\n" + divider + "\n")
	for i, l := range leaders {
		fmt.Fprintf(&b, "%s %s: +%d XP\n", placeLabel(i), userLabel(l.Username, l.UserID), l.XP)
	}
	b.WriteString(divider)
	return b.String()
}

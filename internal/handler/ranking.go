package handler

import (
	"context"

	tele "gopkg.in/telebot.v3"

	"gamification-bot/internal/service"
)

// LeaderboardSize is how many entries the ranking commands show.
const LeaderboardSize = 10

// RankingHandler handles leaderboard commands.
type RankingHandler struct {
	profiles *service.ProfileService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(profiles *service.ProfileService) *RankingHandler {
	return &RankingHandler{profiles: profiles}
}

// HandleTop handles the /top command.
func (h *RankingHandler) HandleTop(c tele.Context) error {
	users, err := h.profiles.Leaderboard(context.Background(), LeaderboardSize)
	if err != nil {
		return c.Reply("❌ Could not load the leaderboard, please try again later")
	}
	return c.Reply(FormatLeaderboard(users))
}

// HandleToday handles the /today command.
func (h *RankingHandler) HandleToday(c tele.Context) error {
	leaders, err := h.profiles.DailyLeaders(context.Background(), LeaderboardSize)
	if err != nil {
		return c.Reply("❌ Could not load today's ranking, please try again later")
	}
	return c.Reply(FormatDailyLeaders(leaders))
}

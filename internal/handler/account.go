// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"gamification-bot/internal/repository"
	"gamification-bot/internal/service"
)

// AccountHandler handles registration, check-ins and profile commands.
type AccountHandler struct {
	accounts *service.AccountService
	checkins *service.CheckinService
	profiles *service.ProfileService
	now      func() time.Time
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts *service.AccountService, checkins *service.CheckinService, profiles *service.ProfileService) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		checkins: checkins,
		profiles: profiles,
		now:      time.Now,
	}
}

// HandleStart handles the /start command.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	name := displayName(sender)
	user, created, err := h.accounts.EnsureUser(context.Background(), sender.ID, name)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to ensure user")
		return c.Reply("❌ Could not create your account, please try again later")
	}

	if created {
		return c.Reply(fmt.Sprintf(
			"🎉 Welcome @%s!\n\n"+
				"Earn XP by chatting and checking in every day.\n\n"+
				"Commands:\n"+
				"/checkin - daily check-in\n"+
				"/profile - level, rank and streak\n"+
				"/badges - your badges\n"+
				"/top - XP leaderboard\n"+
				"/today - today's top earners",
			name,
		))
	}

	return c.Reply(fmt.Sprintf("👋 Welcome back @%s! You have %d XP (%s).", name, user.TotalXP, user.Rank))
}

// HandleCheckin handles the /checkin command.
func (h *AccountHandler) HandleCheckin(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if _, _, err := h.accounts.EnsureUser(ctx, sender.ID, displayName(sender)); err != nil {
		return c.Reply("❌ Operation failed, please try again later")
	}

	outcome, err := h.checkins.CheckIn(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Check-in failed")
		return c.Reply("❌ Check-in failed, please try again later")
	}

	return c.Reply(FormatCheckin(outcome, h.now()))
}

// HandleProfile handles the /profile command.
func (h *AccountHandler) HandleProfile(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	profile, err := h.profiles.Profile(ctx, sender.ID)
	if errors.Is(err, repository.ErrNotFound) {
		if _, _, err = h.accounts.EnsureUser(ctx, sender.ID, displayName(sender)); err == nil {
			profile, err = h.profiles.Profile(ctx, sender.ID)
		}
	}
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load profile")
		return c.Reply("❌ Could not load your profile, please try again later")
	}

	return c.Reply(FormatProfile(profile))
}

// HandleBadges handles the /badges command.
func (h *AccountHandler) HandleBadges(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	badges, err := h.profiles.Badges(context.Background(), sender.ID)
	if err != nil {
		return c.Reply("❌ Could not load your badges, please try again later")
	}

	return c.Reply(FormatBadges(badges))
}

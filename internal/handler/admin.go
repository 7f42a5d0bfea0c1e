package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"gamification-bot/internal/badge"
	"gamification-bot/internal/model"
	"gamification-bot/internal/repository"
	"gamification-bot/internal/service"
)

const (
	usageAdminXP    = "❌ Usage: /admin_xp <user_id> <amount>\nExample: /admin_xp 123456789 -50"
	usageAdminBadge = "❌ Usage: /admin_badge <user_id> <badge_id>\nExample: /admin_badge 123456789 streak_7"
)

var errUnknownBadge = errors.New("unknown badge")

type userLookup interface {
	GetUser(ctx context.Context, telegramID int64) (*model.User, error)
}

type badgeGranter interface {
	Rules() []badge.Rule
	AwardBadgeIfEligible(ctx context.Context, userID int64, def model.BadgeDefinition) (model.BadgeDefinition, bool, error)
}

// AdminHandler handles admin-only commands.
type AdminHandler struct {
	accounts   userLookup
	activities *service.ActivityService
	badges     badgeGranter
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accounts *service.AccountService, activities *service.ActivityService, badges *badge.Engine) *AdminHandler {
	return &AdminHandler{accounts: accounts, activities: activities, badges: badges}
}

// HandleAdminXP handles /admin_xp <user_id> <amount>. Negative amounts deduct XP.
func (h *AdminHandler) HandleAdminXP(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	targetID, amount, err := parseAdminXPArgs(c.Args())
	if err != nil {
		return c.Reply(err.Error())
	}

	award, err := h.activities.Adjust(context.Background(), sender.ID, targetID, amount)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Reply("❌ User not found")
		}
		if errors.Is(err, service.ErrInvalidAmount) {
			return c.Reply("❌ Amount must not be zero")
		}
		log.Error().Err(err).Int64("target_id", targetID).Msg("Admin XP adjustment failed")
		return c.Reply("❌ Operation failed, please try again later")
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Int64("amount", amount).
		Str("operation", "admin_xp").
		Msg("Admin operation executed")

	msg := fmt.Sprintf("✅ Done\n\n👤 User ID: %d\n±  Change: %+d XP\n✨ Total: %d XP (level %d, %s)",
		targetID, amount, award.NewXP, award.NewLevel, award.NewRank)
	if extra := FormatAward(award); extra != "" {
		msg += "\n" + extra
	}
	return c.Reply(msg)
}

// HandleAdminBadge handles /admin_badge <user_id> <badge_id>, granting a catalogue badge directly.
func (h *AdminHandler) HandleAdminBadge(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply(usageAdminBadge)
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Reply("❌ Invalid user ID, expected a number")
	}

	def, inserted, err := grantBadge(context.Background(), h.accounts, h.badges, targetID, args[1])
	if err != nil {
		switch {
		case errors.Is(err, errUnknownBadge):
			return c.Reply(fmt.Sprintf("❌ Unknown badge %q", args[1]))
		case errors.Is(err, repository.ErrNotFound):
			return c.Reply("❌ User not found")
		}
		log.Error().Err(err).Int64("target_id", targetID).Str("badge_id", args[1]).Msg("Admin badge grant failed")
		return c.Reply("❌ Operation failed, please try again later")
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Str("badge_id", def.BadgeID).
		Bool("inserted", inserted).
		Str("operation", "admin_badge").
		Msg("Admin operation executed")

	if !inserted {
		return c.Reply(fmt.Sprintf("ℹ️ User %d already has %s", targetID, def.Name))
	}
	return c.Reply(fmt.Sprintf("✅ Granted %s %s to user %d", def.Icon, def.Name, targetID))
}

// grantBadge gives an existing user a catalogue badge. The user must already be registered.
func grantBadge(ctx context.Context, users userLookup, badges badgeGranter, targetID int64, badgeID string) (model.BadgeDefinition, bool, error) {
	def, ok := findBadge(badges.Rules(), badgeID)
	if !ok {
		return model.BadgeDefinition{}, false, errUnknownBadge
	}
	if _, err := users.GetUser(ctx, targetID); err != nil {
		return def, false, err
	}
	return badges.AwardBadgeIfEligible(ctx, targetID, def)
}

func findBadge(rules []badge.Rule, badgeID string) (model.BadgeDefinition, bool) {
	for _, r := range rules {
		if r.Badge.BadgeID == badgeID {
			return r.Badge, true
		}
	}
	return model.BadgeDefinition{}, false
}

func parseAdminXPArgs(args []string) (int64, int64, error) {
	if len(args) < 2 {
		return 0, 0, errors.New(usageAdminXP)
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, errors.New("❌ Invalid user ID, expected a number")
	}

	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, errors.New("❌ Invalid amount, expected an integer")
	}

	return targetID, amount, nil
}

package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"gamification-bot/internal/model"
	"gamification-bot/internal/service"
)

// ActivityHandler awards XP for group chat participation.
type ActivityHandler struct {
	accounts   *service.AccountService
	activities *service.ActivityService
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(accounts *service.AccountService, activities *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{accounts: accounts, activities: activities}
}

// HandleText awards chat_message XP for plain group messages.
// Rate-limited messages are ignored silently; level-ups are announced in the chat.
func (h *ActivityHandler) HandleText(c tele.Context) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil || sender.IsBot {
		return nil
	}
	if chat.Type == tele.ChatPrivate || strings.HasPrefix(c.Text(), "/") {
		return nil
	}

	ctx := context.Background()
	if _, _, err := h.accounts.EnsureUser(ctx, sender.ID, displayName(sender)); err != nil {
		log.Warn().Err(err).Int64("user_id", sender.ID).Msg("Failed to ensure user for chat XP")
		return nil
	}

	outcome, err := h.activities.Perform(ctx, sender.ID, model.ActivityChatMessage, map[string]any{
		"chat_id": chat.ID,
	})
	if err != nil {
		log.Warn().Err(err).Int64("user_id", sender.ID).Msg("Failed to award chat XP")
		return nil
	}
	if !outcome.RateLimit.Allowed || !outcome.Award.LeveledUp {
		return nil
	}

	return c.Reply(fmt.Sprintf("🎉 @%s reached level %d!", displayName(sender), outcome.Award.NewLevel))
}

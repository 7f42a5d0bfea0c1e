// Package bot sets up the Telegram bot and registers its handlers.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"gamification-bot/internal/badge"
	"gamification-bot/internal/config"
	"gamification-bot/internal/handler"
	"gamification-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot   *tele.Bot
	cfg   *config.Config
	known *KnownUsers

	accountHandler  *handler.AccountHandler
	rankingHandler  *handler.RankingHandler
	adminHandler    *handler.AdminHandler
	activityHandler *handler.ActivityHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config          *config.Config
	AccountService  *service.AccountService
	ActivityService *service.ActivityService
	CheckinService  *service.CheckinService
	ProfileService  *service.ProfileService
	BadgeEngine     *badge.Engine
}

// NewTeleBot creates the underlying telebot client without registering handlers.
func NewTeleBot(cfg *config.Config) (*tele.Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	timeout := cfg.Bot.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	teleBot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return teleBot, nil
}

// New wires handlers onto teleBot.
func New(teleBot *tele.Bot, deps *Dependencies) *Bot {
	b := &Bot{
		bot:   teleBot,
		cfg:   deps.Config,
		known: NewKnownUsers(),

		accountHandler:  handler.NewAccountHandler(deps.AccountService, deps.CheckinService, deps.ProfileService),
		rankingHandler:  handler.NewRankingHandler(deps.ProfileService),
		adminHandler:    handler.NewAdminHandler(deps.AccountService, deps.ActivityService, deps.BadgeEngine),
		activityHandler: handler.NewActivityHandler(deps.AccountService, deps.ActivityService),
	}

	b.registerMiddleware()
	b.registerHandlers()
	return b
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.known))
	b.bot.Use(LoggingMiddleware())
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/checkin", b.accountHandler.HandleCheckin)
	b.bot.Handle("/profile", b.accountHandler.HandleProfile)
	b.bot.Handle("/badges", b.accountHandler.HandleBadges)

	b.bot.Handle("/top", b.rankingHandler.HandleTop)
	b.bot.Handle("/today", b.rankingHandler.HandleToday)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/admin_xp", b.adminHandler.HandleAdminXP)
	adminGroup.Handle("/admin_badge", b.adminHandler.HandleAdminBadge)

	b.bot.Handle(tele.OnText, b.activityHandler.HandleText)
}

// Start starts long polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot")
	b.bot.Start()
}

// Stop stops polling.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot")
	b.bot.Stop()
}

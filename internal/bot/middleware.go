package bot

import (
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"gamification-bot/internal/config"
)

// KnownUsers remembers users seen in whitelisted groups so they may also use
// the bot in private chat.
type KnownUsers struct {
	mu    sync.RWMutex
	users map[int64]struct{}
}

// NewKnownUsers creates an empty KnownUsers set.
func NewKnownUsers() *KnownUsers {
	return &KnownUsers{users: make(map[int64]struct{})}
}

// Add marks userID as known.
func (k *KnownUsers) Add(userID int64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.users[userID] = struct{}{}
}

// Contains reports whether userID is known.
func (k *KnownUsers) Contains(userID int64) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.users[userID]
	return ok
}

// WhitelistMiddleware drops updates from chats outside the whitelist.
// Private chats are allowed for users already seen in a whitelisted group,
// or for everyone when the whitelist is empty.
func WhitelistMiddleware(cfg *config.Config, known *KnownUsers) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()
			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				if known.Contains(sender.ID) || len(cfg.Whitelist.Chats) == 0 {
					return next(c)
				}
				log.Debug().
					Int64("user_id", sender.ID).
					Msg("Ignoring private chat from unknown user")
				return nil
			}

			if !cfg.IsChatAllowed(chat.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Msg("Ignoring update from non-whitelisted chat")
				return nil
			}

			known.Add(sender.ID)
			return next(c)
		}
	}
}

// AdminMiddleware rejects commands from users not listed as admins.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			if !cfg.IsAdmin(sender.ID) {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ Permission denied: admin only")
			}

			return next(c)
		}
	}
}

// LoggingMiddleware logs every incoming update at debug level.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			ev := log.Debug()
			if sender := c.Sender(); sender != nil {
				ev = ev.Int64("user_id", sender.ID).Str("username", sender.Username)
			}
			if chat := c.Chat(); chat != nil {
				ev = ev.Int64("chat_id", chat.ID).Str("chat_type", string(chat.Type))
			}
			ev.Str("text", c.Text()).Msg("Received message")

			return next(c)
		}
	}
}

// RecoveryMiddleware turns handler panics into an error reply.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("text", c.Text()).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ Internal error, please try again later")
				}
			}()
			return next(c)
		}
	}
}

// Package ratelimit enforces per-user action cooldowns and daily quotas.
//
// The cooldown is checked first against an in-process cache. The daily quota is
// kept in durable storage keyed by calendar date. When durable storage fails the
// limiter fails open: the action is allowed and a warning is logged.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"gamification-bot/internal/observability"
	"gamification-bot/internal/repository"
)

// Rejection reasons reported in Result.Reason.
const (
	ReasonCooldown   = "Cooldown active"
	ReasonDailyLimit = "Daily limit reached"
)

// DailyCounter is the durable per-day action counter.
// IncrementDailyActionCount may fail with repository.ErrUnsupported, in which case
// the limiter falls back to a read followed by UpsertDailyActionCount.
type DailyCounter interface {
	GetDailyActionCount(ctx context.Context, userID int64, action, day string) (int, error)
	IncrementDailyActionCount(ctx context.Context, userID int64, action, day string) (int, error)
	UpsertDailyActionCount(ctx context.Context, userID int64, action, day string, count int) error
}

// Rule is the limit applied to one action.
// A DailyLimit of zero or less disables the daily quota.
type Rule struct {
	Cooldown   time.Duration
	DailyLimit int
}

// Result is the outcome of a rate limit check.
//
// When the cooldown is active, Remaining is the number of seconds to wait (rounded up).
// Otherwise Remaining is the number of further actions allowed today after this one,
// or -1 when the rule has no daily quota.
type Result struct {
	Allowed   bool
	Reason    string
	Remaining int
	ResetTime time.Time
}

// Limiter combines the cooldown cache with the durable daily counter.
type Limiter struct {
	cooldowns *CooldownCache
	counter   DailyCounter
	location  *time.Location
	now       func() time.Time
	maxAge    time.Duration
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the limiter's clock. The cooldown cache shares it.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithLocation sets the timezone that defines calendar days for the daily quota.
func WithLocation(loc *time.Location) Option {
	return func(l *Limiter) {
		if loc != nil {
			l.location = loc
		}
	}
}

// WithMaxAge sets how long idle cooldown entries are kept.
func WithMaxAge(d time.Duration) Option {
	return func(l *Limiter) {
		l.maxAge = d
	}
}

// New creates a Limiter backed by counter.
func New(counter DailyCounter, opts ...Option) *Limiter {
	l := &Limiter{
		counter:  counter,
		location: time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.cooldowns = NewCooldownCache(l.now, l.maxAge)
	return l
}

// Cooldowns returns the limiter's cooldown cache.
func (l *Limiter) Cooldowns() *CooldownCache {
	return l.cooldowns
}

// CheckRateLimit reports whether userID may perform action now. It does not record anything.
func (l *Limiter) CheckRateLimit(ctx context.Context, userID int64, action string, rule Rule) Result {
	now := l.now()

	if rule.Cooldown > 0 {
		if last, ok := l.cooldowns.Get(userID, action); ok {
			if elapsed := now.Sub(last); elapsed < rule.Cooldown {
				left := rule.Cooldown - elapsed
				observability.RecordRateLimitDecision(action, "cooldown")
				return Result{
					Allowed:   false,
					Reason:    ReasonCooldown,
					Remaining: int((left + time.Second - 1) / time.Second),
					ResetTime: last.Add(rule.Cooldown),
				}
			}
		}
	}

	if rule.DailyLimit <= 0 {
		observability.RecordRateLimitDecision(action, "allowed")
		return Result{Allowed: true, Remaining: -1}
	}

	count, err := l.counter.GetDailyActionCount(ctx, userID, action, l.dayKey(now))
	if err != nil {
		log.Warn().
			Err(err).
			Int64("user_id", userID).
			Str("action", action).
			Msg("Daily action count unavailable, allowing action")
		observability.RecordRateLimitFailOpen(action)
		observability.RecordRateLimitDecision(action, "fail_open")
		return Result{Allowed: true, Remaining: rule.DailyLimit - 1}
	}

	if count >= rule.DailyLimit {
		observability.RecordRateLimitDecision(action, "daily_limit")
		return Result{
			Allowed:   false,
			Reason:    ReasonDailyLimit,
			Remaining: 0,
			ResetTime: l.endOfDay(now),
		}
	}

	observability.RecordRateLimitDecision(action, "allowed")
	return Result{Allowed: true, Remaining: rule.DailyLimit - count - 1}
}

// RecordAction records that userID performed action now.
// The cooldown entry is written first, then the durable counter is incremented.
// Returns false if the durable counter could not be updated.
//
// Without an atomic increment the fallback reads and then upserts; two concurrent
// callers may write the same value and undercount by one.
func (l *Limiter) RecordAction(ctx context.Context, userID int64, action string) bool {
	now := l.now()
	l.cooldowns.Set(userID, action, now)

	day := l.dayKey(now)
	_, err := l.counter.IncrementDailyActionCount(ctx, userID, action, day)
	if err == nil {
		return true
	}

	if errors.Is(err, repository.ErrUnsupported) {
		err = l.readThenUpsert(ctx, userID, action, day)
		if err == nil {
			return true
		}
	}

	log.Warn().
		Err(err).
		Int64("user_id", userID).
		Str("action", action).
		Msg("Failed to record daily action count, continuing")
	observability.RecordRateLimitFailOpen(action)
	return false
}

// CheckAndRecordAction checks the limit and records the action only if it is allowed.
func (l *Limiter) CheckAndRecordAction(ctx context.Context, userID int64, action string, rule Rule) Result {
	result := l.CheckRateLimit(ctx, userID, action, rule)
	if !result.Allowed {
		return result
	}

	l.RecordAction(ctx, userID, action)
	return result
}

func (l *Limiter) readThenUpsert(ctx context.Context, userID int64, action, day string) error {
	count, err := l.counter.GetDailyActionCount(ctx, userID, action, day)
	if err != nil {
		return err
	}
	return l.counter.UpsertDailyActionCount(ctx, userID, action, day, count+1)
}

func (l *Limiter) dayKey(t time.Time) string {
	return t.In(l.location).Format(time.DateOnly)
}

func (l *Limiter) endOfDay(t time.Time) time.Time {
	local := t.In(l.location)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, l.location)
}

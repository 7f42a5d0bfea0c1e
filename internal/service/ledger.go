package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"gamification-bot/internal/badge"
	"gamification-bot/internal/model"
	"gamification-bot/internal/notify"
	"gamification-bot/internal/observability"
	"gamification-bot/internal/pkg/lock"
	"gamification-bot/internal/progression"
)

// ProgressionStore reads and writes the user aggregate.
type ProgressionStore interface {
	GetByID(ctx context.Context, telegramID int64) (*model.User, error)
	UpdateProgression(ctx context.Context, telegramID int64, p model.Progression) (*model.User, error)
}

// TransactionStore appends XP audit records.
type TransactionStore interface {
	Create(ctx context.Context, tx *model.XPTransaction) error
}

// BadgeEvaluator grants badges after an XP change.
type BadgeEvaluator interface {
	EvaluateBadges(ctx context.Context, userID, oldXP, newXP int64) []badge.UnlockedBadge
}

// AwardResult is the outcome of one XP award. It is zero-valued when Success is false.
type AwardResult struct {
	Success        bool
	NewXP          int64
	LeveledUp      bool
	OldLevel       int
	NewLevel       int
	RankedUp       bool
	OldRank        string
	NewRank        string
	BadgesUnlocked []badge.UnlockedBadge
}

// Events converts the result into progression notifications.
func (r AwardResult) Events(userID int64, at time.Time) []notify.Event {
	if !r.Success {
		return nil
	}

	var events []notify.Event
	if r.LeveledUp {
		events = append(events, notify.Event{
			Type:       notify.EventLevelUp,
			UserID:     userID,
			OldLevel:   r.OldLevel,
			NewLevel:   r.NewLevel,
			OccurredAt: at,
		})
	}
	if r.RankedUp {
		events = append(events, notify.Event{
			Type:       notify.EventRankUp,
			UserID:     userID,
			OldRank:    r.OldRank,
			NewRank:    r.NewRank,
			OccurredAt: at,
		})
	}
	for _, b := range r.BadgesUnlocked {
		def := b.Badge
		events = append(events, notify.Event{
			Type:       notify.EventBadgeUnlocked,
			UserID:     userID,
			Badge:      &def,
			OccurredAt: b.UnlockedAt,
		})
	}
	return events
}

// LedgerService is the only writer of a user's XP, level and rank.
type LedgerService struct {
	users        ProgressionStore
	transactions TransactionStore
	badges       BadgeEvaluator
	locks        *lock.UserLock
}

// NewLedgerService creates a LedgerService. A nil locks gets a private UserLock.
func NewLedgerService(users ProgressionStore, transactions TransactionStore, badges BadgeEvaluator, locks *lock.UserLock) *LedgerService {
	if locks == nil {
		locks = lock.NewUserLock()
	}
	return &LedgerService{
		users:        users,
		transactions: transactions,
		badges:       badges,
		locks:        locks,
	}
}

// AwardXP applies amount to the user's total and evaluates badges.
//
// The transaction record is best-effort. A failed aggregate write fails the award
// and returns a zero result. The total stays within [0, math.MaxInt64]; the recorded
// delta is the amount actually applied. Awards for the same user are serialized within
// this process only.
func (s *LedgerService) AwardXP(ctx context.Context, userID, amount int64, activity model.Activity, details map[string]any) (AwardResult, error) {
	if err := s.locks.LockContext(ctx, userID); err != nil {
		return AwardResult{}, fmt.Errorf("failed to lock user %d: %w", userID, err)
	}
	defer s.locks.Unlock(userID)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return AwardResult{}, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	oldXP := user.TotalXP
	newXP := addXP(oldXP, amount)
	oldLevel, newLevel := progression.Level(oldXP), progression.Level(newXP)
	oldRank, newRank := progression.Rank(oldXP), progression.Rank(newXP)
	applied := newXP - oldXP

	tx := &model.XPTransaction{
		UserID:   userID,
		Activity: activity,
		XPDelta:  applied,
		Details:  details,
	}
	if applied != amount {
		tx.Details = withRequested(details, amount)
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		log.Warn().
			Err(err).
			Int64("user_id", userID).
			Str("activity", string(activity)).
			Int64("xp_delta", applied).
			Msg("Failed to record XP transaction, continuing")
	}

	if _, err := s.users.UpdateProgression(ctx, userID, model.Progression{
		TotalXP: newXP,
		Level:   newLevel,
		Rank:    newRank,
	}); err != nil {
		observability.RecordAwardFailure()
		log.Error().
			Err(err).
			Int64("user_id", userID).
			Str("activity", string(activity)).
			Msg("Failed to persist XP aggregate")
		return AwardResult{}, fmt.Errorf("failed to update progression for user %d: %w", userID, err)
	}
	observability.RecordXPAwarded(string(activity), applied)

	unlocked := s.badges.EvaluateBadges(ctx, userID, oldXP, newXP)

	return AwardResult{
		Success:        true,
		NewXP:          newXP,
		LeveledUp:      newLevel > oldLevel,
		OldLevel:       oldLevel,
		NewLevel:       newLevel,
		RankedUp:       newRank != oldRank,
		OldRank:        oldRank,
		NewRank:        newRank,
		BadgesUnlocked: unlocked,
	}, nil
}

// addXP adds amount to total, saturating at math.MaxInt64 and clamping at zero.
func addXP(total, amount int64) int64 {
	if amount > 0 && total > math.MaxInt64-amount {
		return math.MaxInt64
	}
	if amount < 0 && total < math.MinInt64-amount {
		return 0
	}
	return max(total+amount, 0)
}

func withRequested(details map[string]any, requested int64) map[string]any {
	out := make(map[string]any, len(details)+1)
	for k, v := range details {
		out[k] = v
	}
	out["requested_delta"] = requested
	return out
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"gamification-bot/internal/model"
	"gamification-bot/internal/ratelimit"
)

// CheckinAction is the rate limit key for daily check-ins.
const CheckinAction = "checkin"

// CheckinRecorder stores one check-in per user per calendar day.
// Delete undoes a check-in whose XP award failed, so the user can retry.
type CheckinRecorder interface {
	Create(ctx context.Context, userID int64, date time.Time) (bool, error)
	Delete(ctx context.Context, userID int64, date time.Time) error
}

// StreakSource computes a user's current streak.
type StreakSource interface {
	ComputeStreak(ctx context.Context, userID int64) (int, error)
}

// CheckinOutcome is the result of a check-in attempt.
type CheckinOutcome struct {
	RateLimit        ratelimit.Result
	AlreadyCheckedIn bool
	Date             time.Time
	Streak           int
	Award            AwardResult
}

// CheckinService handles the daily check-in.
type CheckinService struct {
	checkins CheckinRecorder
	streaks  StreakSource
	ledger   *LedgerService
	limiter  RateLimiter
	rewards  RewardTable
	notifier Notifier
	location *time.Location
	now      func() time.Time
}

// NewCheckinService creates a CheckinService. Calendar days are taken in location.
func NewCheckinService(
	checkins CheckinRecorder,
	streaks StreakSource,
	ledger *LedgerService,
	limiter RateLimiter,
	rewards RewardTable,
	notifier Notifier,
	location *time.Location,
) *CheckinService {
	if location == nil {
		location = time.UTC
	}
	return &CheckinService{
		checkins: checkins,
		streaks:  streaks,
		ledger:   ledger,
		limiter:  limiter,
		rewards:  rewards,
		notifier: notifier,
		location: location,
		now:      time.Now,
	}
}

// CheckIn records today's check-in and awards its XP.
// A second check-in on the same day reports AlreadyCheckedIn and awards nothing.
// When the award fails the check-in is removed and the quota is left untouched.
func (s *CheckinService) CheckIn(ctx context.Context, userID int64) (CheckinOutcome, error) {
	result := s.limiter.CheckRateLimit(ctx, userID, CheckinAction, s.rewards.RuleFor(CheckinAction))
	if !result.Allowed {
		return CheckinOutcome{RateLimit: result}, nil
	}

	now := s.now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	outcome := CheckinOutcome{RateLimit: result, Date: today}

	created, err := s.checkins.Create(ctx, userID, today)
	if err != nil {
		return outcome, fmt.Errorf("failed to record check-in: %w", err)
	}
	if !created {
		outcome.AlreadyCheckedIn = true
		return outcome, nil
	}

	reward, _ := s.rewards.RewardFor(model.ActivityDailyCheckin)
	award, err := s.ledger.AwardXP(ctx, userID, reward, model.ActivityDailyCheckin, map[string]any{
		"date": today.Format(time.DateOnly),
	})
	if err != nil {
		if delErr := s.checkins.Delete(context.WithoutCancel(ctx), userID, today); delErr != nil {
			log.Error().
				Err(delErr).
				Int64("user_id", userID).
				Str("date", today.Format(time.DateOnly)).
				Msg("Failed to roll back check-in after award failure")
		}
		return outcome, err
	}
	s.limiter.RecordAction(ctx, userID, CheckinAction)
	outcome.Award = award

	streak, err := s.streaks.ComputeStreak(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to compute streak after check-in")
	}
	outcome.Streak = streak

	if s.notifier != nil {
		s.notifier.Dispatch(award.Events(userID, now))
	}
	return outcome, nil
}

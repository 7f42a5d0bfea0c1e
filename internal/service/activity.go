package service

import (
	"context"
	"fmt"
	"time"

	"gamification-bot/internal/model"
	"gamification-bot/internal/notify"
	"gamification-bot/internal/ratelimit"
)

// RateLimiter gates actions by cooldown and daily quota.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, userID int64, action string, rule ratelimit.Rule) ratelimit.Result
	RecordAction(ctx context.Context, userID int64, action string) bool
	CheckAndRecordAction(ctx context.Context, userID int64, action string, rule ratelimit.Rule) ratelimit.Result
}

// RewardTable resolves XP rewards and rate limits. *config.Config implements it.
type RewardTable interface {
	RuleFor(action string) ratelimit.Rule
	RewardFor(activity model.Activity) (int64, bool)
}

// Notifier delivers progression events in the background.
type Notifier interface {
	Dispatch(events []notify.Event)
}

// ActivityOutcome is the result of a rate-limited XP activity.
// Award is zero-valued when the action was rejected.
type ActivityOutcome struct {
	RateLimit ratelimit.Result
	Award     AwardResult
}

// ActivityService awards XP for user activities.
type ActivityService struct {
	ledger   *LedgerService
	limiter  RateLimiter
	rewards  RewardTable
	notifier Notifier
	now      func() time.Time
}

// NewActivityService creates an ActivityService. notifier may be nil.
func NewActivityService(ledger *LedgerService, limiter RateLimiter, rewards RewardTable, notifier Notifier) *ActivityService {
	return &ActivityService{
		ledger:   ledger,
		limiter:  limiter,
		rewards:  rewards,
		notifier: notifier,
		now:      time.Now,
	}
}

// Perform checks the activity's rate limit and, if allowed, awards its XP.
// A rejected action is not an error; inspect Outcome.RateLimit.Allowed.
func (s *ActivityService) Perform(ctx context.Context, userID int64, activity model.Activity, details map[string]any) (ActivityOutcome, error) {
	reward, ok := s.rewards.RewardFor(activity)
	if !ok {
		return ActivityOutcome{}, fmt.Errorf("%w: %s", ErrUnknownActivity, activity)
	}

	result := s.limiter.CheckAndRecordAction(ctx, userID, string(activity), s.rewards.RuleFor(string(activity)))
	if !result.Allowed {
		return ActivityOutcome{RateLimit: result}, nil
	}

	award, err := s.ledger.AwardXP(ctx, userID, reward, activity, details)
	if err != nil {
		return ActivityOutcome{RateLimit: result}, err
	}

	s.dispatch(userID, award)
	return ActivityOutcome{RateLimit: result, Award: award}, nil
}

// Adjust applies an administrative XP change without rate limiting.
func (s *ActivityService) Adjust(ctx context.Context, adminID, userID, amount int64) (AwardResult, error) {
	if amount == 0 {
		return AwardResult{}, ErrInvalidAmount
	}

	award, err := s.ledger.AwardXP(ctx, userID, amount, model.ActivityAdminAdjust, map[string]any{
		"admin_id": adminID,
	})
	if err != nil {
		return AwardResult{}, err
	}

	s.dispatch(userID, award)
	return award, nil
}

func (s *ActivityService) dispatch(userID int64, award AwardResult) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(award.Events(userID, s.now()))
}

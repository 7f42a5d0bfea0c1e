package badge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"gamification-bot/internal/model"
	"gamification-bot/internal/observability"
	"gamification-bot/internal/repository"
)

// Store persists badge definitions and ownership.
// InsertUserBadge must report an existing (userID, badgeID) row as inserted=false, not as an error.
type Store interface {
	HasBadge(ctx context.Context, userID int64, badgeID string) (bool, error)
	GetOrCreateDefinition(ctx context.Context, def model.BadgeDefinition) (model.BadgeDefinition, error)
	InsertUserBadge(ctx context.Context, userID int64, badgeID string, unlockedAt time.Time) (bool, error)
}

// EntityCounter counts content a user owns.
type EntityCounter interface {
	CountEntities(ctx context.Context, kind model.EntityKind, userID int64) (int, error)
}

// StreakComputer returns a user's current check-in streak.
type StreakComputer interface {
	ComputeStreak(ctx context.Context, userID int64) (int, error)
}

// UnlockedBadge is a badge granted during one evaluation pass.
type UnlockedBadge struct {
	Badge      model.BadgeDefinition
	Category   Category
	UnlockedAt time.Time
}

// Engine evaluates the rule list against a user after an XP change.
type Engine struct {
	store   Store
	counter EntityCounter
	streaks StreakComputer
	rules   []Rule
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the default rule list.
func WithRules(rules []Rule) Option {
	return func(e *Engine) {
		e.rules = rules
	}
}

// WithClock overrides the clock used for unlock timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an Engine using DefaultRules unless overridden.
func NewEngine(store Store, counter EntityCounter, streaks StreakComputer, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		counter: counter,
		streaks: streaks,
		rules:   DefaultRules(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the engine's rule list.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// EvaluateBadges grants every badge whose rule now holds and returns the new unlocks.
// Categories run concurrently. A failing category is logged and contributes nothing;
// it never cancels the others and never surfaces as an error.
func (e *Engine) EvaluateBadges(ctx context.Context, userID, oldXP, newXP int64) []UnlockedBadge {
	started := time.Now()
	defer func() { observability.ObserveBadgeEvaluation(time.Since(started)) }()

	var (
		mu       sync.Mutex
		unlocked []UnlockedBadge
		g        errgroup.Group
	)

	for _, category := range []Category{CategoryMilestone, CategoryStreak, CategoryActivity} {
		rules := e.rulesFor(category)
		if len(rules) == 0 {
			continue
		}

		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Int64("user_id", userID).
						Str("category", string(category)).
						Msg("Recovered from panic in badge category")
					observability.RecordBadgeCategoryFailure(string(category))
				}
			}()

			badges, err := e.evaluateCategory(ctx, category, userID, oldXP, newXP, rules)
			if err != nil {
				log.Warn().
					Err(err).
					Int64("user_id", userID).
					Str("category", string(category)).
					Msg("Badge category evaluation failed, skipping")
				observability.RecordBadgeCategoryFailure(string(category))
				return nil
			}

			mu.Lock()
			unlocked = append(unlocked, badges...)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return unlocked
}

// AwardBadgeIfEligible grants def to the user unless they already own it.
// It returns the stored definition and whether this call created the ownership row.
// Losing an insert race to a concurrent caller is reported as (false, nil).
func (e *Engine) AwardBadgeIfEligible(ctx context.Context, userID int64, def model.BadgeDefinition) (model.BadgeDefinition, bool, error) {
	owned, err := e.store.HasBadge(ctx, userID, def.BadgeID)
	if err != nil {
		return def, false, fmt.Errorf("failed to check badge %s: %w", def.BadgeID, err)
	}
	if owned {
		return def, false, nil
	}

	stored, err := e.store.GetOrCreateDefinition(ctx, def)
	if err != nil {
		return def, false, fmt.Errorf("failed to load badge %s: %w", def.BadgeID, err)
	}

	inserted, err := e.store.InsertUserBadge(ctx, userID, stored.BadgeID, e.now())
	if err != nil {
		if errors.Is(err, repository.ErrConstraintViolation) {
			return stored, false, nil
		}
		return stored, false, fmt.Errorf("failed to grant badge %s: %w", def.BadgeID, err)
	}

	return stored, inserted, nil
}

func (e *Engine) rulesFor(category Category) []Rule {
	var out []Rule
	for _, r := range e.rules {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

func (e *Engine) evaluateCategory(ctx context.Context, category Category, userID, oldXP, newXP int64, rules []Rule) ([]UnlockedBadge, error) {
	switch category {
	case CategoryMilestone:
		var eligible []Rule
		for _, r := range rules {
			if oldXP < r.Threshold && r.Threshold <= newXP {
				eligible = append(eligible, r)
			}
		}
		return e.grant(ctx, userID, eligible), nil

	case CategoryStreak:
		streak, err := e.streaks.ComputeStreak(ctx, userID)
		if err != nil {
			return nil, err
		}
		var eligible []Rule
		for _, r := range rules {
			if int64(streak) >= r.Threshold {
				eligible = append(eligible, r)
			}
		}
		return e.grant(ctx, userID, eligible), nil

	case CategoryActivity:
		return e.evaluateActivity(ctx, userID, rules), nil
	}

	return nil, fmt.Errorf("unknown badge category %q", category)
}

// evaluateActivity counts each entity kind once. A failed count skips only that kind.
func (e *Engine) evaluateActivity(ctx context.Context, userID int64, rules []Rule) []UnlockedBadge {
	byKind := make(map[model.EntityKind][]Rule)
	var kinds []model.EntityKind
	for _, r := range rules {
		if _, seen := byKind[r.Entity]; !seen {
			kinds = append(kinds, r.Entity)
		}
		byKind[r.Entity] = append(byKind[r.Entity], r)
	}

	var unlocked []UnlockedBadge
	for _, kind := range kinds {
		count, err := e.counter.CountEntities(ctx, kind, userID)
		if err != nil {
			log.Warn().
				Err(err).
				Int64("user_id", userID).
				Str("entity", string(kind)).
				Msg("Failed to count entities for badges")
			observability.RecordBadgeCategoryFailure(string(CategoryActivity) + ":" + string(kind))
			continue
		}

		var eligible []Rule
		for _, r := range byKind[kind] {
			if int64(count) >= r.Threshold {
				eligible = append(eligible, r)
			}
		}
		unlocked = append(unlocked, e.grant(ctx, userID, eligible)...)
	}

	return unlocked
}

// grant awards each eligible rule's badge. A failure on one badge does not stop the rest.
func (e *Engine) grant(ctx context.Context, userID int64, eligible []Rule) []UnlockedBadge {
	var unlocked []UnlockedBadge
	for _, r := range eligible {
		def, inserted, err := e.AwardBadgeIfEligible(ctx, userID, r.Badge)
		if err != nil {
			log.Warn().
				Err(err).
				Int64("user_id", userID).
				Str("badge_id", r.Badge.BadgeID).
				Msg("Failed to award badge")
			continue
		}
		if !inserted {
			continue
		}

		observability.RecordBadgeUnlocked(string(r.Category))
		unlocked = append(unlocked, UnlockedBadge{
			Badge:      def,
			Category:   r.Category,
			UnlockedAt: e.now(),
		})
	}
	return unlocked
}

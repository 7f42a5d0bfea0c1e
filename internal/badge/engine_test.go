package badge

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gamification-bot/internal/model"
	"gamification-bot/internal/repository"
	"gamification-bot/internal/repository/memstore"
)

var fixedNow = time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

// fixedStreak returns the same streak for every user.
type fixedStreak struct {
	days  int
	err   error
	calls atomic.Int32
}

func (f *fixedStreak) ComputeStreak(ctx context.Context, userID int64) (int, error) {
	f.calls.Add(1)
	return f.days, f.err
}

// countingEntities wraps an EntityCounter and records how often each kind is queried.
type countingEntities struct {
	inner  EntityCounter
	fail   map[model.EntityKind]bool
	counts map[model.EntityKind]int
}

func (c *countingEntities) CountEntities(ctx context.Context, kind model.EntityKind, userID int64) (int, error) {
	c.counts[kind]++
	if c.fail[kind] {
		return 0, repository.ErrPersistenceUnavailable
	}
	return c.inner.CountEntities(ctx, kind, userID)
}

// brokenStore fails every badge lookup.
type brokenStore struct{}

func (brokenStore) HasBadge(ctx context.Context, userID int64, badgeID string) (bool, error) {
	return false, repository.ErrPersistenceUnavailable
}

func (brokenStore) GetOrCreateDefinition(ctx context.Context, def model.BadgeDefinition) (model.BadgeDefinition, error) {
	return def, repository.ErrPersistenceUnavailable
}

func (brokenStore) InsertUserBadge(ctx context.Context, userID int64, badgeID string, unlockedAt time.Time) (bool, error) {
	return false, repository.ErrPersistenceUnavailable
}

// racingStore reports the ownership row as already present on insert.
type racingStore struct {
	*memstore.BadgeStore
}

func (r racingStore) InsertUserBadge(ctx context.Context, userID int64, badgeID string, unlockedAt time.Time) (bool, error) {
	return false, repository.ErrConstraintViolation
}

func newTestEngine(store *memstore.Store, streaks StreakComputer) *Engine {
	return NewEngine(store.Badges, store.Entities, streaks, WithClock(func() time.Time { return fixedNow }))
}

func badgeIDs(unlocked []UnlockedBadge) []string {
	ids := make([]string, 0, len(unlocked))
	for _, u := range unlocked {
		ids = append(ids, u.Badge.BadgeID)
	}
	sort.Strings(ids)
	return ids
}

func TestEvaluateBadges_MilestoneCrossing(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	engine := newTestEngine(store, &fixedStreak{})

	unlocked := engine.EvaluateBadges(ctx, 1, 90, 150)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "xp_100", unlocked[0].Badge.BadgeID)
	assert.Equal(t, CategoryMilestone, unlocked[0].Category)
	assert.Equal(t, fixedNow, unlocked[0].UnlockedAt)

	// Already above the threshold: no crossing
	assert.Empty(t, engine.EvaluateBadges(ctx, 1, 150, 180))
}

func TestEvaluateBadges_ExactThresholdCrosses(t *testing.T) {
	engine := newTestEngine(memstore.New(), &fixedStreak{})

	unlocked := engine.EvaluateBadges(context.Background(), 1, 99, 100)
	assert.Equal(t, []string{"xp_100"}, badgeIDs(unlocked))
}

func TestEvaluateBadges_MultipleMilestonesInOneAward(t *testing.T) {
	engine := newTestEngine(memstore.New(), &fixedStreak{})

	unlocked := engine.EvaluateBadges(context.Background(), 1, 0, 1200)
	assert.Equal(t, []string{"xp_100", "xp_1000", "xp_500"}, badgeIDs(unlocked))
}

func TestEvaluateBadges_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	store.Entities.Add(model.EntityPosts, 1, 1)
	engine := newTestEngine(store, &fixedStreak{days: 3})

	first := engine.EvaluateBadges(ctx, 1, 90, 150)
	assert.Equal(t, []string{"posts_1", "streak_3", "xp_100"}, badgeIDs(first))

	second := engine.EvaluateBadges(ctx, 1, 90, 150)
	assert.Empty(t, second)

	owned, err := store.Badges.ListUserBadges(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, owned, 3)
}

func TestEvaluateBadges_StreakLevels(t *testing.T) {
	store := memstore.New()
	engine := newTestEngine(store, &fixedStreak{days: 8})

	unlocked := engine.EvaluateBadges(context.Background(), 1, 0, 0)
	assert.Equal(t, []string{"streak_3", "streak_7"}, badgeIDs(unlocked))
}

func TestEvaluateBadges_StreakComputedOncePerPass(t *testing.T) {
	streaks := &fixedStreak{days: 100}
	engine := newTestEngine(memstore.New(), streaks)

	unlocked := engine.EvaluateBadges(context.Background(), 1, 0, 0)
	assert.Len(t, unlocked, 4)
	assert.Equal(t, int32(1), streaks.calls.Load())
}

func TestEvaluateBadges_EntityCountedOncePerKind(t *testing.T) {
	store := memstore.New()
	store.Entities.Add(model.EntityPosts, 1, 12)
	counter := &countingEntities{inner: store.Entities, counts: map[model.EntityKind]int{}}
	engine := NewEngine(store.Badges, counter, &fixedStreak{})

	unlocked := engine.EvaluateBadges(context.Background(), 1, 0, 0)
	assert.Equal(t, []string{"posts_1", "posts_10"}, badgeIDs(unlocked))

	for _, kind := range model.EntityKinds() {
		assert.Equal(t, 1, counter.counts[kind], "kind %s", kind)
	}
}

func TestEvaluateBadges_FailedCategoryIsIsolated(t *testing.T) {
	store := memstore.New()
	store.Entities.Add(model.EntityProjects, 1, 1)
	engine := newTestEngine(store, &fixedStreak{err: repository.ErrPersistenceUnavailable})

	unlocked := engine.EvaluateBadges(context.Background(), 1, 50, 120)
	assert.Equal(t, []string{"projects_1", "xp_100"}, badgeIDs(unlocked))
}

func TestEvaluateBadges_FailedEntityKindIsIsolated(t *testing.T) {
	store := memstore.New()
	store.Entities.Add(model.EntityPosts, 1, 1)
	store.Entities.Add(model.EntityTeams, 1, 1)
	counter := &countingEntities{
		inner:  store.Entities,
		fail:   map[model.EntityKind]bool{model.EntityPosts: true},
		counts: map[model.EntityKind]int{},
	}
	engine := NewEngine(store.Badges, counter, &fixedStreak{})

	unlocked := engine.EvaluateBadges(context.Background(), 1, 0, 0)
	assert.Equal(t, []string{"teams_1"}, badgeIDs(unlocked))
}

func TestEvaluateBadges_StoreFailureYieldsEmpty(t *testing.T) {
	store := memstore.New()
	engine := NewEngine(brokenStore{}, store.Entities, &fixedStreak{days: 30})

	assert.Empty(t, engine.EvaluateBadges(context.Background(), 1, 0, 10000))
}

func TestEvaluateBadges_CustomRules(t *testing.T) {
	rules := []Rule{milestone(42, "Answer", "Reached 42 XP", "🧭", model.RarityRare)}
	engine := NewEngine(memstore.New().Badges, memstore.New().Entities, &fixedStreak{}, WithRules(rules))

	assert.Equal(t, []string{"xp_42"}, badgeIDs(engine.EvaluateBadges(context.Background(), 1, 0, 50)))
	assert.Len(t, engine.Rules(), 1)
}

func TestAwardBadgeIfEligible(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	engine := newTestEngine(store, &fixedStreak{})
	def := model.BadgeDefinition{BadgeID: "custom", Name: "Custom", Rarity: model.RarityEpic}

	stored, inserted, err := engine.AwardBadgeIfEligible(ctx, 5, def)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, def, stored)

	_, inserted, err = engine.AwardBadgeIfEligible(ctx, 5, def)
	require.NoError(t, err)
	assert.False(t, inserted)

	owned, err := store.Badges.HasBadge(ctx, 5, "custom")
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestAwardBadgeIfEligible_ConflictIsNotAnError(t *testing.T) {
	store := memstore.New()
	engine := NewEngine(racingStore{store.Badges}, store.Entities, &fixedStreak{})

	_, inserted, err := engine.AwardBadgeIfEligible(context.Background(), 5, model.BadgeDefinition{BadgeID: "x"})
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestAwardBadgeIfEligible_PropagatesStoreErrors(t *testing.T) {
	engine := NewEngine(brokenStore{}, memstore.New().Entities, &fixedStreak{})

	_, inserted, err := engine.AwardBadgeIfEligible(context.Background(), 5, model.BadgeDefinition{BadgeID: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrPersistenceUnavailable))
	assert.False(t, inserted)
}

func TestDefaultRulesHaveUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, r := range DefaultRules() {
		assert.False(t, seen[r.Badge.BadgeID], "duplicate badge id %s", r.Badge.BadgeID)
		seen[r.Badge.BadgeID] = true
		if r.Category == CategoryActivity {
			assert.NotEmpty(t, r.Entity)
		}
	}
}

// TestMilestoneCrossingProperty checks that a milestone unlocks exactly when
// oldXP < threshold <= newXP, and that a repeat pass unlocks nothing.
func TestMilestoneCrossingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		oldXP := rapid.Int64Range(0, 12000).Draw(t, "oldXP")
		newXP := rapid.Int64Range(0, 12000).Draw(t, "newXP")

		engine := newTestEngine(memstore.New(), &fixedStreak{})
		got := make(map[string]bool)
		for _, u := range engine.EvaluateBadges(context.Background(), 1, oldXP, newXP) {
			got[u.Badge.BadgeID] = true
		}

		for _, r := range DefaultRules() {
			if r.Category != CategoryMilestone {
				continue
			}
			want := oldXP < r.Threshold && r.Threshold <= newXP
			if got[r.Badge.BadgeID] != want {
				t.Fatalf("badge %s: old=%d new=%d want unlocked=%v", r.Badge.BadgeID, oldXP, newXP, want)
			}
		}

		if again := engine.EvaluateBadges(context.Background(), 1, oldXP, newXP); len(again) != 0 {
			t.Fatalf("second pass unlocked %d badges", len(again))
		}
	})
}

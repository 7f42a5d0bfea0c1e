package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gamification-bot/internal/model"
	"gamification-bot/internal/repository"
)

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Users.GetByID(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	user, created, err := s.Users.GetOrCreate(ctx, 1, "alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, user.Level)
	assert.Equal(t, "Newcomer", user.Rank)

	_, err = s.Users.Create(ctx, 1, "dup")
	assert.ErrorIs(t, err, repository.ErrConstraintViolation)

	_, created, err = s.Users.GetOrCreate(ctx, 1, "ignored")
	require.NoError(t, err)
	assert.False(t, created)

	// Returned users are copies.
	user.TotalXP = 999
	fetched, err := s.Users.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fetched.TotalXP)

	_, err = s.Users.UpdateProgression(ctx, 1, model.Progression{TotalXP: 120, Level: 2, Rank: "Explorer"})
	require.NoError(t, err)
	require.NoError(t, s.Users.UpdateUsername(ctx, 1, "alicia"))

	fetched, err = s.Users.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(120), fetched.TotalXP)
	assert.Equal(t, "alicia", fetched.Username)

	_, err = s.Users.UpdateProgression(ctx, 2, model.Progression{})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.ErrorIs(t, s.Users.UpdateUsername(ctx, 2, "x"), repository.ErrUserNotFound)
}

func TestUsers_GetTopUsers(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Users.Put(model.User{TelegramID: 3, TotalXP: 50})
	s.Users.Put(model.User{TelegramID: 1, TotalXP: 200})
	s.Users.Put(model.User{TelegramID: 2, TotalXP: 200})

	top, err := s.Users.GetTopUsers(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(1), top[0].TelegramID)
	assert.Equal(t, int64(2), top[1].TelegramID)
}

func TestTransactions(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Users.Put(model.User{TelegramID: 1, Username: "a"})
	s.Users.Put(model.User{TelegramID: 2, Username: "b"})

	day := time.Date(2025, time.May, 1, 12, 0, 0, 0, time.UTC)
	for _, tx := range []*model.XPTransaction{
		{UserID: 1, XPDelta: 5, CreatedAt: day},
		{UserID: 1, XPDelta: 7, CreatedAt: day.Add(time.Hour)},
		{UserID: 2, XPDelta: 30, CreatedAt: day},
		{UserID: 2, XPDelta: -40, CreatedAt: day.Add(time.Minute)},
		{UserID: 2, XPDelta: 100, CreatedAt: day.AddDate(0, 0, 1)},
	} {
		require.NoError(t, s.Transactions.Create(ctx, tx))
		assert.NotEmpty(t, tx.ID)
	}

	txs, err := s.Transactions.GetByUserID(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(7), txs[0].XPDelta)

	leaders, err := s.Transactions.GetDailyLeaders(ctx, day, 10)
	require.NoError(t, err)
	require.Len(t, leaders, 1)
	assert.Equal(t, int64(1), leaders[0].UserID)
	assert.Equal(t, int64(12), leaders[0].XP)
	assert.Equal(t, "a", leaders[0].Username)
}

func TestBadges(t *testing.T) {
	ctx := context.Background()
	s := New()
	def := model.BadgeDefinition{BadgeID: "xp_100", Name: "First Steps", Rarity: model.RarityCommon}

	stored, err := s.Badges.GetOrCreateDefinition(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, def, stored)

	stored, err = s.Badges.GetOrCreateDefinition(ctx, model.BadgeDefinition{BadgeID: "xp_100", Name: "Other"})
	require.NoError(t, err)
	assert.Equal(t, "First Steps", stored.Name)

	at := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	inserted, err := s.Badges.InsertUserBadge(ctx, 1, "xp_100", at)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.Badges.InsertUserBadge(ctx, 1, "xp_100", at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, inserted)

	has, err := s.Badges.HasBadge(ctx, 1, "xp_100")
	require.NoError(t, err)
	assert.True(t, has)

	_, err = s.Badges.InsertUserBadge(ctx, 1, "streak_3", at.Add(2*time.Hour))
	require.NoError(t, err)

	owned, err := s.Badges.ListUserBadges(ctx, 1)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "streak_3", owned[0].Badge.BadgeID)
	assert.Equal(t, "First Steps", owned[1].Badge.Name)
	assert.True(t, at.Equal(owned[1].UnlockedAt))
}

func TestCheckins(t *testing.T) {
	ctx := context.Background()
	s := New()
	day := time.Date(2025, time.May, 2, 0, 0, 0, 0, time.UTC)

	created, err := s.Checkins.Create(ctx, 1, day)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Checkins.Create(ctx, 1, day.Add(3*time.Hour))
	require.NoError(t, err)
	assert.False(t, created)

	_, err = s.Checkins.Create(ctx, 1, day.AddDate(0, 0, -1))
	require.NoError(t, err)

	dates, err := s.Checkins.GetCheckins(ctx, 1)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.True(t, dates[0].After(dates[1]))

	require.NoError(t, s.Checkins.Delete(ctx, 1, day))
	created, err = s.Checkins.Create(ctx, 1, day)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestActions(t *testing.T) {
	ctx := context.Background()
	s := New()

	n, err := s.Actions.IncrementDailyActionCount(ctx, 1, "create_post", "2025-05-01")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.Actions.UpsertDailyActionCount(ctx, 1, "create_post", "2025-05-01", 5))
	n, err = s.Actions.GetDailyActionCount(ctx, 1, "create_post", "2025-05-01")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	s.Actions.DisableAtomicIncrement = true
	_, err = s.Actions.IncrementDailyActionCount(ctx, 1, "create_post", "2025-05-01")
	assert.ErrorIs(t, err, repository.ErrUnsupported)
}

func TestEntities(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Entities.Add(model.EntityPosts, 1, 2)
	s.Entities.Add(model.EntityPosts, 1, 3)

	n, err := s.Entities.CountEntities(ctx, model.EntityPosts, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = s.Entities.CountEntities(ctx, model.EntityLikes, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// TestIncrementProperty checks that n increments leave the counter at n.
func TestIncrementProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := New()
		n := rapid.IntRange(0, 50).Draw(t, "n")
		for i := 0; i < n; i++ {
			if _, err := s.Actions.IncrementDailyActionCount(context.Background(), 1, "a", "2025-01-01"); err != nil {
				t.Fatal(err)
			}
		}
		got, _ := s.Actions.GetDailyActionCount(context.Background(), 1, "a", "2025-01-01")
		if got != n {
			t.Fatalf("expected %d, got %d", n, got)
		}
	})
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"gamification-bot/internal/model"
	"gamification-bot/internal/progression"
)

// ProfileReader reads user aggregates.
type ProfileReader interface {
	GetByID(ctx context.Context, telegramID int64) (*model.User, error)
	GetTopUsers(ctx context.Context, limit int) ([]*model.User, error)
}

// BadgeLister lists owned badges.
type BadgeLister interface {
	ListUserBadges(ctx context.Context, userID int64) ([]model.UserBadge, error)
}

// DailyLeaderSource sums XP earned per user on a calendar day.
type DailyLeaderSource interface {
	GetDailyLeaders(ctx context.Context, date time.Time, limit int) ([]*model.DailyXP, error)
}

// Profile is a user's progression summary.
type Profile struct {
	User        *model.User
	XPIntoLevel int64
	NextRank    progression.NextRankInfo
	HasNextRank bool
	Streak      int
	Badges      []model.UserBadge
}

// ProfileService assembles profiles and leaderboards.
type ProfileService struct {
	users    ProfileReader
	badges   BadgeLister
	streaks  StreakSource
	leaders  DailyLeaderSource
	location *time.Location
	now      func() time.Time
}

// NewProfileService creates a ProfileService.
func NewProfileService(users ProfileReader, badges BadgeLister, streaks StreakSource, leaders DailyLeaderSource, location *time.Location) *ProfileService {
	if location == nil {
		location = time.UTC
	}
	return &ProfileService{
		users:    users,
		badges:   badges,
		streaks:  streaks,
		leaders:  leaders,
		location: location,
		now:      time.Now,
	}
}

// Profile returns the user's progression. Streak and badge lookups are
// best-effort; only a missing or unreadable user is an error.
func (s *ProfileService) Profile(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	p := &Profile{
		User:        user,
		XPIntoLevel: max(user.TotalXP, 0) % progression.XPPerLevel,
	}
	p.NextRank, p.HasNextRank = progression.NextRank(user.TotalXP)

	if p.Streak, err = s.streaks.ComputeStreak(ctx, userID); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to compute streak for profile")
	}
	if p.Badges, err = s.badges.ListUserBadges(ctx, userID); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to list badges for profile")
	}

	return p, nil
}

// Badges returns the user's badges, most recent first.
func (s *ProfileService) Badges(ctx context.Context, userID int64) ([]model.UserBadge, error) {
	return s.badges.ListUserBadges(ctx, userID)
}

// Leaderboard returns the top users by total XP.
func (s *ProfileService) Leaderboard(ctx context.Context, limit int) ([]*model.User, error) {
	return s.users.GetTopUsers(ctx, limit)
}

// DailyLeaders returns the users who earned the most XP today.
func (s *ProfileService) DailyLeaders(ctx context.Context, limit int) ([]*model.DailyXP, error) {
	return s.leaders.GetDailyLeaders(ctx, s.now().In(s.location), limit)
}

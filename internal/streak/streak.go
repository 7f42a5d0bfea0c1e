// Package streak computes consecutive-day check-in streaks.
package streak

import (
	"context"
	"fmt"
	"time"
)

// CheckinSource loads a user's check-in dates, newest first.
type CheckinSource interface {
	GetCheckins(ctx context.Context, userID int64) ([]time.Time, error)
}

// Calculator computes streaks against the current calendar day in a fixed timezone.
type Calculator struct {
	source   CheckinSource
	location *time.Location
	now      func() time.Time
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithClock overrides the clock used to determine "today".
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		c.now = now
	}
}

// NewCalculator creates a Calculator. A nil location means UTC.
func NewCalculator(source CheckinSource, location *time.Location, opts ...Option) *Calculator {
	if location == nil {
		location = time.UTC
	}
	c := &Calculator{
		source:   source,
		location: location,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ComputeStreak returns the user's current streak.
func (c *Calculator) ComputeStreak(ctx context.Context, userID int64) (int, error) {
	dates, err := c.source.GetCheckins(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load checkins: %w", err)
	}
	return Compute(dates, c.now().In(c.location)), nil
}

// Compute walks check-in dates (newest first) back from today and counts consecutive days.
// A streak whose latest check-in is yesterday still counts, since today is not over yet.
// Each date is taken as the calendar day it carries; today is the calendar day of its location.
func Compute(dates []time.Time, today time.Time) int {
	streak := 0
	expected := civilDay(today)
	last := int64(-1 << 62)

	for _, d := range dates {
		day := civilDay(d)
		if day == last {
			continue
		}
		last = day

		diff := expected - day
		switch {
		case diff == 0:
			streak++
			expected = day - 1
		case streak == 0 && diff == 1:
			streak++
			expected = day - 1
		default:
			return streak
		}
	}

	return streak
}

// civilDay returns the number of days since the Unix epoch for the calendar date of t.
func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

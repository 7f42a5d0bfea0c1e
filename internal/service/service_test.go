package service

import (
	"context"
	"sync"
	"time"

	"gamification-bot/internal/badge"
	"gamification-bot/internal/model"
	"gamification-bot/internal/notify"
	"gamification-bot/internal/ratelimit"
	"gamification-bot/internal/repository/memstore"
	"gamification-bot/internal/streak"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type rewardTable struct {
	rewards map[model.Activity]int64
	rules   map[string]ratelimit.Rule
}

func (r rewardTable) RuleFor(action string) ratelimit.Rule {
	return r.rules[action]
}

func (r rewardTable) RewardFor(activity model.Activity) (int64, bool) {
	xp, ok := r.rewards[activity]
	return xp, ok
}

func defaultRewards() rewardTable {
	return rewardTable{
		rewards: map[model.Activity]int64{
			model.ActivityDailyCheckin:  10,
			model.ActivityLikePost:      10,
			model.ActivityCreatePost:    20,
			model.ActivityChatMessage:   1,
			model.ActivityCreateProject: 50,
		},
		rules: map[string]ratelimit.Rule{
			CheckinAction:                  {DailyLimit: 1},
			string(model.ActivityLikePost): {Cooldown: 60 * time.Second, DailyLimit: 3},
		},
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Dispatch(events []notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, events...)
}

func (n *recordingNotifier) types() []notify.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.EventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

// harness wires the engine over one in-memory store with a shared fake clock.
type harness struct {
	store    *memstore.Store
	clock    *fakeClock
	streaks  *streak.Calculator
	engine   *badge.Engine
	ledger   *LedgerService
	limiter  *ratelimit.Limiter
	notifier *recordingNotifier
	rewards  rewardTable
}

func newHarness() *harness {
	store := memstore.New()
	clock := &fakeClock{now: time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)}
	streaks := streak.NewCalculator(store.Checkins, time.UTC, streak.WithClock(clock.Now))
	engine := badge.NewEngine(store.Badges, store.Entities, streaks, badge.WithClock(clock.Now))

	return &harness{
		store:    store,
		clock:    clock,
		streaks:  streaks,
		engine:   engine,
		ledger:   NewLedgerService(store.Users, store.Transactions, engine, nil),
		limiter:  ratelimit.New(store.Actions, ratelimit.WithClock(clock.Now)),
		notifier: &recordingNotifier{},
		rewards:  defaultRewards(),
	}
}

func (h *harness) putUser(id, xp int64) {
	h.store.Users.Put(model.User{TelegramID: id, Username: "user", TotalXP: xp})
}

func (h *harness) activityService() *ActivityService {
	svc := NewActivityService(h.ledger, h.limiter, h.rewards, h.notifier)
	svc.now = h.clock.Now
	return svc
}

func (h *harness) checkinService() *CheckinService {
	svc := NewCheckinService(h.store.Checkins, h.streaks, h.ledger, h.limiter, h.rewards, h.notifier, time.UTC)
	svc.now = h.clock.Now
	return svc
}

func (h *harness) totalXP(id int64) int64 {
	user, err := h.store.Users.GetByID(context.Background(), id)
	if err != nil {
		return -1
	}
	return user.TotalXP
}

func badgeIDs(unlocked []badge.UnlockedBadge) []string {
	ids := make([]string, 0, len(unlocked))
	for _, u := range unlocked {
		ids = append(ids, u.Badge.BadgeID)
	}
	return ids
}

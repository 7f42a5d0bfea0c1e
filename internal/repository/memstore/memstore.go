// Package memstore provides in-memory implementations of the repositories.
// It backs the bot when database.driver is "memory" and is used by unit tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gamification-bot/internal/model"
	"gamification-bot/internal/progression"
	"gamification-bot/internal/repository"
)

// Store holds all in-memory state behind a single mutex.
type Store struct {
	mu sync.Mutex

	users        map[int64]*model.User
	transactions []*model.XPTransaction
	definitions  map[string]model.BadgeDefinition
	userBadges   map[badgeKey]time.Time
	checkins     map[int64]map[string]time.Time
	actionCounts map[actionKey]int
	entities     map[entityKey]int

	Users        *UserStore
	Transactions *TransactionStore
	Badges       *BadgeStore
	Checkins     *CheckinStore
	Actions      *ActionStore
	Entities     *EntityStore
}

type badgeKey struct {
	userID  int64
	badgeID string
}

type actionKey struct {
	userID int64
	action string
	day    string
}

type entityKey struct {
	kind   model.EntityKind
	userID int64
}

// New creates an empty Store.
func New() *Store {
	s := &Store{
		users:        make(map[int64]*model.User),
		definitions:  make(map[string]model.BadgeDefinition),
		userBadges:   make(map[badgeKey]time.Time),
		checkins:     make(map[int64]map[string]time.Time),
		actionCounts: make(map[actionKey]int),
		entities:     make(map[entityKey]int),
	}
	s.Users = &UserStore{s: s}
	s.Transactions = &TransactionStore{s: s}
	s.Badges = &BadgeStore{s: s}
	s.Checkins = &CheckinStore{s: s}
	s.Actions = &ActionStore{s: s}
	s.Entities = &EntityStore{s: s}
	return s
}

// ========== Users ==========

// UserStore mirrors repository.UserRepository.
type UserStore struct {
	s *Store
}

// Put stores a copy of user, replacing any existing record.
func (u *UserStore) Put(user model.User) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.users[user.TelegramID] = &user
}

// Create creates a new user with zero XP.
func (u *UserStore) Create(ctx context.Context, telegramID int64, username string) (*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if _, ok := u.s.users[telegramID]; ok {
		return nil, repository.ErrConstraintViolation
	}

	now := time.Now()
	user := &model.User{
		TelegramID: telegramID,
		Username:   username,
		Level:      progression.Level(0),
		Rank:       progression.Rank(0),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	u.s.users[telegramID] = user

	out := *user
	return &out, nil
}

// GetByID retrieves a user by Telegram ID.
func (u *UserStore) GetByID(ctx context.Context, telegramID int64) (*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[telegramID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	out := *user
	return &out, nil
}

// GetOrCreate retrieves a user, creating one if it doesn't exist.
func (u *UserStore) GetOrCreate(ctx context.Context, telegramID int64, username string) (*model.User, bool, error) {
	if user, err := u.GetByID(ctx, telegramID); err == nil {
		return user, false, nil
	}

	user, err := u.Create(ctx, telegramID, username)
	if err != nil {
		user, err = u.GetByID(ctx, telegramID)
		return user, false, err
	}
	return user, true, nil
}

// UpdateProgression overwrites XP, level and rank.
func (u *UserStore) UpdateProgression(ctx context.Context, telegramID int64, p model.Progression) (*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[telegramID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	user.TotalXP = p.TotalXP
	user.Level = p.Level
	user.Rank = p.Rank
	user.UpdatedAt = time.Now()

	out := *user
	return &out, nil
}

// UpdateUsername updates a user's username.
func (u *UserStore) UpdateUsername(ctx context.Context, telegramID int64, username string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[telegramID]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.Username = username
	return nil
}

// GetTopUsers returns the top users by XP.
func (u *UserStore) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	users := make([]*model.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		out := *user
		users = append(users, &out)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].TotalXP != users[j].TotalXP {
			return users[i].TotalXP > users[j].TotalXP
		}
		return users[i].TelegramID < users[j].TelegramID
	})

	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// ========== XP transactions ==========

// TransactionStore mirrors repository.TransactionRepository.
type TransactionStore struct {
	s *Store
}

// Create appends a transaction.
func (t *TransactionStore) Create(ctx context.Context, tx *model.XPTransaction) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}

	stored := *tx
	t.s.transactions = append(t.s.transactions, &stored)
	return nil
}

// GetByUserID returns a user's transactions, newest first.
func (t *TransactionStore) GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.XPTransaction, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var out []*model.XPTransaction
	for i := len(t.s.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if tx := t.s.transactions[i]; tx.UserID == userID {
			copied := *tx
			out = append(out, &copied)
		}
	}
	return out, nil
}

// GetDailyLeaders returns users with the most XP earned on date.
func (t *TransactionStore) GetDailyLeaders(ctx context.Context, date time.Time, limit int) ([]*model.DailyXP, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end := start.AddDate(0, 0, 1)

	totals := make(map[int64]int64)
	for _, tx := range t.s.transactions {
		if !tx.CreatedAt.Before(start) && tx.CreatedAt.Before(end) {
			totals[tx.UserID] += tx.XPDelta
		}
	}

	var leaders []*model.DailyXP
	for userID, xp := range totals {
		if xp <= 0 {
			continue
		}
		entry := &model.DailyXP{UserID: userID, XP: xp}
		if user, ok := t.s.users[userID]; ok {
			entry.Username = user.Username
		}
		leaders = append(leaders, entry)
	}
	sort.Slice(leaders, func(i, j int) bool {
		if leaders[i].XP != leaders[j].XP {
			return leaders[i].XP > leaders[j].XP
		}
		return leaders[i].UserID < leaders[j].UserID
	})

	if len(leaders) > limit {
		leaders = leaders[:limit]
	}
	return leaders, nil
}

// ========== Badges ==========

// BadgeStore mirrors repository.BadgeRepository.
type BadgeStore struct {
	s *Store
}

// HasBadge reports whether the user owns the badge.
func (b *BadgeStore) HasBadge(ctx context.Context, userID int64, badgeID string) (bool, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	_, ok := b.s.userBadges[badgeKey{userID, badgeID}]
	return ok, nil
}

// InsertUserBadge grants a badge once; later inserts report false without error.
func (b *BadgeStore) InsertUserBadge(ctx context.Context, userID int64, badgeID string, unlockedAt time.Time) (bool, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	key := badgeKey{userID, badgeID}
	if _, ok := b.s.userBadges[key]; ok {
		return false, nil
	}
	b.s.userBadges[key] = unlockedAt
	return true, nil
}

// GetOrCreateDefinition returns the stored definition, inserting def if absent.
func (b *BadgeStore) GetOrCreateDefinition(ctx context.Context, def model.BadgeDefinition) (model.BadgeDefinition, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	if stored, ok := b.s.definitions[def.BadgeID]; ok {
		return stored, nil
	}
	b.s.definitions[def.BadgeID] = def
	return def, nil
}

// ListUserBadges returns the user's badges, most recent first.
func (b *BadgeStore) ListUserBadges(ctx context.Context, userID int64) ([]model.UserBadge, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	var out []model.UserBadge
	for key, unlockedAt := range b.s.userBadges {
		if key.userID != userID {
			continue
		}
		def, ok := b.s.definitions[key.badgeID]
		if !ok {
			def = model.BadgeDefinition{BadgeID: key.badgeID, Name: key.badgeID}
		}
		out = append(out, model.UserBadge{UserID: userID, Badge: def, UnlockedAt: unlockedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UnlockedAt.Equal(out[j].UnlockedAt) {
			return out[i].UnlockedAt.After(out[j].UnlockedAt)
		}
		return out[i].Badge.BadgeID < out[j].Badge.BadgeID
	})
	return out, nil
}

// ========== Check-ins ==========

// CheckinStore mirrors repository.CheckinRepository.
type CheckinStore struct {
	s *Store
}

// Create records a check-in for the calendar day of date.
func (c *CheckinStore) Create(ctx context.Context, userID int64, date time.Time) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	days, ok := c.s.checkins[userID]
	if !ok {
		days = make(map[string]time.Time)
		c.s.checkins[userID] = days
	}

	key := date.Format(time.DateOnly)
	if _, exists := days[key]; exists {
		return false, nil
	}
	days[key] = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return true, nil
}

// Delete removes the check-in for the calendar day of date.
func (c *CheckinStore) Delete(ctx context.Context, userID int64, date time.Time) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	delete(c.s.checkins[userID], date.Format(time.DateOnly))
	return nil
}

// GetCheckins returns the user's check-in dates, newest first.
func (c *CheckinStore) GetCheckins(ctx context.Context, userID int64) ([]time.Time, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	dates := make([]time.Time, 0, len(c.s.checkins[userID]))
	for _, d := range c.s.checkins[userID] {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	return dates, nil
}

// ========== Daily action counts ==========

// ActionStore mirrors repository.ActionRepository.
type ActionStore struct {
	s *Store

	// DisableAtomicIncrement makes IncrementDailyActionCount report ErrUnsupported,
	// emulating a backend without an atomic counter primitive.
	DisableAtomicIncrement bool
}

// GetDailyActionCount returns the counter for (user, action, day).
func (a *ActionStore) GetDailyActionCount(ctx context.Context, userID int64, action, day string) (int, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return a.s.actionCounts[actionKey{userID, action, day}], nil
}

// IncrementDailyActionCount atomically increments the counter.
func (a *ActionStore) IncrementDailyActionCount(ctx context.Context, userID int64, action, day string) (int, error) {
	if a.DisableAtomicIncrement {
		return 0, repository.ErrUnsupported
	}

	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	key := actionKey{userID, action, day}
	a.s.actionCounts[key]++
	return a.s.actionCounts[key], nil
}

// UpsertDailyActionCount sets the counter to count.
func (a *ActionStore) UpsertDailyActionCount(ctx context.Context, userID int64, action, day string, count int) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.actionCounts[actionKey{userID, action, day}] = count
	return nil
}

// ========== Content entities ==========

// EntityStore mirrors repository.EntityRepository.
type EntityStore struct {
	s *Store
}

// Add records n more entities of kind for the user.
func (e *EntityStore) Add(kind model.EntityKind, userID int64, n int) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.s.entities[entityKey{kind, userID}] += n
}

// CountEntities returns how many entities of kind belong to the user.
func (e *EntityStore) CountEntities(ctx context.Context, kind model.EntityKind, userID int64) (int, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.s.entities[entityKey{kind, userID}], nil
}

// Package lock provides per-user mutual exclusion for XP updates.
package lock

import (
	"context"
	"sync"
)

// userSlot is a one-token semaphore shared by every waiter on the same user.
type userSlot struct {
	token   chan struct{}
	waiters int
}

// UserLock serializes work per user ID. Idle slots are released once
// no goroutine holds or waits on them, so the map does not grow with
// the number of users ever seen.
type UserLock struct {
	mu    sync.Mutex
	slots map[int64]*userSlot
}

// NewUserLock creates an empty UserLock.
func NewUserLock() *UserLock {
	return &UserLock{slots: make(map[int64]*userSlot)}
}

func (ul *UserLock) acquireSlot(userID int64) *userSlot {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	slot, ok := ul.slots[userID]
	if !ok {
		slot = &userSlot{token: make(chan struct{}, 1)}
		ul.slots[userID] = slot
	}
	slot.waiters++
	return slot
}

func (ul *UserLock) releaseSlot(userID int64, slot *userSlot) {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	slot.waiters--
	if slot.waiters == 0 {
		delete(ul.slots, userID)
	}
}

// Lock blocks until the user's lock is held.
func (ul *UserLock) Lock(userID int64) {
	slot := ul.acquireSlot(userID)
	slot.token <- struct{}{}
}

// LockContext blocks until the user's lock is held or ctx is done.
func (ul *UserLock) LockContext(ctx context.Context, userID int64) error {
	slot := ul.acquireSlot(userID)
	select {
	case slot.token <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.releaseSlot(userID, slot)
		return ErrLockTimeout
	}
}

// Unlock releases the user's lock. Calling it without holding the lock is a no-op.
func (ul *UserLock) Unlock(userID int64) {
	ul.mu.Lock()
	slot, ok := ul.slots[userID]
	ul.mu.Unlock()
	if !ok {
		return
	}

	select {
	case <-slot.token:
		ul.releaseSlot(userID, slot)
	default:
	}
}

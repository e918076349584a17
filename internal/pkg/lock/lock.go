// Package lock provides per-user locking so that concurrent commands from
// the same user (e.g. double-tapping "next") are serialized before they
// touch the session or balance rows.
package lock

import (
	"errors"
	"sync"
)

// ErrLockBusy is returned when a non-blocking acquisition fails.
var ErrLockBusy = errors.New("user operation already in progress")

// userMutex wraps a mutex so instances can be pooled.
type userMutex struct {
	mu sync.Mutex
}

// UserLock provides per-user locking.
type UserLock struct {
	locks sync.Map // map[int64]*userMutex
	pool  sync.Pool
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{
		pool: sync.Pool{
			New: func() any {
				return &userMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given user ID.
func (ul *UserLock) getLock(userID int64) *userMutex {
	if v, ok := ul.locks.Load(userID); ok {
		return v.(*userMutex)
	}

	newLock := ul.pool.Get().(*userMutex)
	actual, loaded := ul.locks.LoadOrStore(userID, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		ul.pool.Put(newLock)
	}
	return actual.(*userMutex)
}

// Lock acquires the lock for a user.
func (ul *UserLock) Lock(userID int64) {
	ul.getLock(userID).mu.Lock()
}

// Unlock releases the lock for a user.
func (ul *UserLock) Unlock(userID int64) {
	if v, ok := ul.locks.Load(userID); ok {
		v.(*userMutex).mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired.
func (ul *UserLock) TryLock(userID int64) bool {
	return ul.getLock(userID).mu.TryLock()
}

// WithLock executes a function while holding the user's lock.
func (ul *UserLock) WithLock(userID int64, fn func() error) error {
	ul.Lock(userID)
	defer ul.Unlock(userID)
	return fn()
}

// TryWithLock executes fn only if the user's lock is free, returning
// ErrLockBusy otherwise.
func (ul *UserLock) TryWithLock(userID int64, fn func() error) error {
	if !ul.TryLock(userID) {
		return ErrLockBusy
	}
	defer ul.Unlock(userID)
	return fn()
}

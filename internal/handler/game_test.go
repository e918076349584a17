package handler

import (
	"sync"
	"testing"

	"golden-dice-bot/internal/pkg/lock"
)

// TestFirstContactBonusGrantedOnce models a burst of first messages from
// one user hitting commands that register on contact, the way /start and
// /startgame do. Registration runs under the per-user lock, so the welcome
// bonus is granted exactly once no matter how the commands interleave; the
// race detector catches any path that registers outside the lock.
func TestFirstContactBonusGrantedOnce(t *testing.T) {
	userLock := lock.NewUserLock()
	const userID int64 = 42

	var registered bool
	var bonuses int

	// Mirrors the first-contact branch of user registration: an unknown
	// user is created and credited the welcome bonus.
	ensure := func() {
		if !registered {
			registered = true
			bonuses++
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		blocking := i%2 == 0
		wg.Add(1)
		go func() {
			defer wg.Done()
			if blocking {
				userLock.Lock(userID)
			} else if !userLock.TryLock(userID) {
				// Busy-refusal commands just drop the request.
				return
			}
			defer userLock.Unlock(userID)
			ensure()
		}()
	}
	wg.Wait()

	if bonuses != 1 {
		t.Fatalf("welcome bonus granted %d times, want 1", bonuses)
	}
}

package lock

import (
	"errors"
	"sync"
	"testing"

	"pgregory.net/rapid"
)

// TestConcurrentCounterSafety verifies that holding the per-user lock makes
// a read-modify-write race-free.
func TestConcurrentCounterSafety(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")
		goroutines := rapid.IntRange(2, 20).Draw(t, "goroutines")
		increments := rapid.IntRange(1, 50).Draw(t, "increments")

		ul := NewUserLock()
		counter := 0

		var wg sync.WaitGroup
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < increments; j++ {
					ul.Lock(userID)
					counter++
					ul.Unlock(userID)
				}
			}()
		}
		wg.Wait()

		if counter != goroutines*increments {
			t.Fatalf("counter = %d, want %d", counter, goroutines*increments)
		}
	})
}

// TestMultipleUsersIndependentLocks verifies that one user's lock never
// blocks another user.
func TestMultipleUsersIndependentLocks(t *testing.T) {
	ul := NewUserLock()

	ul.Lock(1)
	defer ul.Unlock(1)

	// A different user must acquire immediately.
	if !ul.TryLock(2) {
		t.Fatal("user 2 blocked by user 1's lock")
	}
	ul.Unlock(2)
}

// TestTryLockRefusesSecondAcquisition covers the double-tap case: the
// second acquisition must fail instead of queueing.
func TestTryLockRefusesSecondAcquisition(t *testing.T) {
	ul := NewUserLock()

	if !ul.TryLock(42) {
		t.Fatal("first TryLock must succeed")
	}
	if ul.TryLock(42) {
		t.Fatal("second TryLock must fail while held")
	}
	ul.Unlock(42)

	if !ul.TryLock(42) {
		t.Fatal("TryLock must succeed again after Unlock")
	}
	ul.Unlock(42)
}

func TestWithLockRunsFunction(t *testing.T) {
	ul := NewUserLock()

	ran := false
	err := ul.WithLock(7, func() error {
		ran = true
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("WithLock err=%v ran=%v", err, ran)
	}

	// The lock must be free afterwards.
	if !ul.TryLock(7) {
		t.Fatal("lock still held after WithLock returned")
	}
	ul.Unlock(7)
}

func TestTryWithLockBusy(t *testing.T) {
	ul := NewUserLock()

	ul.Lock(9)
	err := ul.TryWithLock(9, func() error {
		t.Fatal("fn must not run while the lock is held")
		return nil
	})
	ul.Unlock(9)

	if !errors.Is(err, ErrLockBusy) {
		t.Fatalf("err = %v, want ErrLockBusy", err)
	}

	if err := ul.TryWithLock(9, func() error { return nil }); err != nil {
		t.Fatalf("TryWithLock after release: %v", err)
	}
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestLockStateOf(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	assert.Equal(t, Unlocked{}, LockStateOf(0, nil, now))
	assert.Equal(t, Unlocked{Attempts: 3}, LockStateOf(3, nil, now))
	assert.Equal(t, Locked{Until: future}, LockStateOf(0, &future, now))
	assert.Equal(t, Locked{Until: future}, LockStateOf(4, &future, now))
	assert.Equal(t, Unlocked{}, LockStateOf(0, &past, now))
}

func TestColumns(t *testing.T) {
	until := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	attempts, lockUntil := Columns(Unlocked{Attempts: 2})
	assert.Equal(t, 2, attempts)
	assert.Nil(t, lockUntil)

	attempts, lockUntil = Columns(Locked{Until: until})
	assert.Equal(t, 0, attempts)
	if assert.NotNil(t, lockUntil) {
		assert.True(t, until.Equal(*lockUntil))
	}
}

func TestLockoutPolicy_FiveFailuresLock(t *testing.T) {
	policy := DefaultLockoutPolicy
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	var state LockState = Unlocked{}
	for i := 1; i < 5; i++ {
		state = policy.Fail(state, now)
		assert.Equal(t, Unlocked{Attempts: i}, state)
	}

	state = policy.Fail(state, now)
	assert.Equal(t, Locked{Until: now.Add(2 * time.Hour)}, state)

	// still locked inside the window
	assert.Equal(t, state, policy.Fail(state, now.Add(time.Hour)))

	attempts, lockUntil := Columns(state)
	assert.IsType(t, Locked{}, LockStateOf(attempts, lockUntil, now.Add(119*time.Minute)))
	assert.Equal(t, Unlocked{}, LockStateOf(attempts, lockUntil, now.Add(2*time.Hour+time.Second)))

	// a failure after expiry starts counting again
	assert.Equal(t, Unlocked{Attempts: 1}, policy.Fail(state, now.Add(3*time.Hour)))
	assert.Equal(t, Unlocked{}, policy.Succeed())
}

func TestLockoutPolicy_LockedCarriesNoAttempts(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rapid.Check(t, func(t *rapid.T) {
		policy := LockoutPolicy{
			MaxAttempts:  rapid.IntRange(1, 10).Draw(t, "max"),
			LockDuration: time.Duration(rapid.IntRange(1, 240).Draw(t, "minutes")) * time.Minute,
		}
		failures := rapid.IntRange(0, 30).Draw(t, "failures")

		var state LockState = Unlocked{}
		for i := 0; i < failures; i++ {
			state = policy.Fail(state, now)
		}

		attempts, lockUntil := Columns(state)
		if lockUntil != nil && attempts != 0 {
			t.Fatalf("locked with %d attempts", attempts)
		}
		if failures >= policy.MaxAttempts {
			if _, ok := state.(Locked); !ok {
				t.Fatalf("expected lock after %d failures with max %d, got %#v", failures, policy.MaxAttempts, state)
			}
		} else if state != (Unlocked{Attempts: failures}) {
			t.Fatalf("expected %d attempts, got %#v", failures, state)
		}
	})
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin roles
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// Admin is an administrator account. LoginAttempts and LockUntil are the
// persisted form of LockState; use LockState to reason about them.
type Admin struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Username      string     `json:"username" db:"username"`
	Email         string     `json:"email" db:"email"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	Role          string     `json:"role" db:"role"`
	IsActive      bool       `json:"isActive" db:"is_active"`
	LoginAttempts int        `json:"-" db:"login_attempts"`
	LockUntil     *time.Time `json:"-" db:"lock_until"`
	LastLogin     *time.Time `json:"lastLogin,omitempty" db:"last_login"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// LockState is either Unlocked or Locked.
type LockState interface {
	isLockState()
}

// Unlocked counts consecutive failed logins since the last success or lock expiry.
type Unlocked struct {
	Attempts int
}

// Locked rejects every login until Until.
type Locked struct {
	Until time.Time
}

func (Unlocked) isLockState() {}
func (Locked) isLockState()   {}

// LockState decodes the persisted counters as seen at now.
func (a *Admin) LockState(now time.Time) LockState {
	return LockStateOf(a.LoginAttempts, a.LockUntil, now)
}

// LockStateOf maps stored columns to a LockState. An expired lock reads as a
// fresh Unlocked state.
func LockStateOf(attempts int, lockUntil *time.Time, now time.Time) LockState {
	if lockUntil != nil {
		if now.Before(*lockUntil) {
			return Locked{Until: *lockUntil}
		}
		return Unlocked{}
	}
	if attempts < 0 {
		attempts = 0
	}
	return Unlocked{Attempts: attempts}
}

// Columns is the inverse of LockStateOf.
func Columns(s LockState) (int, *time.Time) {
	switch st := s.(type) {
	case Locked:
		until := st.Until
		return 0, &until
	case Unlocked:
		return st.Attempts, nil
	}
	return 0, nil
}

// LockoutPolicy locks an account for LockDuration once MaxAttempts
// consecutive logins have failed.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// DefaultLockoutPolicy is 5 attempts and a 2 hour lock.
var DefaultLockoutPolicy = LockoutPolicy{MaxAttempts: 5, LockDuration: 2 * time.Hour}

// Fail is the transition taken on a password mismatch. A failure while
// still locked keeps the existing lock.
func (p LockoutPolicy) Fail(s LockState, now time.Time) LockState {
	switch st := s.(type) {
	case Locked:
		if now.Before(st.Until) {
			return st
		}
		return p.Fail(Unlocked{}, now)
	case Unlocked:
		next := st.Attempts + 1
		if next >= p.MaxAttempts {
			return Locked{Until: now.Add(p.LockDuration)}
		}
		return Unlocked{Attempts: next}
	}
	return Unlocked{Attempts: 1}
}

// Succeed is the transition taken on a correct password.
func (LockoutPolicy) Succeed() LockState {
	return Unlocked{}
}

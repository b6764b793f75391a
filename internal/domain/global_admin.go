package domain

import "time"

// GlobalAdmin is a platform operator. Exactly one original admin is
// bootstrapped; every other admin is created by it.
type GlobalAdmin struct {
	ID            string
	Email         string
	PasswordHash  string
	IsOriginal    bool
	CreatedBy     *string
	LoginAttempts int
	LockUntil     *time.Time
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Locked reports whether the account is inside a lockout window.
func (a *GlobalAdmin) Locked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

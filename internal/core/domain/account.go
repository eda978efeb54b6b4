package domain

import "time"

// Account is the slice of a user record the stale-account sweep reads.
type Account struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Active     bool       `json:"is_active"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
	DateJoined time.Time  `json:"date_joined"`
}

// StaleAccountAge is how long an unverified account may sit before removal.
const StaleAccountAge = 7 * 24 * time.Hour

// Stale reports whether the account was never activated nor used and
// joined before cutoff.
func (a Account) Stale(cutoff time.Time) bool {
	return !a.Active && a.LastLogin == nil && a.DateJoined.Before(cutoff)
}

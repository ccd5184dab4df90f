// ABOUTME: Optional user and time-range restriction shared by every read query.
// ABOUTME: Zero values mean "no restriction" on that dimension.
package models

import (
	"fmt"
	"time"
)

// Filter narrows a query to one user and/or a half-open [From, To) time range.
type Filter struct {
	UserID string    `json:"user_id,omitempty"`
	From   time.Time `json:"from,omitempty"`
	To     time.Time `json:"to,omitempty"`
}

// Contains reports whether t falls inside the filter's time range.
func (f Filter) Contains(t time.Time) bool {
	if !f.From.IsZero() && t.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !t.Before(f.To) {
		return false
	}
	return true
}

// MatchesUser reports whether userID passes the filter.
func (f Filter) MatchesUser(userID string) bool {
	return f.UserID == "" || f.UserID == userID
}

// Key renders the filter as a stable cache key fragment.
func (f Filter) Key() string {
	return fmt.Sprintf("u=%s|f=%d|t=%d", f.UserID, unixOrZero(f.From), unixOrZero(f.To))
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

package session

import (
	"context"
	"time"

	"med-reminder/internal/schedule"
)

// State is the confirmation dialogue state of a stored session.
type State string

// StateAwaitingConfirmation means a plan summary was shown and the next user
// message resolves it.
const StateAwaitingConfirmation State = "awaiting_confirmation"

// Session is one pending confirmation. At most one exists per user key; a
// newer pending plan replaces the previous one.
type Session struct {
	UserKey      string
	State        State
	PendingPlan  schedule.Plan
	OriginalText string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Expired reports whether the session passed its TTL at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Store holds pending confirmation sessions keyed by user.
type Store interface {
	// Get returns the user's session, or (nil, nil) when none exists.
	// Expired sessions are removed and reported as absent.
	Get(ctx context.Context, userKey string) (*Session, error)
	// Put stores the session, replacing any existing one for the same user.
	Put(ctx context.Context, sess *Session) error
	// Delete removes the user's session. Deleting a missing session is not
	// an error.
	Delete(ctx context.Context, userKey string) error
}

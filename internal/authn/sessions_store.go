package authn

import (
	"context"
	"time"
)

// SessionsStore is an interface for components that implement Session
// persistence. The design requires only atomic per-key operations; sessions
// are keyed by opaque identifiers with no cross-session invariants.
type SessionsStore interface {
	// Create stores the provided Session.
	Create(context.Context, Session) error
	// GetByHashedOAuth2State returns the pending Session correlated to the
	// specified (hashed) OAuth2 state. Implementations MUST return a
	// *meta.ErrNotFound if no such Session exists.
	GetByHashedOAuth2State(context.Context, string) (Session, error)
	// GetByHashedToken returns the Session whose token hashes to the
	// specified value. Implementations MUST return a *meta.ErrNotFound if no
	// such Session exists.
	GetByHashedToken(context.Context, string) (Session, error)
	// Authenticate marks the Session with the specified ID as belonging to
	// the specified User and authenticated until the specified expiry.
	// Implementations MUST return a *meta.ErrNotFound if no such Session
	// exists.
	Authenticate(
		ctx context.Context,
		sessionID string,
		userID string,
		expires time.Time,
	) error
	// Delete removes the Session with the specified ID. Implementations MUST
	// return a *meta.ErrNotFound if no such Session exists.
	Delete(context.Context, string) error
	// DeleteByUser removes all Sessions belonging to the User with the
	// specified ID. Used to invalidate outstanding logins when credentials
	// are rotated.
	DeleteByUser(context.Context, string) error
}

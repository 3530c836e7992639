package authn

import "context"

type userContextKey struct{}

type sessionIDContextKey struct{}

// ContextWithUser returns a context.Context that has been augmented with the
// provided User, i.e. the authenticated principal.
func ContextWithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// ContextWithSessionID returns a context.Context that has been augmented with
// the ID of the Session that authenticated the request. Requests
// authenticated by a stateless bearer token carry no session ID.
func ContextWithSessionID(
	ctx context.Context,
	sessionID string,
) context.Context {
	return context.WithValue(ctx, sessionIDContextKey{}, sessionID)
}

// UserFromContext extracts the authenticated User from the provided
// context.Context. The second return value indicates whether the request was
// authenticated at all.
func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(userContextKey{}).(User)
	return user, ok
}

// SessionIDFromContext extracts the ID of the Session that authenticated the
// request from the provided context.Context, if any.
func SessionIDFromContext(ctx context.Context) string {
	sessionID := ctx.Value(sessionIDContextKey{})
	if sessionID == nil {
		return ""
	}
	return sessionID.(string)
}

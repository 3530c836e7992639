package authn

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kestrelworks/portcullis/internal/authn"
	"github.com/kestrelworks/portcullis/internal/lib/restmachinery"
	"github.com/kestrelworks/portcullis/internal/meta"
	"github.com/pkg/errors"
)

// SessionCookieName is the name of the cookie through which browser clients
// carry their opaque session token. API clients use the Authorization header
// instead; the cookie is only a fallback.
const SessionCookieName = "portcullis_session"

type FindSessionFn func(
	ctx context.Context,
	token string,
) (authn.Session, error)

type FindUserFn func(ctx context.Context, id string) (authn.User, error)

type ResolveTokenFn func(tokenString string) (authn.TokenClaims, error)

type tokenAuthFilter struct {
	findSession  FindSessionFn
	findUser     FindUserFn
	resolveToken ResolveTokenFn
}

// NewTokenAuthFilter returns a restmachinery.Filter that authenticates
// requests. It accepts either an opaque session token or a signed bearer
// token, carried in the Authorization header or (for session tokens) in a
// cookie.
func NewTokenAuthFilter(
	findSession FindSessionFn,
	findUser FindUserFn,
	resolveToken ResolveTokenFn,
) restmachinery.Filter {
	return &tokenAuthFilter{
		findSession:  findSession,
		findUser:     findUser,
		resolveToken: resolveToken,
	}
}

func (t *tokenAuthFilter) Decorate(handle http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := t.extractToken(r)
		if !ok {
			t.writeResponse(
				w,
				http.StatusUnauthorized,
				&meta.ErrAuthentication{
					Reason: "The request lacked a credential artifact: no " +
						`"Authorization" header and no session cookie.`,
				},
			)
			return
		}

		// A signed bearer token is three dot-delimited segments; an opaque
		// session token never contains dots.
		if strings.Count(token, ".") == 2 {
			claims, err := t.resolveToken(token)
			if err != nil {
				t.writeResponse(
					w,
					http.StatusUnauthorized,
					&meta.ErrAuthentication{
						Reason: "Supplied bearer token is invalid or has " +
							"expired. Please log in again.",
					},
				)
				return
			}
			// The token payload is self-contained. With the signature and
			// expiry verified, the asserted identity is trusted as-is.
			user := authn.User{Name: claims.Name}
			user.ID = claims.UserID
			ctx := authn.ContextWithUser(r.Context(), user)
			handle(w, r.WithContext(ctx))
			return
		}

		session, err := t.findSession(r.Context(), token)
		if err != nil {
			if _, ok := errors.Cause(err).(*meta.ErrNotFound); ok {
				t.writeResponse(
					w,
					http.StatusUnauthorized,
					&meta.ErrAuthentication{
						Reason: "Session not found. Please log in again.",
					},
				)
				return
			}
			log.Println(err)
			t.writeResponse(
				w,
				http.StatusInternalServerError,
				&meta.ErrInternalServer{},
			)
			return
		}
		if session.Authenticated == nil {
			t.writeResponse(
				w,
				http.StatusUnauthorized,
				&meta.ErrAuthentication{
					Reason: "Supplied token has not been authenticated. " +
						"Please log in again.",
				},
			)
			return
		}
		if session.Expires != nil && time.Now().After(*session.Expires) {
			t.writeResponse(
				w,
				http.StatusUnauthorized,
				&meta.ErrAuthentication{
					Reason: "Supplied token has expired. Please log in again.",
				},
			)
			return
		}
		user, err := t.findUser(r.Context(), session.UserID)
		if err != nil {
			log.Println(err)
			// There should never be an authenticated session for a user that
			// doesn't exist.
			t.writeResponse(
				w,
				http.StatusInternalServerError,
				&meta.ErrInternalServer{},
			)
			return
		}

		// Success! Add the user and the session ID to the context.
		ctx := authn.ContextWithUser(r.Context(), user)
		ctx = authn.ContextWithSessionID(ctx, session.ID)
		handle(w, r.WithContext(ctx))
	}
}

// extractToken locates the request's credential artifact: the Authorization
// header takes precedence; a session cookie is the fallback.
func (t *tokenAuthFilter) extractToken(r *http.Request) (string, bool) {
	headerValue := r.Header.Get("Authorization")
	if headerValue != "" {
		headerValueParts := strings.SplitN(headerValue, " ", 2)
		if len(headerValueParts) != 2 ||
			headerValueParts[0] != "Bearer" ||
			headerValueParts[1] == "" {
			return "", false
		}
		return headerValueParts[1], true
	}
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (t *tokenAuthFilter) writeResponse(
	w http.ResponseWriter,
	statusCode int,
	response interface{},
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	responseBody, ok := response.([]byte)
	if !ok {
		var err error
		if responseBody, err = json.Marshal(response); err != nil {
			log.Println(errors.Wrap(err, "error marshaling response body"))
		}
	}
	if _, err := w.Write(responseBody); err != nil {
		log.Println(errors.Wrap(err, "error writing response body"))
	}
}

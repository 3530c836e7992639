package authn

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kestrelworks/portcullis/internal/meta"
	"github.com/pkg/errors"
)

// TokensService is the specialized interface for issuing and resolving
// stateless bearer tokens. Unlike Sessions, bearer tokens involve no
// server-side state: validity rests entirely on the signature and the
// embedded expiry, and the only revocation mechanism is rotation of the
// signing key, which invalidates every outstanding token at once.
type TokensService interface {
	// Create verifies the provided credentials and, if they check out, signs
	// and returns a new bearer token. All verification failures are surfaced
	// uniformly as a *meta.ErrAuthentication.
	Create(ctx context.Context, id, password string) (Token, error)
	// Resolve verifies the provided bearer token's signature and expiry and,
	// if both check out, returns the claims it asserts. Any signature
	// mismatch or expiry violation is surfaced as a *meta.ErrAuthentication.
	Resolve(tokenString string) (TokenClaims, error)
}

type tokensService struct {
	usersStore UsersStore
	signingKey []byte
	tokenTTL   time.Duration
}

// NewTokensService returns a specialized interface for issuing and resolving
// stateless bearer tokens signed with the provided key.
func NewTokensService(
	usersStore UsersStore,
	signingKey []byte,
	tokenTTL time.Duration,
) TokensService {
	return &tokensService{
		usersStore: usersStore,
		signingKey: signingKey,
		tokenTTL:   tokenTTL,
	}
}

func (t *tokensService) Create(
	ctx context.Context,
	id string,
	password string,
) (Token, error) {
	user, err := t.usersStore.Get(ctx, id)
	if err != nil {
		if _, ok := errors.Cause(err).(*meta.ErrNotFound); ok {
			return Token{}, &meta.ErrAuthentication{
				Reason: "Could not authenticate request using the supplied " +
					"credentials.",
			}
		}
		return Token{}, errors.Wrapf(
			err,
			"error retrieving user %q from store",
			id,
		)
	}
	if !verifyPassword(user, password) {
		return Token{}, &meta.ErrAuthentication{
			Reason: "Could not authenticate request using the supplied " +
				"credentials.",
		}
	}
	now := time.Now()
	token := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(t.tokenTTL)),
			},
			UserID: user.ID,
			Name:   user.Name,
		},
	)
	signed, err := token.SignedString(t.signingKey)
	if err != nil {
		return Token{}, errors.Wrap(err, "error signing bearer token")
	}
	return Token{Value: signed}, nil
}

func (t *tokensService) Resolve(tokenString string) (TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(*jwt.Token) (interface{}, error) {
			return t.signingKey, nil
		},
		// HS256 only-- guards against algorithm confusion.
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil || !token.Valid {
		return TokenClaims{}, &meta.ErrAuthentication{
			Reason: "Supplied bearer token is invalid or has expired. Please " +
				"log in again.",
		}
	}
	return *claims, nil
}

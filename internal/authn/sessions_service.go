package authn

import (
	"context"
	"time"

	"github.com/coreos/go-oidc"
	"github.com/kestrelworks/portcullis/internal/lib/crypto"
	"github.com/kestrelworks/portcullis/internal/meta"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// SessionsService is the specialized interface for managing Sessions. It's
// decoupled from underlying technology choices (e.g. data store) to keep
// business logic reusable and consistent while the underlying tech stack
// remains free to change.
type SessionsService interface {
	// Create verifies the provided credentials and, if they check out,
	// establishes a new authenticated Session, returning its opaque token.
	// All verification failures-- unknown identity and wrong password
	// alike-- are surfaced uniformly as a *meta.ErrAuthentication.
	Create(ctx context.Context, id, password string) (Token, error)
	// CreateFederated establishes a new pending Session correlated to a
	// federated login flow and returns the details a client needs to
	// complete that flow with the identity provider.
	CreateFederated(context.Context) (FederatedSessionAuthDetails, error)
	// Authenticate completes a federated login flow: it consumes the
	// identity provider's assertion, resolves (creating on first sight) the
	// local User bound to the asserted subject, and marks the pending
	// Session as authenticated.
	Authenticate(ctx context.Context, oauth2State, oidcCode string) error
	// GetByToken retrieves the Session whose opaque token matches the one
	// provided.
	GetByToken(context.Context, string) (Session, error)
	// Delete destroys the Session with the specified ID.
	Delete(context.Context, string) error
}

type sessionsService struct {
	sessionsStore     SessionsStore
	usersStore        UsersStore
	sessionTTL        time.Duration
	oauth2Config      *oauth2.Config
	oidcTokenVerifier *oidc.IDTokenVerifier
}

// NewSessionsService returns a specialized interface for managing Sessions.
// The oauth2Config and oidcTokenVerifier parameters may be nil, in which case
// federated login is not supported.
func NewSessionsService(
	sessionsStore SessionsStore,
	usersStore UsersStore,
	sessionTTL time.Duration,
	oauth2Config *oauth2.Config,
	oidcTokenVerifier *oidc.IDTokenVerifier,
) SessionsService {
	return &sessionsService{
		sessionsStore:     sessionsStore,
		usersStore:        usersStore,
		sessionTTL:        sessionTTL,
		oauth2Config:      oauth2Config,
		oidcTokenVerifier: oidcTokenVerifier,
	}
}

func (s *sessionsService) Create(
	ctx context.Context,
	id string,
	password string,
) (Token, error) {
	user, err := s.usersStore.Get(ctx, id)
	if err != nil {
		if _, ok := errors.Cause(err).(*meta.ErrNotFound); ok {
			// An unknown identity must be indistinguishable from a wrong
			// password.
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
	token := Token{
		Value: crypto.NewToken(256),
	}
	session := NewSession(user.ID, token.Value, s.sessionTTL)
	if err := s.sessionsStore.Create(ctx, session); err != nil {
		return Token{}, errors.Wrapf(
			err,
			"error storing new session %q",
			session.ID,
		)
	}
	return token, nil
}

func (s *sessionsService) CreateFederated(
	ctx context.Context,
) (FederatedSessionAuthDetails, error) {
	if s.oauth2Config == nil || s.oidcTokenVerifier == nil {
		return FederatedSessionAuthDetails{}, &meta.ErrNotSupported{
			Details: "Authentication using OpenID Connect is not supported " +
				"by this server.",
		}
	}
	oauth2State := crypto.NewToken(30)
	authDetails := FederatedSessionAuthDetails{
		Token: crypto.NewToken(256),
	}
	session := NewFederatedSession(oauth2State, authDetails.Token)
	if err := s.sessionsStore.Create(ctx, session); err != nil {
		return authDetails, errors.Wrapf(
			err,
			"error storing new session %q",
			session.ID,
		)
	}
	authDetails.AuthURL = s.oauth2Config.AuthCodeURL(oauth2State)
	return authDetails, nil
}

func (s *sessionsService) Authenticate(
	ctx context.Context,
	oauth2State string,
	oidcCode string,
) error {
	if s.oauth2Config == nil || s.oidcTokenVerifier == nil {
		return &meta.ErrNotSupported{
			Details: "Authentication using OpenID Connect is not supported " +
				"by this server.",
		}
	}
	session, err := s.sessionsStore.GetByHashedOAuth2State(
		ctx,
		crypto.ShortSHA("", oauth2State),
	)
	if err != nil {
		return errors.Wrap(
			err,
			"error retrieving session from store by hashed OAuth2 state",
		)
	}
	oauth2Token, err := s.oauth2Config.Exchange(ctx, oidcCode)
	if err != nil {
		return errors.Wrap(
			err,
			"error exchanging OpenID Connect code for OAuth2 token",
		)
	}
	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return errors.New(
			"OAuth2 token did not include an OpenID Connect identity token",
		)
	}
	idToken, err := s.oidcTokenVerifier.Verify(ctx, rawIDToken)
	if err != nil {
		return errors.Wrap(err, "error verifying OpenID Connect identity token")
	}
	claims := struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}{}
	if err = idToken.Claims(&claims); err != nil {
		return errors.Wrap(
			err,
			"error decoding OpenID Connect identity token claims",
		)
	}
	user, err := s.resolveFederatedUser(
		ctx,
		idToken.Subject,
		claims.Email,
		claims.Name,
	)
	if err != nil {
		return err
	}
	if err := s.sessionsStore.Authenticate(
		ctx,
		session.ID,
		user.ID,
		time.Now().Add(s.sessionTTL),
	); err != nil {
		return errors.Wrapf(
			err,
			"error storing authentication details for session %q",
			session.ID,
		)
	}
	return nil
}

// resolveFederatedUser locates the User bound to the asserted subject
// identifier, creating one on first sight. Users created this way carry no
// credential material and can never authenticate with a password.
func (s *sessionsService) resolveFederatedUser(
	ctx context.Context,
	subject string,
	email string,
	name string,
) (User, error) {
	user, err := s.usersStore.GetByProviderSubject(ctx, subject)
	if err == nil {
		return user, nil
	}
	if _, ok := errors.Cause(err).(*meta.ErrNotFound); !ok {
		return User{}, errors.Wrapf(
			err,
			"error retrieving user for subject %q from store",
			subject,
		)
	}
	// First sight of this subject. That's ok. We'll create a user for it.
	now := time.Now()
	user = User{
		Name:            name,
		ProviderSubject: subject,
	}
	user.ID = email
	if user.ID == "" {
		user.ID = subject
	}
	user.Created = &now
	if err := s.usersStore.Create(ctx, user); err != nil {
		return User{}, errors.Wrapf(err, "error storing new user %q", user.ID)
	}
	return user, nil
}

func (s *sessionsService) GetByToken(
	ctx context.Context,
	token string,
) (Session, error) {
	session, err := s.sessionsStore.GetByHashedToken(
		ctx,
		crypto.ShortSHA("", token),
	)
	if err != nil {
		return session, errors.Wrap(
			err,
			"error retrieving session from store by hashed token",
		)
	}
	return session, nil
}

func (s *sessionsService) Delete(ctx context.Context, id string) error {
	if err := s.sessionsStore.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "error removing session %q from store", id)
	}
	return nil
}

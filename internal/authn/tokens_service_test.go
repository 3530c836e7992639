package authn

import (
	"context"
	"testing"
	"time"

	"github.com/kestrelworks/portcullis/internal/meta"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "super-secret-signing-key"

func TestTokensServiceCreateAndResolve(t *testing.T) {
	usersStore := newMockUsersStore()
	registerTestUser(t, usersStore)
	service := NewTokensService(
		usersStore,
		[]byte(testSigningKey),
		48*time.Hour,
	)

	token, err := service.Create(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)
	require.NotEmpty(t, token.Value)

	claims, err := service.Resolve(token.Value)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", claims.UserID)
	require.Equal(t, "Abigail Example", claims.Name)
}

func TestTokensServiceCreateWrongPassword(t *testing.T) {
	usersStore := newMockUsersStore()
	registerTestUser(t, usersStore)
	service := NewTokensService(
		usersStore,
		[]byte(testSigningKey),
		48*time.Hour,
	)

	_, err := service.Create(context.Background(), "a@x.com", "wrong")
	require.Error(t, err)
	require.IsType(t, &meta.ErrAuthentication{}, errors.Cause(err))

	_, err = service.Create(context.Background(), "nobody@x.com", "pw123456")
	require.Error(t, err)
	require.IsType(t, &meta.ErrAuthentication{}, errors.Cause(err))
}

func TestTokensServiceResolveExpired(t *testing.T) {
	usersStore := newMockUsersStore()
	registerTestUser(t, usersStore)
	service := NewTokensService(
		usersStore,
		[]byte(testSigningKey),
		-time.Minute, // Issued already expired
	)

	token, err := service.Create(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)

	_, err = service.Resolve(token.Value)
	require.Error(t, err)
	require.IsType(t, &meta.ErrAuthentication{}, errors.Cause(err))
}

func TestTokensServiceResolveTampered(t *testing.T) {
	usersStore := newMockUsersStore()
	registerTestUser(t, usersStore)
	service := NewTokensService(
		usersStore,
		[]byte(testSigningKey),
		48*time.Hour,
	)

	token, err := service.Create(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)

	// Flip a byte anywhere in the token and the signature no longer holds
	tampered := []byte(token.Value)
	i := len(tampered) / 2
	if tampered[i] == 'A' {
		tampered[i] = 'B'
	} else {
		tampered[i] = 'A'
	}
	_, err = service.Resolve(string(tampered))
	require.Error(t, err)
	require.IsType(t, &meta.ErrAuthentication{}, errors.Cause(err))
}

func TestTokensServiceResolveWrongKey(t *testing.T) {
	usersStore := newMockUsersStore()
	registerTestUser(t, usersStore)
	service := NewTokensService(
		usersStore,
		[]byte(testSigningKey),
		48*time.Hour,
	)

	token, err := service.Create(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)

	// Rotating the signing key invalidates every outstanding token
	rotated := NewTokensService(
		usersStore,
		[]byte("a-brand-new-signing-key"),
		48*time.Hour,
	)
	_, err = rotated.Resolve(token.Value)
	require.Error(t, err)
	require.IsType(t, &meta.ErrAuthentication{}, errors.Cause(err))
}

func TestTokensServiceResolveMalformed(t *testing.T) {
	service := NewTokensService(
		newMockUsersStore(),
		[]byte(testSigningKey),
		48*time.Hour,
	)
	_, err := service.Resolve("not.a.jwt")
	require.Error(t, err)
	require.IsType(t, &meta.ErrAuthentication{}, errors.Cause(err))
}

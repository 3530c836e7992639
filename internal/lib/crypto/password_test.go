package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBcryptHasherCompare(t *testing.T) {
	const password = "pw123456"
	hasher := BcryptHasher{}
	hashedPassword, err := hasher.Hash(password)
	require.NoError(t, err)
	require.NotEqual(t, password, hashedPassword)
	require.True(t, hasher.Compare(hashedPassword, password))
	require.False(t, hasher.Compare(hashedPassword, "wrong"))
	require.False(t, hasher.Compare(hashedPassword, ""))
}

func TestBcryptHasherSaltUniqueness(t *testing.T) {
	const password = "pw123456"
	hasher := BcryptHasher{}
	first, err := hasher.Hash(password)
	require.NoError(t, err)
	second, err := hasher.Hash(password)
	require.NoError(t, err)
	// The embedded per-record salt guarantees distinct digests for the same
	// password...
	require.NotEqual(t, first, second)
	// ...while both still verify against it.
	require.True(t, hasher.Compare(first, password))
	require.True(t, hasher.Compare(second, password))
}

func TestSHA256HasherCompare(t *testing.T) {
	const password = "pw123456"
	hasher := SHA256Hasher{}
	hashedPassword, err := hasher.Hash(password)
	require.NoError(t, err)
	require.NotEqual(t, password, hashedPassword)
	require.True(t, hasher.Compare(hashedPassword, password))
	require.False(t, hasher.Compare(hashedPassword, "wrong"))
}

func TestSHA256HasherIsDeterministic(t *testing.T) {
	// No per-record randomness-- identical passwords produce identical
	// digests. This is precisely what makes the scheme unsuitable for new
	// credential material.
	hasher := SHA256Hasher{}
	first, err := hasher.Hash("pw123456")
	require.NoError(t, err)
	second, err := hasher.Hash("pw123456")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

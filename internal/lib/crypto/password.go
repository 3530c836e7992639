package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher is the capability interface through which all password
// hashing and verification flows. Any primitive that produces a one-way
// digest and can verify a presented password against it in constant time is
// substitutable.
type PasswordHasher interface {
	// Hash returns a one-way digest of the provided password.
	Hash(password string) (string, error)
	// Compare indicates whether the provided password matches the provided
	// digest. It must not be sensitive to partial matches-- i.e. it must run
	// in constant time with respect to the password's content.
	Compare(hashedPassword, password string) bool
}

// BcryptHasher is a PasswordHasher implementation backed by bcrypt. Each
// digest embeds a per-record random salt and the cost factor used to derive
// it, so identical passwords hash to different digests and the comparison
// side needs no external parameters.
type BcryptHasher struct {
	// Cost is the bcrypt cost factor. Zero selects the library default.
	// Higher values resist brute force at the expense of per-login latency
	// and CPU.
	Cost int
}

func (b BcryptHasher) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (b BcryptHasher) Compare(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword(
		[]byte(hashedPassword),
		[]byte(password),
	) == nil
}

// SHA256Hasher is a PasswordHasher implementation that produces an unsalted
// SHA-256 digest. Identical passwords always produce identical digests, which
// makes stored digests vulnerable to precomputed table lookups. It exists
// only so that user records imported from legacy systems remain verifiable;
// new credential material must never be written with it.
type SHA256Hasher struct{}

func (s SHA256Hasher) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return fmt.Sprintf("%x", sum), nil
}

func (s SHA256Hasher) Compare(hashedPassword, password string) bool {
	sum := sha256.Sum256([]byte(password))
	computed := fmt.Sprintf("%x", sum)
	return subtle.ConstantTimeCompare(
		[]byte(computed),
		[]byte(hashedPassword),
	) == 1
}

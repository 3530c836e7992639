package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
)

// ShortSHA returns an (arbitrarily) truncated hex encoding of the SHA-256 sum
// of the provided input, optionally prefixed with a salt. It is used for
// hashing tokens and OAuth2 state at rest so that a leaked datastore does not
// also leak usable credentials.
func ShortSHA(salt, input string) string {
	if salt != "" {
		input = fmt.Sprintf("%s:%s", salt, input)
	}
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", sum)[0:54]
}

// NewToken returns a cryptographically random alphanumeric string of the
// specified length, suitable for use as an opaque session token or OAuth2
// state.
func NewToken(tokenLength int) string {
	const tokenChars = "abcdefghijklmnopqrstuvwxyz" +
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
		"0123456789"
	max := big.NewInt(int64(len(tokenChars)))
	b := make([]byte, tokenLength)
	for i := 0; i < tokenLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the platform's entropy source is
			// broken, in which case we cannot safely mint tokens at all.
			panic(err)
		}
		b[i] = tokenChars[n.Int64()]
	}
	return string(b)
}

package authn

import "github.com/kestrelworks/portcullis/internal/lib/crypto"

// hasherForScheme maps a stored credential's scheme tag to the hashing
// primitive that produced it. Schemes must never be mixed for a single
// record: a digest is only meaningful to the scheme that wrote it.
func hasherForScheme(scheme string) (crypto.PasswordHasher, bool) {
	switch scheme {
	case PasswordSchemeBcrypt:
		return crypto.BcryptHasher{}, true
	case PasswordSchemeSHA256:
		return crypto.SHA256Hasher{}, true
	}
	return nil, false
}

// verifyPassword indicates whether the presented password matches the
// credential material stored for the provided User. It fails closed:
// federation-only users (no credential material) and records carrying an
// unrecognized scheme can never verify.
func verifyPassword(user User, password string) bool {
	if user.HashedPassword == "" {
		return false
	}
	hasher, ok := hasherForScheme(user.PasswordScheme)
	if !ok {
		return false
	}
	return hasher.Compare(user.HashedPassword, password)
}

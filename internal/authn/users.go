package authn

import (
	"encoding/json"

	"github.com/kestrelworks/portcullis/internal/meta"
)

// Password hashing schemes. Each stored credential is tagged with the scheme
// that produced it and is only ever verified through that scheme's comparison
// function.
const (
	// PasswordSchemeBcrypt identifies credential material produced by the
	// salted, adaptive bcrypt hasher. This is the scheme for all new and
	// rotated credentials.
	PasswordSchemeBcrypt = "bcrypt"
	// PasswordSchemeSHA256 identifies credential material produced by an
	// unsalted SHA-256 digest. Records imported from legacy systems may carry
	// this scheme; it is upgraded to bcrypt on the next password rotation.
	PasswordSchemeSHA256 = "sha256"
)

// User represents a principal that can authenticate to the API server--
// either with locally stored credentials or by way of a federated identity
// provider.
type User struct {
	meta.ObjectMeta `json:"metadata" bson:",inline"`
	// Name is the user's display name.
	Name string `json:"name" bson:"name"`
	// ProviderSubject is the subject identifier asserted by a federated
	// identity provider. It is empty for users who registered locally.
	ProviderSubject string `json:"providerSubject,omitempty" bson:"providerSubject,omitempty"` // nolint: lll
	// HashedPassword is the user's credential material. It is empty for
	// federation-only users, who can never authenticate with a password.
	HashedPassword string `json:"-" bson:"hashedPassword,omitempty"`
	// PasswordScheme identifies the hashing scheme that produced
	// HashedPassword.
	PasswordScheme string `json:"-" bson:"passwordScheme,omitempty"`
}

// MarshalJSON amends User instances with type metadata.
func (u User) MarshalJSON() ([]byte, error) {
	type Alias User
	return json.Marshal(
		struct {
			meta.TypeMeta `json:",inline"`
			Alias         `json:",inline"`
		}{
			TypeMeta: meta.TypeMeta{
				APIVersion: meta.APIVersion,
				Kind:       "User",
			},
			Alias: (Alias)(u),
		},
	)
}

// UserRegistration encapsulates the fields a client submits to create a new
// User with locally stored credentials.
type UserRegistration struct {
	// ID is the identity the user will authenticate with, e.g. an email
	// address.
	ID string `json:"id"`
	// Name is the user's display name.
	Name string `json:"name"`
	// Password is the user's cleartext password. It is hashed immediately
	// upon receipt and never stored.
	Password string `json:"password"`
}

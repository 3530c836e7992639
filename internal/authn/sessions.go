package authn

import (
	"time"

	"github.com/kestrelworks/portcullis/internal/lib/crypto"
	"github.com/kestrelworks/portcullis/internal/meta"
	uuid "github.com/satori/go.uuid"
)

// Session represents a server-side correlation between an opaque token held
// by a client and a User. The client only ever holds the token; the server
// only ever stores its hash.
type Session struct {
	meta.ObjectMeta `json:"metadata" bson:",inline"`
	// UserID references the User this Session belongs to. It is empty until
	// the Session is authenticated.
	UserID string `json:"userID" bson:"userID"`
	// HashedOAuth2State is the hash of the opaque state string used to
	// correlate a federated login flow with the pending Session that
	// initiated it. It is empty for sessions created by local login.
	HashedOAuth2State string `json:"-" bson:"hashedOAuth2State,omitempty"`
	// HashedToken is the hash of the opaque token held by the client.
	HashedToken string `json:"-" bson:"hashedToken"`
	// Authenticated indicates the time at which credentials (local or
	// federated) were successfully verified for this Session. A nil value
	// means the Session is pending and confers no access.
	Authenticated *time.Time `json:"authenticated" bson:"authenticated"`
	// Expires indicates the time at which this Session lapses.
	Expires *time.Time `json:"expires" bson:"expires"`
}

// NewSession returns a Session that is authenticated from the outset,
// correlated to the specified User. This is the product of a successful local
// (password) login.
func NewSession(userID, token string, ttl time.Duration) Session {
	now := time.Now()
	expiryTime := now.Add(ttl)
	return Session{
		ObjectMeta: meta.ObjectMeta{
			ID:      uuid.NewV4().String(),
			Created: &now,
		},
		UserID:        userID,
		HashedToken:   crypto.ShortSHA("", token),
		Authenticated: &now,
		Expires:       &expiryTime,
	}
}

// NewFederatedSession returns a pending Session correlated to an in-flight
// federated login. It becomes usable only after the identity provider's
// callback authenticates it.
func NewFederatedSession(oauth2State, token string) Session {
	now := time.Now()
	return Session{
		ObjectMeta: meta.ObjectMeta{
			ID:      uuid.NewV4().String(),
			Created: &now,
		},
		HashedOAuth2State: crypto.ShortSHA("", oauth2State),
		HashedToken:       crypto.ShortSHA("", token),
	}
}

// Token represents an opaque credential artifact issued at login. Depending
// on the login flow, the value is either an unguessable session token or a
// signed, self-contained bearer token.
type Token struct {
	Value string `json:"token"`
}

// FederatedSessionAuthDetails encapsulates all the information a client needs
// to complete a federated login: the URL to visit on the identity provider
// and the token that will identify the resulting Session once the provider's
// callback has authenticated it.
type FederatedSessionAuthDetails struct {
	// AuthURL is the identity provider URL the user must visit to assert
	// their identity.
	AuthURL string `json:"authURL"`
	// Token is the opaque token that will identify the Session once
	// authenticated.
	Token string `json:"token"`
}

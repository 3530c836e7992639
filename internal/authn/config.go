package authn

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	sessionsEnvconfigPrefix = "SESSIONS"
	tokensEnvconfigPrefix   = "TOKENS"

	// SessionsStoreTypeMongo selects the MongoDB-backed sessions store.
	SessionsStoreTypeMongo = "mongo"
	// SessionsStoreTypeRedis selects the Redis-backed sessions store.
	SessionsStoreTypeRedis = "redis"
)

// SessionsConfig represents configuration options for the server-side
// session model.
type SessionsConfig struct {
	// TTL is how long an authenticated session remains valid.
	TTL time.Duration `envconfig:"TTL" default:"1h"`
	// StoreType selects the sessions persistence backend.
	StoreType string `envconfig:"STORE_TYPE" default:"mongo"`
}

// GetSessionsConfigFromEnvironment returns session configuration derived
// from environment variables.
func GetSessionsConfigFromEnvironment() (SessionsConfig, error) {
	c := SessionsConfig{}
	if err := envconfig.Process(sessionsEnvconfigPrefix, &c); err != nil {
		return c, err
	}
	if c.StoreType != SessionsStoreTypeMongo &&
		c.StoreType != SessionsStoreTypeRedis {
		return c, fmt.Errorf(
			"unrecognized sessions store type %q",
			c.StoreType,
		)
	}
	return c, nil
}

// We use an exported interface to govern access to our config because the
// underlying struct has fields we don't want to expose.
type TokensConfig interface {
	SigningKey() []byte
	TTL() time.Duration
}

type tokensConfig struct {
	SigningKeyAttr string        `envconfig:"SIGNING_KEY" required:"true"`
	TTLAttr        time.Duration `envconfig:"TTL" default:"48h"`
}

// GetTokensConfigFromEnvironment returns bearer token configuration derived
// from environment variables. The signing key is process-wide, immutable
// configuration: rotating it requires a redeploy and invalidates every
// outstanding token at once.
func GetTokensConfigFromEnvironment() (TokensConfig, error) {
	c := &tokensConfig{}
	if err := envconfig.Process(tokensEnvconfigPrefix, c); err != nil {
		return c, err
	}
	return c, nil
}

func (t *tokensConfig) SigningKey() []byte {
	return []byte(t.SigningKeyAttr)
}

func (t *tokensConfig) TTL() time.Duration {
	return t.TTLAttr
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/kestrelworks/portcullis/internal/authn"
	"github.com/kestrelworks/portcullis/internal/meta"
	"github.com/pkg/errors"
)

// pendingSessionTTL bounds the lifetime of a session that was created for a
// federated login flow but never authenticated. The identity provider
// round trip takes seconds; anything still pending after this long is
// abandoned.
const pendingSessionTTL = 10 * time.Minute

type sessionsStore struct {
	client *redis.Client
}

// sessionRecord is the at-rest form of an authn.Session. The domain type
// withholds its hashed fields from JSON because that JSON crosses the wire;
// this store's values never leave Redis and must round trip every field.
type sessionRecord struct {
	ID                string     `json:"id"`
	Created           *time.Time `json:"created,omitempty"`
	UserID            string     `json:"userID,omitempty"`
	HashedOAuth2State string     `json:"hashedOAuth2State,omitempty"`
	HashedToken       string     `json:"hashedToken"`
	Authenticated     *time.Time `json:"authenticated,omitempty"`
	Expires           *time.Time `json:"expires,omitempty"`
}

func newSessionRecord(session authn.Session) sessionRecord {
	return sessionRecord{
		ID:                session.ID,
		Created:           session.Created,
		UserID:            session.UserID,
		HashedOAuth2State: session.HashedOAuth2State,
		HashedToken:       session.HashedToken,
		Authenticated:     session.Authenticated,
		Expires:           session.Expires,
	}
}

func (s sessionRecord) toSession() authn.Session {
	session := authn.Session{
		UserID:            s.UserID,
		HashedOAuth2State: s.HashedOAuth2State,
		HashedToken:       s.HashedToken,
		Authenticated:     s.Authenticated,
		Expires:           s.Expires,
	}
	session.ID = s.ID
	session.Created = s.Created
	return session
}

// NewSessionsStore returns a Redis-based implementation of the
// authn.SessionsStore interface. Sessions are plain keys with TTLs; Redis
// reaps lapsed sessions without any server-side sweep.
func NewSessionsStore(client *redis.Client) authn.SessionsStore {
	return &sessionsStore{
		client: client,
	}
}

func sessionKey(id string) string {
	return fmt.Sprintf("sessions:%s", id)
}

func tokenKey(hashedToken string) string {
	return fmt.Sprintf("sessions:token:%s", hashedToken)
}

func stateKey(hashedOAuth2State string) string {
	return fmt.Sprintf("sessions:state:%s", hashedOAuth2State)
}

func userKey(userID string) string {
	return fmt.Sprintf("sessions:user:%s", userID)
}

func (s *sessionsStore) Create(
	ctx context.Context,
	session authn.Session,
) error {
	sessionJSON, err := json.Marshal(newSessionRecord(session))
	if err != nil {
		return errors.Wrapf(err, "error encoding session %q", session.ID)
	}
	ttl := pendingSessionTTL
	if session.Expires != nil {
		ttl = time.Until(*session.Expires)
	}
	pipeline := s.client.TxPipeline()
	pipeline.Set(sessionKey(session.ID), sessionJSON, ttl)
	pipeline.Set(tokenKey(session.HashedToken), session.ID, ttl)
	if session.HashedOAuth2State != "" {
		pipeline.Set(stateKey(session.HashedOAuth2State), session.ID, ttl)
	}
	if session.UserID != "" {
		pipeline.SAdd(userKey(session.UserID), session.ID)
	}
	if _, err := pipeline.Exec(); err != nil {
		return errors.Wrapf(err, "error storing new session %q", session.ID)
	}
	return nil
}

func (s *sessionsStore) GetByHashedOAuth2State(
	ctx context.Context,
	hashedOAuth2State string,
) (authn.Session, error) {
	return s.getByIndexKey(stateKey(hashedOAuth2State))
}

func (s *sessionsStore) GetByHashedToken(
	ctx context.Context,
	hashedToken string,
) (authn.Session, error) {
	return s.getByIndexKey(tokenKey(hashedToken))
}

func (s *sessionsStore) getByIndexKey(key string) (authn.Session, error) {
	session := authn.Session{}
	sessionID, err := s.client.Get(key).Result()
	if err == redis.Nil {
		return session, &meta.ErrNotFound{
			Type: "Session",
		}
	}
	if err != nil {
		return session, errors.Wrap(err, "error finding session")
	}
	return s.get(sessionID)
}

func (s *sessionsStore) get(id string) (authn.Session, error) {
	sessionJSON, err := s.client.Get(sessionKey(id)).Result()
	if err == redis.Nil {
		return authn.Session{}, &meta.ErrNotFound{
			Type: "Session",
			ID:   id,
		}
	}
	if err != nil {
		return authn.Session{}, errors.Wrapf(
			err,
			"error finding session %q",
			id,
		)
	}
	record := sessionRecord{}
	if err := json.Unmarshal([]byte(sessionJSON), &record); err != nil {
		return authn.Session{}, errors.Wrapf(
			err,
			"error decoding session %q",
			id,
		)
	}
	return record.toSession(), nil
}

func (s *sessionsStore) Authenticate(
	ctx context.Context,
	sessionID string,
	userID string,
	expires time.Time,
) error {
	session, err := s.get(sessionID)
	if err != nil {
		return err
	}
	now := time.Now()
	session.UserID = userID
	session.Authenticated = &now
	session.Expires = &expires
	sessionJSON, err := json.Marshal(newSessionRecord(session))
	if err != nil {
		return errors.Wrapf(err, "error encoding session %q", sessionID)
	}
	ttl := time.Until(expires)
	pipeline := s.client.TxPipeline()
	pipeline.Set(sessionKey(sessionID), sessionJSON, ttl)
	pipeline.Set(tokenKey(session.HashedToken), sessionID, ttl)
	if session.HashedOAuth2State != "" {
		// The pending flow is complete; the state key has served its purpose.
		pipeline.Del(stateKey(session.HashedOAuth2State))
	}
	pipeline.SAdd(userKey(userID), sessionID)
	if _, err := pipeline.Exec(); err != nil {
		return errors.Wrapf(
			err,
			"error storing authentication details for session %q",
			sessionID,
		)
	}
	return nil
}

func (s *sessionsStore) Delete(ctx context.Context, id string) error {
	session, err := s.get(id)
	if err != nil {
		return err
	}
	pipeline := s.client.TxPipeline()
	pipeline.Del(sessionKey(id))
	pipeline.Del(tokenKey(session.HashedToken))
	if session.HashedOAuth2State != "" {
		pipeline.Del(stateKey(session.HashedOAuth2State))
	}
	if session.UserID != "" {
		pipeline.SRem(userKey(session.UserID), id)
	}
	if _, err := pipeline.Exec(); err != nil {
		return errors.Wrapf(err, "error deleting session %q", id)
	}
	return nil
}

func (s *sessionsStore) DeleteByUser(ctx context.Context, userID string) error {
	sessionIDs, err := s.client.SMembers(userKey(userID)).Result()
	if err != nil {
		return errors.Wrapf(
			err,
			"error finding sessions for user %q",
			userID,
		)
	}
	for _, sessionID := range sessionIDs {
		if err := s.Delete(ctx, sessionID); err != nil {
			if _, ok := errors.Cause(err).(*meta.ErrNotFound); ok {
				continue // Already lapsed. That's fine.
			}
			return err
		}
	}
	if err := s.client.Del(userKey(userID)).Err(); err != nil {
		return errors.Wrapf(
			err,
			"error deleting session set for user %q",
			userID,
		)
	}
	return nil
}

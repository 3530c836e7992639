package authn

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelworks/portcullis/internal/meta"
)

// mockUsersStore is an in-memory UsersStore implementation for tests.
type mockUsersStore struct {
	users map[string]User
}

func newMockUsersStore() *mockUsersStore {
	return &mockUsersStore{
		users: map[string]User{},
	}
}

func (m *mockUsersStore) Create(_ context.Context, user User) error {
	if _, ok := m.users[user.ID]; ok {
		return &meta.ErrConflict{
			Type: "User",
			ID:   user.ID,
			Reason: fmt.Sprintf(
				"A user with the ID %q already exists.",
				user.ID,
			),
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUsersStore) Get(_ context.Context, id string) (User, error) {
	user, ok := m.users[id]
	if !ok {
		return User{}, &meta.ErrNotFound{Type: "User", ID: id}
	}
	return user, nil
}

func (m *mockUsersStore) GetByProviderSubject(
	_ context.Context,
	subject string,
) (User, error) {
	for _, user := range m.users {
		if user.ProviderSubject == subject {
			return user, nil
		}
	}
	return User{}, &meta.ErrNotFound{Type: "User"}
}

func (m *mockUsersStore) UpdatePassword(
	_ context.Context,
	id string,
	hashedPassword string,
	passwordScheme string,
) error {
	user, ok := m.users[id]
	if !ok {
		return &meta.ErrNotFound{Type: "User", ID: id}
	}
	user.HashedPassword = hashedPassword
	user.PasswordScheme = passwordScheme
	m.users[id] = user
	return nil
}

// mockSessionsStore is an in-memory SessionsStore implementation for tests.
type mockSessionsStore struct {
	sessions map[string]Session
}

func newMockSessionsStore() *mockSessionsStore {
	return &mockSessionsStore{
		sessions: map[string]Session{},
	}
}

func (m *mockSessionsStore) Create(_ context.Context, session Session) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionsStore) GetByHashedOAuth2State(
	_ context.Context,
	hashedOAuth2State string,
) (Session, error) {
	for _, session := range m.sessions {
		if session.HashedOAuth2State == hashedOAuth2State {
			return session, nil
		}
	}
	return Session{}, &meta.ErrNotFound{Type: "Session"}
}

func (m *mockSessionsStore) GetByHashedToken(
	_ context.Context,
	hashedToken string,
) (Session, error) {
	for _, session := range m.sessions {
		if session.HashedToken == hashedToken {
			return session, nil
		}
	}
	return Session{}, &meta.ErrNotFound{Type: "Session"}
}

func (m *mockSessionsStore) Authenticate(
	_ context.Context,
	sessionID string,
	userID string,
	expires time.Time,
) error {
	session, ok := m.sessions[sessionID]
	if !ok {
		return &meta.ErrNotFound{Type: "Session", ID: sessionID}
	}
	now := time.Now()
	session.UserID = userID
	session.Authenticated = &now
	session.Expires = &expires
	m.sessions[sessionID] = session
	return nil
}

func (m *mockSessionsStore) Delete(_ context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return &meta.ErrNotFound{Type: "Session", ID: id}
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionsStore) DeleteByUser(
	_ context.Context,
	userID string,
) error {
	for id, session := range m.sessions {
		if session.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

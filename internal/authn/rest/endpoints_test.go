package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/kestrelworks/portcullis/internal/authn"
	"github.com/kestrelworks/portcullis/internal/lib/restmachinery"
	libAuthn "github.com/kestrelworks/portcullis/internal/lib/restmachinery/authn"
	"github.com/kestrelworks/portcullis/internal/meta"
	"github.com/stretchr/testify/require"
)

// testUsersStore and testSessionsStore are in-memory store implementations
// that let these tests exercise the full request path-- router, filter,
// endpoints, services-- without a database.

type testUsersStore struct {
	users map[string]authn.User
}

func (t *testUsersStore) Create(_ context.Context, user authn.User) error {
	if _, ok := t.users[user.ID]; ok {
		return &meta.ErrConflict{
			Type: "User",
			ID:   user.ID,
			Reason: fmt.Sprintf(
				"A user with the ID %q already exists.",
				user.ID,
			),
		}
	}
	t.users[user.ID] = user
	return nil
}

func (t *testUsersStore) Get(
	_ context.Context,
	id string,
) (authn.User, error) {
	user, ok := t.users[id]
	if !ok {
		return authn.User{}, &meta.ErrNotFound{Type: "User", ID: id}
	}
	return user, nil
}

func (t *testUsersStore) GetByProviderSubject(
	_ context.Context,
	subject string,
) (authn.User, error) {
	for _, user := range t.users {
		if user.ProviderSubject == subject {
			return user, nil
		}
	}
	return authn.User{}, &meta.ErrNotFound{Type: "User"}
}

func (t *testUsersStore) UpdatePassword(
	_ context.Context,
	id string,
	hashedPassword string,
	passwordScheme string,
) error {
	user, ok := t.users[id]
	if !ok {
		return &meta.ErrNotFound{Type: "User", ID: id}
	}
	user.HashedPassword = hashedPassword
	user.PasswordScheme = passwordScheme
	t.users[id] = user
	return nil
}

type testSessionsStore struct {
	sessions map[string]authn.Session
}

func (t *testSessionsStore) Create(
	_ context.Context,
	session authn.Session,
) error {
	t.sessions[session.ID] = session
	return nil
}

func (t *testSessionsStore) GetByHashedOAuth2State(
	_ context.Context,
	hashedOAuth2State string,
) (authn.Session, error) {
	for _, session := range t.sessions {
		if session.HashedOAuth2State == hashedOAuth2State {
			return session, nil
		}
	}
	return authn.Session{}, &meta.ErrNotFound{Type: "Session"}
}

func (t *testSessionsStore) GetByHashedToken(
	_ context.Context,
	hashedToken string,
) (authn.Session, error) {
	for _, session := range t.sessions {
		if session.HashedToken == hashedToken {
			return session, nil
		}
	}
	return authn.Session{}, &meta.ErrNotFound{Type: "Session"}
}

func (t *testSessionsStore) Authenticate(
	_ context.Context,
	sessionID string,
	userID string,
	expires time.Time,
) error {
	session, ok := t.sessions[sessionID]
	if !ok {
		return &meta.ErrNotFound{Type: "Session", ID: sessionID}
	}
	now := time.Now()
	session.UserID = userID
	session.Authenticated = &now
	session.Expires = &expires
	t.sessions[sessionID] = session
	return nil
}

func (t *testSessionsStore) Delete(_ context.Context, id string) error {
	if _, ok := t.sessions[id]; !ok {
		return &meta.ErrNotFound{Type: "Session", ID: id}
	}
	delete(t.sessions, id)
	return nil
}

func (t *testSessionsStore) DeleteByUser(
	_ context.Context,
	userID string,
) error {
	for id, session := range t.sessions {
		if session.UserID == userID {
			delete(t.sessions, id)
		}
	}
	return nil
}

func newTestRouter() *mux.Router {
	usersStore := &testUsersStore{users: map[string]authn.User{}}
	sessionsStore := &testSessionsStore{sessions: map[string]authn.Session{}}
	usersService := authn.NewUsersService(usersStore, sessionsStore)
	sessionsService := authn.NewSessionsService(
		sessionsStore,
		usersStore,
		time.Hour,
		nil,
		nil,
	)
	tokensService := authn.NewTokensService(
		usersStore,
		[]byte("test-signing-key"),
		time.Hour,
	)
	baseEndpoints := &restmachinery.BaseEndpoints{
		TokenAuthFilter: libAuthn.NewTokenAuthFilter(
			sessionsService.GetByToken,
			usersService.Get,
			tokensService.Resolve,
		),
	}
	router := mux.NewRouter()
	router.StrictSlash(true)
	NewSessionsEndpoints(baseEndpoints, sessionsService, tokensService).
		Register(router)
	NewUsersEndpoints(baseEndpoints, usersService).Register(router)
	return router
}

func doJSON(
	t *testing.T,
	router *mux.Router,
	method string,
	path string,
	body interface{},
	decorate func(*http.Request),
) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(bodyBytes)
	} else {
		reqBody = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reqBody)
	if decorate != nil {
		decorate(req)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func TestSessionLoginFlow(t *testing.T) {
	router := newTestRouter()

	rr := doJSON(t, router, http.MethodPost, "/register", map[string]string{
		"id":       "a@x.com",
		"name":     "Abigail Example",
		"password": "pw123456",
	}, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	// Wrong password and unknown user alike yield 401
	rr = doJSON(t, router, http.MethodPost, "/login", map[string]string{
		"id":       "a@x.com",
		"password": "wrong123",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = doJSON(t, router, http.MethodPost, "/login", map[string]string{
		"id":       "nobody@x.com",
		"password": "pw123456",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/login", map[string]string{
		"id":       "a@x.com",
		"password": "pw123456",
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	token := authn.Token{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &token))
	require.NotEmpty(t, token.Value)
	// The token also travels as a cookie for browser clients
	var sessionCookie *http.Cookie
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == libAuthn.SessionCookieName {
			sessionCookie = cookie
		}
	}
	require.NotNil(t, sessionCookie)
	require.Equal(t, token.Value, sessionCookie.Value)
	require.True(t, sessionCookie.HttpOnly)

	// The profile is reachable with the header...
	rr = doJSON(
		t,
		router,
		http.MethodGet,
		"/profile",
		nil,
		bearer(token.Value),
	)
	require.Equal(t, http.StatusOK, rr.Code)
	profile := authn.User{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	require.Equal(t, "a@x.com", profile.ID)

	// ...and with the cookie.
	rr = doJSON(
		t,
		router,
		http.MethodGet,
		"/profile",
		nil,
		func(r *http.Request) {
			r.AddCookie(sessionCookie)
		},
	)
	require.Equal(t, http.StatusOK, rr.Code)

	// Logout destroys the session; the old token no longer authenticates
	rr = doJSON(
		t,
		router,
		http.MethodGet,
		"/logout",
		nil,
		bearer(token.Value),
	)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(
		t,
		router,
		http.MethodGet,
		"/profile",
		nil,
		bearer(token.Value),
	)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestStatelessLoginFlow(t *testing.T) {
	router := newTestRouter()

	rr := doJSON(t, router, http.MethodPost, "/register", map[string]string{
		"id":       "a@x.com",
		"password": "pw123456",
	}, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(
		t,
		router,
		http.MethodPost,
		"/login?stateless=true",
		map[string]string{
			"id":       "a@x.com",
			"password": "pw123456",
		},
		nil,
	)
	require.Equal(t, http.StatusOK, rr.Code)
	token := authn.Token{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &token))
	require.NotEmpty(t, token.Value)
	// Stateless logins issue no cookie and create no session record
	require.Empty(t, rr.Result().Cookies())

	rr = doJSON(
		t,
		router,
		http.MethodGet,
		"/profile",
		nil,
		bearer(token.Value),
	)
	require.Equal(t, http.StatusOK, rr.Code)
	profile := authn.User{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	require.Equal(t, "a@x.com", profile.ID)

	// There is no server-side session for a bearer principal to log out of
	rr = doJSON(
		t,
		router,
		http.MethodGet,
		"/logout",
		nil,
		bearer(token.Value),
	)
	require.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestRegisterValidation(t *testing.T) {
	router := newTestRouter()

	// Passwords shorter than the schema's minimum are rejected up front
	rr := doJSON(t, router, http.MethodPost, "/register", map[string]string{
		"id":       "a@x.com",
		"password": "short",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/register", map[string]string{
		"id":       "a@x.com",
		"password": "pw123456",
	}, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	// Re-registering the same ID conflicts
	rr = doJSON(t, router, http.MethodPost, "/register", map[string]string{
		"id":       "a@x.com",
		"password": "pw123456",
	}, nil)
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestPasswordRotationFlow(t *testing.T) {
	router := newTestRouter()

	rr := doJSON(t, router, http.MethodPost, "/register", map[string]string{
		"id":       "a@x.com",
		"password": "pw123456",
	}, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/login", map[string]string{
		"id":       "a@x.com",
		"password": "pw123456",
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	token := authn.Token{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &token))

	rr = doJSON(
		t,
		router,
		http.MethodPut,
		"/profile/password",
		map[string]string{"password": "newpw9876"},
		bearer(token.Value),
	)
	require.Equal(t, http.StatusOK, rr.Code)

	// Rotation destroyed the session that performed it
	rr = doJSON(
		t,
		router,
		http.MethodGet,
		"/profile",
		nil,
		bearer(token.Value),
	)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// Only the new password logs in now
	rr = doJSON(t, router, http.MethodPost, "/login", map[string]string{
		"id":       "a@x.com",
		"password": "pw123456",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = doJSON(t, router, http.MethodPost, "/login", map[string]string{
		"id":       "a@x.com",
		"password": "newpw9876",
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestFederatedLoginNotSupported(t *testing.T) {
	router := newTestRouter()
	rr := doJSON(t, router, http.MethodGet, "/auth/oidc", nil, nil)
	require.Equal(t, http.StatusNotImplemented, rr.Code)
}

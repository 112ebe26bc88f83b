package services

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/api"
	"saldo/internal/core"
	"saldo/internal/session"
)

type fakeAuthAPI struct {
	resp       api.AuthResponse
	err        error
	profile    core.User
	profileErr error
	lastCreds  api.Credentials
}

func (f *fakeAuthAPI) Login(_ context.Context, c api.Credentials) (api.AuthResponse, error) {
	f.lastCreds = c
	return f.resp, f.err
}

func (f *fakeAuthAPI) Register(_ context.Context, c api.Credentials) (api.AuthResponse, error) {
	f.lastCreds = c
	return f.resp, f.err
}

func (f *fakeAuthAPI) Profile(context.Context) (core.User, error) {
	return f.profile, f.profileErr
}

func newAuthFixture() (*AuthService, *fakeAuthAPI, *session.Memory) {
	client := &fakeAuthAPI{}
	store := session.NewMemory()
	deps, _ := testDeps(nil)
	svc := NewAuthService(client, store, deps)
	svc.now = func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc, client, store
}

func TestLoginStoresSession(t *testing.T) {
	svc, client, store := newAuthFixture()
	client.resp = api.AuthResponse{AccessToken: "jwt", User: core.User{ID: 1, Email: "ana@example.com"}}

	err := svc.Login(context.Background(), api.Credentials{Email: "  ana@example.com ", Password: "pw"})

	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", client.lastCreds.Email)
	assert.Equal(t, StatusAuthenticated, svc.Status())
	require.NotNil(t, svc.User())
	assert.Equal(t, "ana@example.com", svc.User().Email)

	s, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jwt", s.Token)
	assert.Equal(t, 2025, s.IssuedAt.Year())
}

func TestLoginFailureClearsPreviousSession(t *testing.T) {
	svc, client, store := newAuthFixture()
	require.NoError(t, store.Save(context.Background(), session.Session{Token: "old"}))
	client.err = &api.Error{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}

	err := svc.Login(context.Background(), api.Credentials{Email: "a@b.c", Password: "bad"})

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "Invalid credentials", opErr.Message)
	assert.Equal(t, StatusNotAuthenticated, svc.Status())
	assert.Equal(t, "Invalid credentials", svc.Error())
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)

	svc.ClearError()
	assert.Empty(t, svc.Error())
}

func TestRegisterFallbackMessage(t *testing.T) {
	svc, client, _ := newAuthFixture()
	client.err = errNetwork

	err := svc.Register(context.Background(), api.Credentials{Email: "a@b.c", Password: "pw"})

	require.Error(t, err)
	assert.Equal(t, "Registration failed.", svc.Error())
}

func TestLoginRequiresCredentials(t *testing.T) {
	svc, _, _ := newAuthFixture()
	err := svc.Login(context.Background(), api.Credentials{Email: " "})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestCheckToken(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		profileErr error
		want       AuthStatus
		keeps      bool
	}{
		{"no session", "", nil, StatusNotAuthenticated, false},
		{"valid", "jwt", nil, StatusAuthenticated, true},
		{"rejected", "jwt", &api.Error{StatusCode: http.StatusUnauthorized}, StatusNotAuthenticated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, client, store := newAuthFixture()
			client.profile = core.User{ID: 3, Email: "x@y.z"}
			client.profileErr = tt.profileErr
			if tt.token != "" {
				require.NoError(t, store.Save(context.Background(), session.Session{Token: tt.token}))
			}
			var loggedOut atomic.Int32
			svc.OnLogout(func(context.Context) { loggedOut.Add(1) })

			assert.Equal(t, tt.want, svc.CheckToken(context.Background()))
			assert.Equal(t, tt.want, svc.Status())

			_, err := store.Load(context.Background())
			if tt.keeps {
				assert.NoError(t, err)
				assert.Zero(t, loggedOut.Load())
			} else {
				assert.ErrorIs(t, err, session.ErrNoSession)
				assert.Equal(t, int32(1), loggedOut.Load())
			}
		})
	}
}

func TestLogout(t *testing.T) {
	svc, client, store := newAuthFixture()
	client.resp = api.AuthResponse{AccessToken: "jwt"}
	require.NoError(t, svc.Login(context.Background(), api.Credentials{Email: "a@b.c", Password: "pw"}))

	var hooks int
	svc.OnLogout(func(context.Context) { hooks++ })
	require.NoError(t, svc.Logout(context.Background()))

	assert.Equal(t, StatusNotAuthenticated, svc.Status())
	assert.Nil(t, svc.User())
	assert.Equal(t, 1, hooks)
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)
}

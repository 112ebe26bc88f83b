package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"saldo/internal/api"
	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/notify"
	"saldo/internal/session"
)

// AuthStatus is the authentication state of the session.
type AuthStatus string

const (
	StatusChecking         AuthStatus = "checking"
	StatusAuthenticated    AuthStatus = "authenticated"
	StatusNotAuthenticated AuthStatus = "not-authenticated"
)

// AuthAPI is the subset of the API client used for authentication.
type AuthAPI interface {
	Login(ctx context.Context, creds api.Credentials) (api.AuthResponse, error)
	Register(ctx context.Context, creds api.Credentials) (api.AuthResponse, error)
	Profile(ctx context.Context) (core.User, error)
}

var ErrMissingCredentials = errors.New("email and password are required")

// AuthService owns the session credential and the authentication status.
type AuthService struct {
	client   AuthAPI
	sessions session.Store
	notifier notify.Notifier
	logger   *log.Logger
	now      func() time.Time

	mu     sync.RWMutex
	status AuthStatus
	user   *core.User
	err    string
	// onLogout runs after the session is cleared, e.g. to empty the stores.
	onLogout []func(ctx context.Context)
}

func NewAuthService(client AuthAPI, sessions session.Store, deps Deps) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentAuth)
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	return &AuthService{
		client:   client,
		sessions: sessions,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		status:   StatusNotAuthenticated,
	}
}

// OnLogout registers a hook run on every logout.
func (a *AuthService) OnLogout(fn func(ctx context.Context)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onLogout = append(a.onLogout, fn)
}

// Login replaces any current session with a new one for creds.
func (a *AuthService) Login(ctx context.Context, creds api.Credentials) error {
	return a.authenticate(ctx, creds, log.OpLogin, a.client.Login, "Authentication error", "Login failed.")
}

// Register creates an account and starts a session for it.
func (a *AuthService) Register(ctx context.Context, creds api.Credentials) error {
	return a.authenticate(ctx, creds, log.OpCreate, a.client.Register, "Registration error", "Registration failed.")
}

func (a *AuthService) authenticate(
	ctx context.Context,
	creds api.Credentials,
	op string,
	call func(context.Context, api.Credentials) (api.AuthResponse, error),
	title, fallback string,
) error {
	n := notify.FromContext(ctx, a.notifier)
	ctx = context.WithoutCancel(ctx)

	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return a.authFailed(ctx, n, op, title, "Email and password are required.", ErrMissingCredentials)
	}

	if err := a.sessions.Clear(ctx); err != nil {
		a.logger.WarnContext(ctx, "Failed to clear previous session", log.FieldError, err.Error())
	}
	a.setStatus(StatusChecking, nil, "")

	resp, err := call(ctx, creds)
	if err != nil {
		return a.authFailed(ctx, n, op, title, api.MessageOf(err, fallback), err)
	}
	if resp.AccessToken == "" {
		return a.authFailed(ctx, n, op, title, fallback, errors.New("empty access token"))
	}

	s := session.Session{Token: resp.AccessToken, IssuedAt: a.now(), User: resp.User}
	if err := a.sessions.Save(ctx, s); err != nil {
		return a.authFailed(ctx, n, op, title, "Could not store the session.", err)
	}
	user := resp.User
	a.setStatus(StatusAuthenticated, &user, "")
	a.logger.InfoContext(ctx, "Session started", log.FieldOperation, op, log.FieldUserEmail, user.Email)
	return nil
}

func (a *AuthService) authFailed(ctx context.Context, n notify.Notifier, op, title, msg string, err error) error {
	notify.Error(ctx, n, title, msg)
	a.setStatus(StatusNotAuthenticated, nil, msg)
	a.logger.WarnContext(ctx, "Authentication failed",
		log.FieldOperation, op,
		log.FieldErrorType, log.ErrorTypeAuth,
		log.FieldError, err.Error())
	return &OperationError{Op: op, Message: msg, Err: err}
}

// CheckToken validates the stored session against the profile endpoint.
// A missing token or a rejected profile call ends the session.
func (a *AuthService) CheckToken(ctx context.Context) AuthStatus {
	ctx = context.WithoutCancel(ctx)

	s, err := a.sessions.Load(ctx)
	if err != nil || s.Token == "" {
		if err != nil && !errors.Is(err, session.ErrNoSession) {
			a.logger.WarnContext(ctx, "Failed to read session", log.FieldError, err.Error())
		}
		a.logout(ctx, "")
		return StatusNotAuthenticated
	}

	a.setStatus(StatusChecking, nil, "")
	user, err := a.client.Profile(ctx)
	if err != nil {
		a.logger.InfoContext(ctx, "Stored session rejected", log.FieldError, err.Error())
		if cerr := a.sessions.Clear(ctx); cerr != nil {
			a.logger.WarnContext(ctx, "Failed to clear session", log.FieldError, cerr.Error())
		}
		a.logout(ctx, "")
		return StatusNotAuthenticated
	}

	a.setStatus(StatusAuthenticated, &user, "")
	return StatusAuthenticated
}

// Logout clears the stored session.
func (a *AuthService) Logout(ctx context.Context) error {
	err := a.sessions.Clear(ctx)
	a.logout(ctx, "")
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "Session ended", log.FieldOperation, log.OpLogout)
	return nil
}

func (a *AuthService) logout(ctx context.Context, msg string) {
	a.setStatus(StatusNotAuthenticated, nil, msg)
	a.mu.RLock()
	hooks := append([]func(context.Context){}, a.onLogout...)
	a.mu.RUnlock()
	for _, fn := range hooks {
		fn(ctx)
	}
}

func (a *AuthService) setStatus(st AuthStatus, user *core.User, msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = st
	a.user = user
	a.err = msg
}

// Status returns the current authentication status.
func (a *AuthService) Status() AuthStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// User returns the authenticated user, if any.
func (a *AuthService) User() *core.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// Error returns the last authentication error message.
func (a *AuthService) Error() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.err
}

// ClearError resets the authentication error.
func (a *AuthService) ClearError() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = ""
}

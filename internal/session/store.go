package session

import (
	"context"
	"strings"
	"sync"

	"taskpal/internal/api"
	apperrors "taskpal/internal/errors"
	"taskpal/internal/logging"
)

// State is the session lifecycle position. Exactly one holds at any time.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Authenticator is the slice of the API client the session store depends on.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (api.AuthResponse, error)
	Register(ctx context.Context, email, password string) (api.User, error)
	VerifyToken(ctx context.Context, token string) (api.VerifyResponse, error)
}

// Snapshot is an immutable view of the session for rendering.
type Snapshot struct {
	State State
	User  api.User
	Token string
	Err   string
}

// Authenticated reports whether both a credential and a user record are held.
func (s Snapshot) Authenticated() bool {
	return s.Token != "" && s.User.ID != ""
}

// Store holds the current identity and drives the
// unauthenticated/authenticating/authenticated lifecycle. All methods are
// safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	auth        Authenticator
	persistence Persistence
	logger      logging.Logger

	// onAuthenticated re-arms the 401 gate; onLoggedOut carries the UI back
	// to the login entry point. Both optional.
	onAuthenticated func()
	onLoggedOut     func()

	state State
	user  api.User
	token string
	err   string

	subs []func()
}

// Option configures a Store.
type Option func(*Store)

// WithAuthenticatedHook runs fn on every transition into Authenticated.
func WithAuthenticatedHook(fn func()) Option {
	return func(s *Store) { s.onAuthenticated = fn }
}

// WithLogoutHook runs fn on every transition out of Authenticated, including
// forced logouts.
func WithLogoutHook(fn func()) Option {
	return func(s *Store) { s.onLoggedOut = fn }
}

// NewStore builds a session store. Credentials already persisted are adopted
// immediately, matching a page reload in the source design; VerifyToken
// confirms or revokes them against the backend.
func NewStore(auth Authenticator, persistence Persistence, logger logging.Logger, opts ...Option) *Store {
	s := &Store{
		auth:        auth,
		persistence: persistence,
		logger:      logging.OrNop(logger),
		state:       StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(s)
	}

	creds, err := persistence.Load()
	if err != nil {
		s.logger.Warn("failed to load persisted credentials: %v", err)
		return s
	}
	if !creds.Empty() {
		s.user = creds.User
		s.token = creds.Token
		s.state = StateAuthenticated
		if s.onAuthenticated != nil {
			s.onAuthenticated()
		}
	}
	return s
}

// Subscribe registers fn to run after every state change. Subscribers pull
// the new state via Snapshot.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Snapshot returns the current session view.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{State: s.state, User: s.user, Token: s.token, Err: s.err}
}

// Token implements httpclient.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Login authenticates with the backend and persists the resulting
// credentials. On failure the session stays unauthenticated, the error
// message is surfaced, and the error is returned for the caller to react to.
func (s *Store) Login(ctx context.Context, email, password string) error {
	if err := validateLogin(email, password); err != nil {
		s.setError(apperrors.Humanize(err, "Login failed"))
		return err
	}

	s.transition(StateAuthenticating, "")

	resp, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.logger.Warn("login failed for %s: %v", email, err)
		s.mu.Lock()
		s.state = StateUnauthenticated
		s.err = apperrors.Humanize(err, "Login failed")
		s.mu.Unlock()
		s.notify()
		return err
	}

	creds := Credentials{Token: resp.AccessToken, User: resp.User}
	if err := s.persistence.Save(creds); err != nil {
		s.logger.Error("failed to persist credentials: %v", err)
	}

	s.mu.Lock()
	s.user = resp.User
	s.token = resp.AccessToken
	s.state = StateAuthenticated
	s.err = ""
	s.mu.Unlock()

	s.logger.Info("session authenticated for %s", resp.User.Email)
	if s.onAuthenticated != nil {
		s.onAuthenticated()
	}
	s.notify()
	return nil
}

// Register creates an account. It deliberately does not authenticate the
// session; callers invoke Login afterwards for immediate sign-in.
func (s *Store) Register(ctx context.Context, email, password string) error {
	if err := validateRegistration(email, password); err != nil {
		s.setError(apperrors.Humanize(err, "Registration failed"))
		return err
	}

	if _, err := s.auth.Register(ctx, email, password); err != nil {
		s.logger.Warn("registration failed for %s: %v", email, err)
		s.setError(apperrors.Humanize(err, "Registration failed"))
		return err
	}
	s.setError("")
	return nil
}

// Logout clears persisted and in-memory credentials. Idempotent.
func (s *Store) Logout() {
	if err := s.persistence.Clear(); err != nil {
		s.logger.Warn("failed to clear persisted credentials: %v", err)
	}

	s.mu.Lock()
	wasAuthenticated := s.state == StateAuthenticated
	s.user = api.User{}
	s.token = ""
	s.state = StateUnauthenticated
	s.err = ""
	s.mu.Unlock()

	if wasAuthenticated {
		s.logger.Info("session cleared")
		if s.onLoggedOut != nil {
			s.onLoggedOut()
		}
	}
	s.notify()
}

// ForceLogout is the auth-gate path: any request observing a 401 lands here.
func (s *Store) ForceLogout() {
	s.logger.Warn("forced logout: backend rejected the credential")
	s.Logout()
}

// VerifyToken validates a persisted credential at startup. Without one it is
// a no-op; with one the session is reconstructed on success and cleared on
// failure. Failures are absorbed, not returned: a broken credential just
// means signing in again.
func (s *Store) VerifyToken(ctx context.Context) {
	creds, err := s.persistence.Load()
	if err != nil || creds.Empty() {
		return
	}

	s.transition(StateAuthenticating, "")

	resp, err := s.auth.VerifyToken(ctx, creds.Token)
	if err != nil {
		s.logger.Warn("persisted credential rejected: %v", err)
		s.Logout()
		return
	}

	user := api.User{ID: resp.UserID, Email: resp.Email}
	if err := s.persistence.Save(Credentials{Token: creds.Token, User: user}); err != nil {
		s.logger.Error("failed to persist refreshed credentials: %v", err)
	}

	s.mu.Lock()
	s.user = user
	s.token = creds.Token
	s.state = StateAuthenticated
	s.err = ""
	s.mu.Unlock()

	s.logger.Info("session restored for %s", user.Email)
	if s.onAuthenticated != nil {
		s.onAuthenticated()
	}
	s.notify()
}

// ClearError drops the last error message without touching the
// authentication state.
func (s *Store) ClearError() {
	s.setError("")
}

func (s *Store) transition(state State, errMsg string) {
	s.mu.Lock()
	s.state = state
	s.err = errMsg
	s.mu.Unlock()
	s.notify()
}

func (s *Store) setError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
	s.notify()
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}

func validateLogin(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return apperrors.NewValidation("email", "cannot be empty")
	}
	if password == "" {
		return apperrors.NewValidation("password", "cannot be empty")
	}
	return nil
}

func validateRegistration(email, password string) error {
	if !strings.Contains(email, "@") {
		return apperrors.NewValidation("email", "must be a valid address")
	}
	if len(password) < 8 {
		return apperrors.NewValidation("password", "must be at least 8 characters")
	}
	return nil
}

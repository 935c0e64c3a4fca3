package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"taskpal/internal/api"
	apperrors "taskpal/internal/errors"
)

type fakeAuth struct {
	loginResp  api.AuthResponse
	loginErr   error
	registerFn func(email string) (api.User, error)
	verifyResp api.VerifyResponse
	verifyErr  error

	loginCalls  int
	verifyCalls int
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (api.AuthResponse, error) {
	f.loginCalls++
	if f.loginErr != nil {
		return api.AuthResponse{}, f.loginErr
	}
	return f.loginResp, nil
}

func (f *fakeAuth) Register(_ context.Context, email, _ string) (api.User, error) {
	if f.registerFn != nil {
		return f.registerFn(email)
	}
	return api.User{ID: "u-new", Email: email}, nil
}

func (f *fakeAuth) VerifyToken(_ context.Context, _ string) (api.VerifyResponse, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return api.VerifyResponse{}, f.verifyErr
	}
	return f.verifyResp, nil
}

func okAuth() *fakeAuth {
	return &fakeAuth{
		loginResp: api.AuthResponse{
			AccessToken: "tok-1",
			TokenType:   "bearer",
			User:        api.User{ID: "u1", Email: "a@b.c"},
		},
		verifyResp: api.VerifyResponse{UserID: "u1", Email: "a@b.c"},
	}
}

func TestLoginSuccessAuthenticatesAndPersists(t *testing.T) {
	persistence := NewMemoryPersistence()
	armed := 0
	store := NewStore(okAuth(), persistence, nil, WithAuthenticatedHook(func() { armed++ }))

	require.NoError(t, store.Login(context.Background(), "a@b.c", "secret-123"))

	snap := store.Snapshot()
	require.Equal(t, StateAuthenticated, snap.State)
	require.True(t, snap.Authenticated())
	require.Equal(t, "tok-1", snap.Token)
	require.Equal(t, 1, armed)

	creds, err := persistence.Load()
	require.NoError(t, err)
	require.Equal(t, "tok-1", creds.Token)
	require.Equal(t, "u1", creds.User.ID)
}

func TestLoginFailureStaysUnauthenticated(t *testing.T) {
	auth := okAuth()
	auth.loginErr = &apperrors.ServerError{Status: 401, Message: "Invalid email or password"}
	store := NewStore(auth, NewMemoryPersistence(), nil)

	err := store.Login(context.Background(), "a@b.c", "wrong-pass")
	require.Error(t, err)

	snap := store.Snapshot()
	require.Equal(t, StateUnauthenticated, snap.State)
	require.False(t, snap.Authenticated())
	require.Equal(t, "Invalid email or password", snap.Err)
}

func TestLoginValidatesBeforeNetwork(t *testing.T) {
	auth := okAuth()
	store := NewStore(auth, NewMemoryPersistence(), nil)

	err := store.Login(context.Background(), "", "")
	require.True(t, apperrors.IsValidation(err))
	require.Zero(t, auth.loginCalls)
	require.NotEmpty(t, store.Snapshot().Err)
}

func TestPersistedCredentialsSurviveReload(t *testing.T) {
	persistence := NewMemoryPersistence()
	store := NewStore(okAuth(), persistence, nil)
	require.NoError(t, store.Login(context.Background(), "a@b.c", "secret-123"))

	// Simulated reload: a brand-new store over the same persistence.
	reloaded := NewStore(okAuth(), persistence, nil)
	snap := reloaded.Snapshot()
	require.True(t, snap.Authenticated())
	require.Equal(t, "tok-1", snap.Token)
	require.Equal(t, "a@b.c", snap.User.Email)
}

func TestLogoutClearsEverythingAndIsIdempotent(t *testing.T) {
	persistence := NewMemoryPersistence()
	loggedOut := 0
	store := NewStore(okAuth(), persistence, nil, WithLogoutHook(func() { loggedOut++ }))
	require.NoError(t, store.Login(context.Background(), "a@b.c", "secret-123"))

	store.Logout()
	store.Logout()

	snap := store.Snapshot()
	require.False(t, snap.Authenticated())
	require.Equal(t, StateUnauthenticated, snap.State)
	require.Empty(t, snap.Token)

	creds, err := persistence.Load()
	require.NoError(t, err)
	require.True(t, creds.Empty())

	// Hook fires only on the transition out of Authenticated.
	require.Equal(t, 1, loggedOut)
}

func TestVerifyTokenNoOpWithoutCredential(t *testing.T) {
	auth := okAuth()
	store := NewStore(auth, NewMemoryPersistence(), nil)

	store.VerifyToken(context.Background())

	require.Zero(t, auth.verifyCalls)
	require.Equal(t, StateUnauthenticated, store.Snapshot().State)
}

func TestVerifyTokenReconstructsSession(t *testing.T) {
	persistence := NewMemoryPersistence()
	require.NoError(t, persistence.Save(Credentials{
		Token: "tok-old",
		User:  api.User{ID: "u1", Email: "stale@b.c"},
	}))

	auth := okAuth()
	auth.verifyResp = api.VerifyResponse{UserID: "u1", Email: "fresh@b.c"}
	store := NewStore(auth, persistence, nil)

	store.VerifyToken(context.Background())

	snap := store.Snapshot()
	require.True(t, snap.Authenticated())
	require.Equal(t, "tok-old", snap.Token)
	require.Equal(t, "fresh@b.c", snap.User.Email, "user record refreshed from the backend")
}

func TestVerifyTokenFailureForcesLogout(t *testing.T) {
	persistence := NewMemoryPersistence()
	require.NoError(t, persistence.Save(Credentials{
		Token: "tok-expired",
		User:  api.User{ID: "u1", Email: "a@b.c"},
	}))

	auth := okAuth()
	auth.verifyErr = &apperrors.AuthError{}
	store := NewStore(auth, persistence, nil)

	store.VerifyToken(context.Background())

	require.False(t, store.Snapshot().Authenticated())
	creds, err := persistence.Load()
	require.NoError(t, err)
	require.True(t, creds.Empty())
}

func TestRegisterDoesNotAuthenticate(t *testing.T) {
	store := NewStore(okAuth(), NewMemoryPersistence(), nil)

	require.NoError(t, store.Register(context.Background(), "new@b.c", "secret-123"))
	require.False(t, store.Snapshot().Authenticated())
}

func TestRegisterValidatesPasswordLength(t *testing.T) {
	store := NewStore(okAuth(), NewMemoryPersistence(), nil)

	err := store.Register(context.Background(), "new@b.c", "short")
	require.True(t, apperrors.IsValidation(err))
}

func TestClearErrorKeepsState(t *testing.T) {
	auth := okAuth()
	auth.loginErr = &apperrors.ServerError{Status: 500, Message: "boom"}
	store := NewStore(auth, NewMemoryPersistence(), nil)

	_ = store.Login(context.Background(), "a@b.c", "secret-123")
	require.NotEmpty(t, store.Snapshot().Err)

	store.ClearError()
	snap := store.Snapshot()
	require.Empty(t, snap.Err)
	require.Equal(t, StateUnauthenticated, snap.State)
}

func TestSubscribersNotifiedOnTransitions(t *testing.T) {
	store := NewStore(okAuth(), NewMemoryPersistence(), nil)

	changes := 0
	store.Subscribe(func() { changes++ })

	require.NoError(t, store.Login(context.Background(), "a@b.c", "secret-123"))
	require.GreaterOrEqual(t, changes, 2, "authenticating and authenticated transitions both notify")
}

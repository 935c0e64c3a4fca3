package httpclient

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"taskpal/internal/logging"
)

// TokenSource supplies the current bearer credential. An empty string means
// the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a plain function to a TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// New builds the base *http.Client used for every backend call.
func New(timeout time.Duration, logger logging.Logger) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &loggingRoundTripper{base: http.DefaultTransport, logger: logging.OrNop(logger)},
	}
}

type loggingRoundTripper struct {
	base   http.RoundTripper
	logger logging.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Warn("%s %s failed after %s: %v", req.Method, req.URL.Path, time.Since(start).Round(time.Millisecond), err)
		return nil, err
	}
	t.logger.Debug("%s %s -> %d (%s)", req.Method, req.URL.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond))
	return resp, nil
}

type bearerRoundTripper struct {
	base   http.RoundTripper
	tokens TokenSource
}

// WrapWithBearer attaches Authorization: Bearer <token> to every outgoing
// request for which tokens currently holds a credential.
func WrapWithBearer(base http.RoundTripper, tokens TokenSource) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &bearerRoundTripper{base: base, tokens: tokens}
}

func (t *bearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if token := t.tokens.Token(); token != "" && req.Header.Get("Authorization") == "" {
		// Clone before mutating: RoundTrippers must not modify the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return t.base.RoundTrip(req)
}

// AuthGate fires a callback on the first 401 observed while armed. Concurrent
// failures collapse into a single invocation; a successful authentication
// re-arms the gate.
type AuthGate struct {
	armed    atomic.Bool
	onFailed func()
}

// NewAuthGate builds a disarmed gate. onFailed runs at most once per armed
// period, on the goroutine that observed the 401.
func NewAuthGate(onFailed func()) *AuthGate {
	return &AuthGate{onFailed: onFailed}
}

// Arm enables the gate. Called on every transition to an authenticated session.
func (g *AuthGate) Arm() {
	g.armed.Store(true)
}

// Trip fires the callback when the gate is armed. Safe for concurrent use;
// exactly one caller wins.
func (g *AuthGate) Trip() {
	if g.armed.CompareAndSwap(true, false) && g.onFailed != nil {
		g.onFailed()
	}
}

type authGateRoundTripper struct {
	base http.RoundTripper
	gate *AuthGate
}

// WrapWithAuthGate trips gate whenever a response comes back 401. The
// response is returned to the caller unchanged: rejection of the individual
// call still propagates.
func WrapWithAuthGate(base http.RoundTripper, gate *AuthGate) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authGateRoundTripper{base: base, gate: gate}
}

func (t *authGateRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		t.gate.Trip()
	}
	return resp, nil
}

package httpclient

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBearerTransportAttachesToken(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer server.Close()

	client := New(time.Second, nil)
	client.Transport = WrapWithBearer(client.Transport, TokenFunc(func() string { return "tok-123" }))

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, "Bearer tok-123", got)
}

func TestBearerTransportSkipsEmptyToken(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer server.Close()

	client := New(time.Second, nil)
	client.Transport = WrapWithBearer(client.Transport, TokenFunc(func() string { return "" }))

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Empty(t, got)
}

func TestAuthGateFiresOncePerArmedPeriod(t *testing.T) {
	var fired atomic.Int32
	gate := NewAuthGate(func() { fired.Add(1) })
	gate.Arm()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(time.Second, nil)
	client.Transport = WrapWithAuthGate(client.Transport, gate)

	// Two concurrent 401s must collapse into one logout.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Get(server.URL)
			require.NoError(t, err)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			_ = resp.Body.Close()
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), fired.Load())

	// Disarmed now: another 401 stays silent until re-armed.
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, int32(1), fired.Load())

	gate.Arm()
	resp, err = client.Get(server.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, int32(2), fired.Load())
}

func TestAuthGateIgnoresOtherStatuses(t *testing.T) {
	var fired atomic.Int32
	gate := NewAuthGate(func() { fired.Add(1) })
	gate.Arm()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(time.Second, nil)
	client.Transport = WrapWithAuthGate(client.Transport, gate)

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Zero(t, fired.Load())
}

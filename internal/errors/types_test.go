package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassification(t *testing.T) {
	auth := &AuthError{}
	server := &ServerError{Status: 500, Message: "boom"}
	network := &NetworkError{Err: fmt.Errorf("dial tcp: connection refused")}
	validation := NewValidation("title", "cannot be empty")

	require.True(t, IsAuth(auth))
	require.False(t, IsAuth(server))

	require.True(t, IsNetwork(network))
	require.False(t, IsNetwork(server))

	require.True(t, IsValidation(validation))
	require.False(t, IsValidation(auth))
}

func TestClassificationSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create task: %w", &AuthError{Err: fmt.Errorf("401")})
	require.True(t, IsAuth(err))
	require.Equal(t, http.StatusUnauthorized, StatusCode(err))
}

func TestStatusCode(t *testing.T) {
	require.Equal(t, 422, StatusCode(&ServerError{Status: 422}))
	require.Equal(t, 0, StatusCode(fmt.Errorf("plain")))
	require.Equal(t, 0, StatusCode(nil))
}

func TestHumanize(t *testing.T) {
	require.Equal(t, "", Humanize(nil, "fallback"))
	require.Equal(t, "title: cannot be empty", Humanize(NewValidation("title", "cannot be empty"), ""))
	require.Equal(t, "Invalid email or password", Humanize(&ServerError{Status: 401, Message: "Invalid email or password"}, ""))
	require.Equal(t, "could not reach the server", Humanize(&NetworkError{Err: fmt.Errorf("dial tcp")}, ""))
	require.Equal(t, "session expired, please sign in again", Humanize(&AuthError{}, ""))
}

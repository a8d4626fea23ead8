package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)

	_, err := BearerToken(r)
	require.ErrorIs(t, err, ErrMissingAuthorization)

	r.Header.Set("Authorization", "Basic abc")

	_, err = BearerToken(r)
	require.ErrorIs(t, err, ErrInvalidAuthorization)

	r.Header.Set("Authorization", "bearer  secret ")

	token, err := BearerToken(r)
	require.NoError(t, err)
	require.Equal(t, "secret", token)
}

func TestWithUser(t *testing.T) {
	ctx := WithUser(context.Background(), "jane", "")

	require.Equal(t, "jane", User(ctx))
	require.Empty(t, Email(ctx))
}

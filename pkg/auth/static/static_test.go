package static

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/adrianliechti/forge/pkg/auth"

	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	p, err := New(map[string]string{"secret": "editor", "other": ""})
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)

	_, err = p.Authenticate(context.Background(), r)
	require.ErrorIs(t, err, auth.ErrMissingAuthorization)

	r.Header.Set("Authorization", "Bearer wrong")

	_, err = p.Authenticate(context.Background(), r)
	require.ErrorIs(t, err, ErrInvalidToken)

	r.Header.Set("Authorization", "Bearer secret")

	ctx, err := p.Authenticate(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, "editor", auth.User(ctx))

	r.Header.Set("Authorization", "Bearer other")

	ctx, err = p.Authenticate(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, "static", auth.User(ctx))
}

func TestAuthenticateOpen(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)

	_, err = p.Authenticate(context.Background(), httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
}

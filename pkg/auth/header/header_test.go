package header

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/adrianliechti/forge/pkg/auth"

	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	p, err := New(WithUserHeader("X-User"))
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)

	_, err = p.Authenticate(context.Background(), r)
	require.ErrorIs(t, err, ErrMissingIdentity)

	r.Header.Set("X-User", "jane@example.com")

	ctx, err := p.Authenticate(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", auth.User(ctx))
	require.Equal(t, "jane@example.com", auth.Email(ctx))

	r.Header.Set("X-User", "jane")

	ctx, err = p.Authenticate(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, "jane", auth.User(ctx))
	require.Empty(t, auth.Email(ctx))
}

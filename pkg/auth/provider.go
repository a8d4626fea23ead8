package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserContextKey  contextKey = "auth.user"
	EmailContextKey contextKey = "auth.email"
)

var (
	ErrMissingAuthorization = errors.New("missing authorization header")
	ErrInvalidAuthorization = errors.New("invalid authorization header")
)

// Provider authenticates an incoming request and returns a context carrying
// the caller's identity.
type Provider interface {
	Authenticate(ctx context.Context, r *http.Request) (context.Context, error)
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")

	if header == "" {
		return "", ErrMissingAuthorization
	}

	scheme, token, ok := strings.Cut(header, " ")

	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidAuthorization
	}

	token = strings.TrimSpace(token)

	if token == "" {
		return "", ErrInvalidAuthorization
	}

	return token, nil
}

func WithUser(ctx context.Context, user, email string) context.Context {
	if user != "" {
		ctx = context.WithValue(ctx, UserContextKey, user)
	}

	if email != "" {
		ctx = context.WithValue(ctx, EmailContextKey, email)
	}

	return ctx
}

func User(ctx context.Context) string {
	user, _ := ctx.Value(UserContextKey).(string)
	return user
}

func Email(ctx context.Context) string {
	email, _ := ctx.Value(EmailContextKey).(string)
	return email
}

package static

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/adrianliechti/forge/pkg/auth"
)

var ErrInvalidToken = errors.New("invalid token")

// Provider accepts requests carrying one of a fixed set of bearer tokens. A
// provider without tokens accepts every request.
type Provider struct {
	tokens map[string]string
}

// New returns a provider for the given tokens, keyed by token with the user
// name the token authenticates as.
func New(tokens map[string]string) (*Provider, error) {
	p := &Provider{
		tokens: make(map[string]string, len(tokens)),
	}

	for token, user := range tokens {
		if token == "" {
			continue
		}

		if user == "" {
			user = "static"
		}

		p.tokens[token] = user
	}

	return p, nil
}

func (p *Provider) Authenticate(ctx context.Context, r *http.Request) (context.Context, error) {
	if len(p.tokens) == 0 {
		return ctx, nil
	}

	token, err := auth.BearerToken(r)

	if err != nil {
		return ctx, err
	}

	for candidate, user := range p.tokens {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			return auth.WithUser(ctx, user, ""), nil
		}
	}

	return ctx, ErrInvalidToken
}

package oidc

import (
	"context"
	"net/http"

	"github.com/adrianliechti/forge/pkg/auth"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Provider verifies bearer tokens as ID tokens of an OpenID Connect issuer.
type Provider struct {
	verifier *oidc.IDTokenVerifier

	userClaim string
}

type Option func(*Provider)

// WithUserClaim selects the claim used as user name. Defaults to "sub".
func WithUserClaim(claim string) Option {
	return func(p *Provider) {
		p.userClaim = claim
	}
}

func New(ctx context.Context, issuer, audience string, opts ...Option) (*Provider, error) {
	provider, err := oidc.NewProvider(ctx, issuer)

	if err != nil {
		return nil, err
	}

	p := &Provider{
		verifier: provider.Verifier(&oidc.Config{
			ClientID: audience,

			SkipClientIDCheck: audience == "",
		}),

		userClaim: "sub",
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

func (p *Provider) Authenticate(ctx context.Context, r *http.Request) (context.Context, error) {
	token, err := auth.BearerToken(r)

	if err != nil {
		return ctx, err
	}

	idtoken, err := p.verifier.Verify(ctx, token)

	if err != nil {
		return ctx, err
	}

	var claims map[string]any

	if err := idtoken.Claims(&claims); err != nil {
		return ctx, err
	}

	user, _ := claims[p.userClaim].(string)
	email, _ := claims["email"].(string)

	if user == "" {
		user = idtoken.Subject
	}

	return auth.WithUser(ctx, user, email), nil
}

package federation

import (
	"context"
	"errors"
	"fmt"

	"github.com/calum/gatehouse/internal/auth"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const googleIssuer = "https://accounts.google.com"

// GoogleClient verifies Google sign-ins through OIDC. The ID token is
// checked against Google's published keys, so the identity it yields
// is trusted without a follow-up userinfo call.
type GoogleClient struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

func NewGoogleClient(ctx context.Context, clientID, clientSecret, redirectURL string) (*GoogleClient, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("initializing google oidc provider: %w", err)
	}

	return &GoogleClient{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (c *GoogleClient) Provider() auth.Provider {
	return auth.ProviderGoogle
}

func (c *GoogleClient) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (c *GoogleClient) Exchange(ctx context.Context, code string) (*auth.Identity, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging google code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("google token response missing id_token")
	}

	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verifying google id token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decoding google claims: %w", err)
	}
	if !claims.EmailVerified {
		return nil, errors.New("google account email is not verified")
	}

	return &auth.Identity{
		Provider:   auth.ProviderGoogle,
		ExternalID: idToken.Subject,
		Email:      claims.Email,
		Name:       claims.Name,
	}, nil
}

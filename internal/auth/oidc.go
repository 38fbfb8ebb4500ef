package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCOptions configures operator login through an OpenID Connect issuer.
type OIDCOptions struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// AllowedDomains restricts login to these email domains; empty allows all.
	AllowedDomains []string
}

// OIDCProvider performs the authorization code flow for dashboard logins.
type OIDCProvider struct {
	oauth2         *oauth2.Config
	verifier       *oidc.IDTokenVerifier
	allowedDomains []string
}

// Identity is the operator a completed login resolved to.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// NewOIDCProvider discovers the issuer and builds a provider.
func NewOIDCProvider(ctx context.Context, opts OIDCOptions) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, opts.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discovering OIDC issuer: %w", err)
	}

	return &OIDCProvider{
		oauth2: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       opts.Scopes,
		},
		verifier:       provider.Verifier(&oidc.Config{ClientID: opts.ClientID}),
		allowedDomains: opts.AllowedDomains,
	}, nil
}

// AuthCodeURL returns the issuer URL that starts the given login attempt.
func (p *OIDCProvider) AuthCodeURL(attempt *LoginAttempt) string {
	return p.oauth2.AuthCodeURL(attempt.State, oidc.Nonce(attempt.Nonce))
}

// Exchange redeems an authorization code and returns the verified identity.
// Identities outside the allowed domains are rejected with an error
// wrapping domain.ErrUnauthorized.
func (p *OIDCProvider) Exchange(ctx context.Context, code, nonce string) (*Identity, error) {
	token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("no id_token in token response")
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verifying ID token: %w", err)
	}
	if !ConstantTimeCompare(idToken.Nonce, nonce) {
		return nil, errors.New("nonce mismatch")
	}

	var id Identity
	if err := idToken.Claims(&id); err != nil {
		return nil, fmt.Errorf("parsing claims: %w", err)
	}
	if err := p.allow(id.Email); err != nil {
		return nil, err
	}
	return &id, nil
}

func (p *OIDCProvider) allow(email string) error {
	if email == "" {
		return fmt.Errorf("email claim is required: %w", domain.ErrUnauthorized)
	}
	if len(p.allowedDomains) == 0 {
		return nil
	}

	_, emailDomain, ok := strings.Cut(email, "@")
	if !ok || emailDomain == "" {
		return fmt.Errorf("invalid email %q: %w", email, domain.ErrUnauthorized)
	}
	for _, d := range p.allowedDomains {
		if strings.EqualFold(d, emailDomain) {
			return nil
		}
	}
	return fmt.Errorf("email domain %s is not allowed: %w", strings.ToLower(emailDomain), domain.ErrUnauthorized)
}

// randomToken returns n random bytes, URL-safe encoded.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Package oauth starts redirect-based sign-in with an external identity
// service. Tokens and sessions stay with that service; this package only
// builds the redirect and, for the CLI, captures the callback.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

var Providers = []Provider{ProviderGoogle, ProviderGitHub}

var ErrUnknownProvider = errors.New("unknown oauth provider")

func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

const DefaultLoginPath = "/login"

// SignIn is a started sign-in: where to send the user, plus whatever the
// auth service needs back to finish it.
type SignIn struct {
	Provider     Provider
	URL          string
	RedirectTo   string
	CodeVerifier string
}

// AuthService is the external identity service.
type AuthService interface {
	SignInWithOAuth(ctx context.Context, provider Provider, redirectTo string) (*SignIn, error)
}

// Browser sends the user to a URL.
type Browser interface {
	Open(url string) error
}

type Initiator struct {
	auth      AuthService
	browser   Browser
	origin    string
	loginPath string
	logger    *zap.Logger
}

func NewInitiator(auth AuthService, browser Browser, origin, loginPath string, logger *zap.Logger) *Initiator {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Initiator{
		auth:      auth,
		browser:   browser,
		origin:    strings.TrimRight(origin, "/"),
		loginPath: loginPath,
		logger:    logger,
	}
}

func (i *Initiator) LoginPath() string { return i.loginPath }

// RedirectTo is where the provider sends the user back to.
func (i *Initiator) RedirectTo() string {
	return i.origin + i.loginPath
}

// LoginWithProvider asks the auth service for a redirect sign-in and opens
// it. Errors from the service are returned as-is.
func (i *Initiator) LoginWithProvider(ctx context.Context, provider Provider) (*SignIn, error) {
	if _, err := ParseProvider(string(provider)); err != nil {
		return nil, err
	}

	signIn, err := i.auth.SignInWithOAuth(ctx, provider, i.RedirectTo())
	if err != nil {
		return nil, err
	}

	i.logger.Info("redirecting to provider",
		zap.String("provider", string(provider)),
		zap.String("redirect_to", signIn.RedirectTo))
	if err := i.browser.Open(signIn.URL); err != nil {
		return signIn, fmt.Errorf("open browser: %w", err)
	}
	return signIn, nil
}

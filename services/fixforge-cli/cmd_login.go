package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fixforge-client/pkg/middleware"
	"fixforge-client/pkg/oauth"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type loginFlags struct {
	wait      bool
	noBrowser bool
	showToken bool
	timeout   time.Duration
}

func newLoginCmd(a *app) *cobra.Command {
	var f loginFlags

	names := make([]string, 0, len(oauth.Providers))
	for _, p := range oauth.Providers {
		names = append(names, string(p))
	}

	cmd := &cobra.Command{
		Use:       "login <" + strings.Join(names, "|") + ">",
		Short:     "Sign in with an OAuth provider",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, a, f, args[0])
		},
	}
	fl := cmd.Flags()
	fl.BoolVar(&f.wait, "wait", false, "Listen on the app origin for the redirect and finish sign-in here")
	fl.BoolVar(&f.noBrowser, "no-browser", false, "Print the sign-in URL instead of opening a browser")
	fl.BoolVar(&f.showToken, "show-token", false, "Print the access token after --wait completes")
	fl.DurationVar(&f.timeout, "timeout", 5*time.Minute, "How long --wait waits for the redirect")
	return cmd
}

func runLogin(cmd *cobra.Command, a *app, f loginFlags, providerArg string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	provider, err := oauth.ParseProvider(providerArg)
	if err != nil {
		return err
	}
	if a.cfg.Auth.URL == "" {
		return errors.New("FIXFORGE_AUTH_URL is not set")
	}

	// The listener has to be up before the browser can come back to it.
	var ln net.Listener
	if f.wait {
		ln, err = listenOnOrigin(a.cfg.AppOrigin)
		if err != nil {
			return err
		}
		defer ln.Close()
	}

	gotrue := oauth.NewGoTrue(a.cfg.Auth.URL, a.cfg.Auth.AnonKey, &http.Client{
		Timeout:   a.cfg.HTTPTimeout,
		Transport: &middleware.TraceTransport{},
	})

	var browser oauth.Browser = oauth.SystemBrowser{}
	if f.noBrowser {
		browser = oauth.PrintBrowser{Out: out}
	}
	initiator := oauth.NewInitiator(gotrue, browser, a.cfg.AppOrigin, a.cfg.Auth.LoginPath, a.log)

	signIn, err := initiator.LoginWithProvider(ctx, provider)
	if err != nil {
		if signIn == nil {
			return err
		}
		a.log.Warn("could not open browser", zap.Error(err))
		if err := (oauth.PrintBrowser{Out: out}).Open(signIn.URL); err != nil {
			return err
		}
	}

	if !f.wait {
		return nil
	}

	fmt.Fprintln(out, "Waiting for sign-in to complete...")
	waitCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	code, err := oauth.WaitForCallback(waitCtx, ln, initiator.LoginPath(), a.log)
	if err != nil {
		return err
	}
	session, err := gotrue.ExchangeCode(ctx, code, signIn.CodeVerifier)
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(out, "Signed in as %s\n", displayName(session.User))
	fmt.Fprintf(out, "  user id: %s\n", session.User.ID)
	if claims, err := oauth.ParseAccessToken(session.AccessToken, a.cfg.Auth.JWTSecret); err == nil && claims.ExpiresAt != nil {
		fmt.Fprintf(out, "  expires: %s\n", claims.ExpiresAt.Time.Format(time.RFC3339))
	}
	if f.showToken {
		fmt.Fprintf(out, "  export FIXFORGE_ACCESS_TOKEN=%s\n", session.AccessToken)
	}
	return nil
}

// listenOnOrigin binds the host:port of the app origin so the provider's
// redirect lands on this process.
func listenOnOrigin(origin string) (net.Listener, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse app origin: %w", err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("--wait needs an http app origin, got %q", origin)
	}
	port := u.Port()
	if port == "" {
		port = "80"
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(u.Hostname(), port))
	if err != nil {
		return nil, fmt.Errorf("listen for callback: %w", err)
	}
	return ln, nil
}

func displayName(u oauth.User) string {
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}

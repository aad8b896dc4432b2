package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"outreach_backend/platform/config"
	"outreach_backend/platform/google"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

const callbackPath = "/oauth/callback"

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize the Google mailbox and store the token",
	Long: `Authorize Gmail and Google Docs access for the operator account.

The command prints a consent URL and waits for Google to redirect back to
the local callback. The token is written to GOOGLE_TOKEN_PATH, or to the
XDG data directory when unset.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if !cfg.IsGoogleEnabled() {
			return errors.New("set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET first")
		}
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		oauthCfg := google.NewOAuthConfig(cfg)
		token, err := authorize(ctx, oauthCfg, func(authURL string) {
			printStatus("Open", "%s", authURL)
		})
		if err != nil {
			return err
		}

		path := google.TokenPath(cfg)
		if err := google.SaveToken(path, token); err != nil {
			return err
		}
		printSuccess("token saved to %s", path)
		return nil
	},
}

func init() {
	authCmd.Flags().Duration("timeout", 5*time.Minute, "how long to wait for the consent redirect")
}

// authorize runs the authorization-code flow against a local callback
// listener on the redirect URL's host.
func authorize(ctx context.Context, cfg *oauth2.Config, show func(authURL string)) (*oauth2.Token, error) {
	redirect, err := url.Parse(cfg.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("parse redirect url: %w", err)
	}
	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("listen for oauth callback: %w", err)
	}

	state := uuid.NewString()
	codes := make(chan string, 1)
	errs := make(chan error, 1)
	fail := func(err error) {
		select {
		case errs <- err:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			fail(errors.New("oauth callback state mismatch"))
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
			fail(fmt.Errorf("authorization denied: %s", q.Get("error")))
		default:
			_, _ = fmt.Fprintln(w, "Authorization complete. You can close this window.")
			select {
			case codes <- q.Get("code"):
			default:
			}
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail(err)
		}
	}()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	show(cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	select {
	case code := <-codes:
		token, err := cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchange authorization code: %w", err)
		}
		return token, nil
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for oauth callback: %w", ctx.Err())
	}
}

package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Config holds the Google OAuth client configuration for the web
// authorization-code flow.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Validate checks that all required OAuth settings are present.
func (c Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("google client ID is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("google client secret is required")
	}
	if c.RedirectURL == "" {
		return fmt.Errorf("google redirect URL is required")
	}
	return nil
}

// Scopes returns the OAuth scopes the assistant needs: identity for the
// greeting and reply signature, and read/send/modify access to the mailbox.
func Scopes() []string {
	return []string{
		"openid",
		gmail.GmailReadonlyScope,
		gmail.GmailSendScope,
		gmail.GmailModifyScope,
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
	}
}

// OAuth wraps the oauth2 configuration for the Google consent flow.
type OAuth struct {
	conf *oauth2.Config
}

// New creates an OAuth helper from the given configuration.
func New(cfg Config) (*OAuth, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &OAuth{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes(),
		},
	}, nil
}

// AuthURL returns the consent screen URL for the given CSRF state.
// Offline access is requested so the session receives a refresh token,
// and consent is forced so the refresh token is present on every login.
func (o *OAuth) AuthURL(state string) string {
	return o.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for a token bundle.
func (o *OAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := o.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return tok, nil
}

// TokenSource returns a refreshing token source for the stored token.
// The oauth2 library refreshes the access token transparently using the
// refresh token when it expires.
func (o *OAuth) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return o.conf.TokenSource(ctx, tok)
}

// UserInfo identifies the authenticated user.
type UserInfo struct {
	Email string
	Name  string
}

// Userinfo fetches the authenticated user's email and display name.
func (o *OAuth) Userinfo(ctx context.Context, tok *oauth2.Token) (*UserInfo, error) {
	svc, err := oauth2api.NewService(ctx, option.WithTokenSource(o.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}

	return &UserInfo{
		Email: info.Email,
		Name:  info.Name,
	}, nil
}

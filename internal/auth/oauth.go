package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/sakif/toolhub/internal/apperror"
)

// DefaultIssuer is Google's OIDC issuer.
const DefaultIssuer = "https://accounts.google.com"

// Profile is the part of the userinfo response the app stores.
type Profile struct {
	Email   string
	Name    string
	Picture string
}

// OIDCProvider runs the authorization-code flow against any OpenID Connect
// issuer. Endpoints come from the issuer's discovery document, which is
// fetched on first use rather than at startup, so the server still boots
// when the provider is unreachable.
type OIDCProvider struct {
	issuer       string
	clientID     string
	clientSecret string
	client       *http.Client // nil means http.DefaultClient

	mu       sync.Mutex
	provider *oidc.Provider
}

func NewOIDCProvider(issuer, clientID, clientSecret string) *OIDCProvider {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &OIDCProvider{
		issuer:       strings.TrimSuffix(issuer, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// WithHTTPClient sets the client used for discovery, token and userinfo calls.
func (p *OIDCProvider) WithHTTPClient(c *http.Client) *OIDCProvider {
	p.client = c
	return p
}

// Configured reports whether client credentials are present.
func (p *OIDCProvider) Configured() bool {
	return p.clientID != "" && p.clientSecret != ""
}

// AuthURL builds the provider URL the browser is redirected to.
// redirectURL must be the same value later passed to Exchange.
func (p *OIDCProvider) AuthURL(ctx context.Context, state, redirectURL string) (string, error) {
	cfg, err := p.oauthConfig(ctx, redirectURL)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state), nil
}

// Exchange trades the authorization code for a token and reads the user's
// profile from the userinfo endpoint.
//
// A rejected code or a profile without an email is an apperror.AuthFailed
// carrying the provider's explanation in Detail.
func (p *OIDCProvider) Exchange(ctx context.Context, code, redirectURL string) (*Profile, error) {
	cfg, err := p.oauthConfig(ctx, redirectURL)
	if err != nil {
		return nil, err
	}
	ctx = p.clientContext(ctx)

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.AuthFailed("Authentication failed", exchangeDetail(err))
	}

	info, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, apperror.AuthFailed("Authentication failed", err.Error())
	}

	var claims struct {
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := info.Claims(&claims); err != nil {
		return nil, apperror.AuthFailed("Authentication failed", err.Error())
	}

	if info.Email == "" {
		return nil, apperror.AuthFailed("Authentication failed", "identity provider returned no email")
	}

	return &Profile{
		Email:   info.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}

func (p *OIDCProvider) oauthConfig(ctx context.Context, redirectURL string) (*oauth2.Config, error) {
	if !p.Configured() {
		return nil, apperror.Config("GOOGLE_CLIENT_ID", "OAuth client credentials are not configured")
	}

	provider, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}

	return &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}, nil
}

// discover fetches the discovery document once. A failed attempt is not
// cached, so the next login retries.
func (p *OIDCProvider) discover(ctx context.Context) (*oidc.Provider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.provider != nil {
		return p.provider, nil
	}

	provider, err := oidc.NewProvider(p.clientContext(ctx), p.issuer)
	if err != nil {
		return nil, apperror.Upstream("identity provider", fmt.Errorf("discovery for %s: %w", p.issuer, err))
	}
	p.provider = provider

	return provider, nil
}

func (p *OIDCProvider) clientContext(ctx context.Context) context.Context {
	if p.client == nil {
		return ctx
	}
	return oidc.ClientContext(ctx, p.client)
}

// exchangeDetail prefers the provider's own error code and description.
func exchangeDetail(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode != "" {
		if re.ErrorDescription != "" {
			return re.ErrorCode + ": " + re.ErrorDescription
		}
		return re.ErrorCode
	}
	return err.Error()
}

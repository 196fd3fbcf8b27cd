package auth_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/toolhub/internal/apperror"
	"github.com/sakif/toolhub/internal/auth"
	"github.com/sakif/toolhub/internal/auth/oidctest"
)

const redirect = "http://localhost:8000/auth/callback"

func newProvider(t *testing.T, user oidctest.UserInfo) (*auth.OIDCProvider, *oidctest.Provider) {
	t.Helper()
	idp := oidctest.New(t, user)
	p := auth.NewOIDCProvider(idp.Issuer(), oidctest.ClientID, oidctest.ClientSecret).
		WithHTTPClient(idp.Client())
	return p, idp
}

func TestAuthURL(t *testing.T) {
	p, idp := newProvider(t, oidctest.UserInfo{Subject: "1", Email: "ada@example.com"})

	raw, err := p.AuthURL(context.Background(), "state-123", redirect)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, idp.URL+"/authorize", u.Scheme+"://"+u.Host+u.Path)

	q := u.Query()
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, oidctest.ClientID, q.Get("client_id"))
	assert.Equal(t, redirect, q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
}

func TestAuthURL_NotConfigured(t *testing.T) {
	p := auth.NewOIDCProvider("http://127.0.0.1:1", "", "")

	_, err := p.AuthURL(context.Background(), "s", redirect)
	assert.True(t, errors.Is(err, apperror.ErrConfig), "error = %v, want ErrConfig", err)
}

func TestAuthURL_DiscoveryFailure(t *testing.T) {
	p, idp := newProvider(t, oidctest.UserInfo{})
	idp.Close()

	_, err := p.AuthURL(context.Background(), "s", redirect)
	assert.True(t, errors.Is(err, apperror.ErrUpstream), "error = %v, want ErrUpstream", err)
}

func TestExchange(t *testing.T) {
	p, idp := newProvider(t, oidctest.UserInfo{
		Subject: "1",
		Email:   "ada@example.com",
		Name:    "Ada",
		Picture: "https://example.com/ada.png",
	})

	profile, err := p.Exchange(context.Background(), oidctest.GoodCode, redirect)
	require.NoError(t, err)
	assert.Equal(t, &auth.Profile{
		Email:   "ada@example.com",
		Name:    "Ada",
		Picture: "https://example.com/ada.png",
	}, profile)
	assert.Equal(t, redirect, idp.LastRedirectURI())
}

func TestExchange_BadCode(t *testing.T) {
	p, _ := newProvider(t, oidctest.UserInfo{Subject: "1", Email: "ada@example.com"})

	_, err := p.Exchange(context.Background(), "stolen-code", redirect)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.ErrorIs(t, err, apperror.ErrAuth)
	assert.Contains(t, appErr.Detail, "invalid_grant")
}

func TestExchange_NoEmail(t *testing.T) {
	p, _ := newProvider(t, oidctest.UserInfo{Subject: "1", Name: "Anonymous"})

	_, err := p.Exchange(context.Background(), oidctest.GoodCode, redirect)
	assert.ErrorIs(t, err, apperror.ErrAuth)
}

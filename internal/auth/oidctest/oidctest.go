// Package oidctest runs a minimal OpenID Connect provider for tests:
// discovery, an authorization endpoint, a token endpoint and userinfo.
package oidctest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

const (
	ClientID     = "test-client"
	ClientSecret = "test-client-secret"

	// GoodCode is the only authorization code the token endpoint accepts.
	GoodCode = "good-code"

	accessToken = "test-access-token"
)

// UserInfo is what the userinfo endpoint returns.
type UserInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

type Provider struct {
	*httptest.Server

	mu   sync.Mutex
	user UserInfo
	// redirect_uri seen by the token endpoint
	lastRedirectURI string
}

// New starts a provider that will report user from userinfo.
// The server is closed when the test ends.
func New(t testing.TB, user UserInfo) *Provider {
	p := &Provider{user: user}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", p.discovery)
	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/token", p.token)
	mux.HandleFunc("/userinfo", p.userinfo)

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)
	return p
}

// Issuer is the issuer URL to configure the client with.
func (p *Provider) Issuer() string {
	return p.URL
}

// SetUser changes the profile returned by subsequent userinfo calls.
func (p *Provider) SetUser(u UserInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.user = u
}

func (p *Provider) LastRedirectURI() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRedirectURI
}

func (p *Provider) discovery(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                p.URL,
		"authorization_endpoint":                p.URL + "/authorize",
		"token_endpoint":                        p.URL + "/token",
		"userinfo_endpoint":                     p.URL + "/userinfo",
		"jwks_uri":                              p.URL + "/jwks",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (p *Provider) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	if id, secret, ok := r.BasicAuth(); ok {
		if u, err := url.QueryUnescape(id); err == nil {
			id = u
		}
		if s, err := url.QueryUnescape(secret); err == nil {
			secret = s
		}
		if id != ClientID || secret != ClientSecret {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
			return
		}
	} else if r.PostForm.Get("client_id") != ClientID || r.PostForm.Get("client_secret") != ClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}

	if r.PostForm.Get("code") != GoodCode {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "invalid_grant",
			"error_description": "Malformed auth code.",
		})
		return
	}

	p.mu.Lock()
	p.lastRedirectURI = r.PostForm.Get("redirect_uri")
	p.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (p *Provider) userinfo(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+accessToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	p.mu.Lock()
	user := p.user
	p.mu.Unlock()

	writeJSON(w, http.StatusOK, user)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

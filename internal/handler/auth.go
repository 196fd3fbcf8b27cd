package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/sakif/toolhub/internal/apperror"
	"github.com/sakif/toolhub/internal/auth"
	"github.com/sakif/toolhub/internal/service"
)

const stateCookie = "oauth_state"

// IdentityProvider is the OAuth side of the login flow.
// *auth.OIDCProvider implements it.
type IdentityProvider interface {
	AuthURL(ctx context.Context, state, redirectURL string) (string, error)
	Exchange(ctx context.Context, code, redirectURL string) (*auth.Profile, error)
}

// AuthConfig holds the URLs and cookie flags of the login flow.
type AuthConfig struct {
	FrontendURL   string // where the browser lands after a successful login
	RedirectURL   string // OAuth callback; empty derives it from the request
	SecureCookies bool
}

// AuthHandler manages the OIDC login flow and the session cookie.
//
//   - HandleLogin    → redirect the browser to the provider
//   - HandleCallback → verify state, exchange the code, start the session
//   - HandleProfile  → the logged-in user's profile
//   - HandleLogout   → drop the session cookie
type AuthHandler struct {
	provider IdentityProvider
	auth     *service.AuthService
	tokens   *auth.TokenService
	cfg      AuthConfig
	logger   *zap.Logger
}

func NewAuthHandler(
	provider IdentityProvider,
	authSvc *service.AuthService,
	tokens *auth.TokenService,
	cfg AuthConfig,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		auth:     authSvc,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
	}
}

// HandleLogin godoc
//
// A random state goes into a short-lived HttpOnly cookie and into the
// provider URL. The callback only proceeds when both come back equal, which
// proves this server started the flow.
//
//	@Summary	Start the OAuth login
//	@Tags		auth
//	@Success	307
//	@Failure	500	{object}	ErrorResponse	"OAuth client not configured"
//	@Failure	502	{object}	ErrorResponse	"provider discovery failed"
//	@Router		/auth/login [get]
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	target, err := h.provider.AuthURL(r.Context(), state, h.redirectURL(r))
	if err != nil {
		h.logger.Error("auth login: cannot build provider URL", zap.Error(err))
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// HandleCallback godoc
//
//	@Summary	Finish the OAuth login and start a session
//	@Tags		auth
//	@Param		code	query	string	false	"authorization code"
//	@Param		state	query	string	true	"state echoed by the provider"
//	@Success	303
//	@Failure	400	{object}	ErrorResponse	"state mismatch or provider error"
//	@Router		/auth/callback [get]
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || q.Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeError(w, apperror.AuthFailed("Invalid OAuth state", "state mismatch"))
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	if errParam := q.Get("error"); errParam != "" {
		detail := errParam
		if desc := q.Get("error_description"); desc != "" {
			detail += ": " + desc
		}
		h.logger.Info("auth callback: provider returned an error", zap.String("error", detail))
		writeError(w, apperror.AuthFailed("Authentication failed", detail))
		return
	}

	code := q.Get("code")
	if code == "" {
		writeError(w, apperror.AuthFailed("Authentication failed", "missing authorization code"))
		return
	}

	profile, err := h.provider.Exchange(r.Context(), code, h.redirectURL(r))
	if err != nil {
		h.logger.Warn("auth callback: exchange failed", zap.Error(err))
		writeError(w, err)
		return
	}

	result, err := h.auth.LoginOrRegister(r.Context(), profile)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.cfg.FrontendURL, http.StatusSeeOther)
}

// HandleProfile godoc
//
// Mounted behind auth.RequireAuth, which already answered 401 for
// anonymous requests.
//
//	@Summary	Current user's profile
//	@Tags		auth
//	@Produce	json
//	@Success	200	{object}	model.User
//	@Failure	401	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse	"session user no longer exists"
//	@Router		/auth/profile [get]
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Not authenticated"))
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleLogout godoc
//
// The JWT itself stays valid until it expires; without the cookie the
// browser simply stops sending it.
//
//	@Summary	End the session
//	@Tags		auth
//	@Produce	json
//	@Success	200	{object}	DetailResponse
//	@Router		/auth/logout [get]
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, DetailResponse{Detail: "Logged out"})
}

// redirectURL is the configured callback, or this server's own
// /auth/callback as seen by the browser.
func (h *AuthHandler) redirectURL(r *http.Request) string {
	if h.cfg.RedirectURL != "" {
		return h.cfg.RedirectURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	return scheme + "://" + r.Host + "/auth/callback"
}

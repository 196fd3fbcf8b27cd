package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

// SessionCookie holds the session JWT.
const SessionCookie = "session"

// contextKey is unexported so no other package can read or overwrite the
// values this package stores in a request context.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth rejects requests without a valid session cookie with 401 and
// stores the user id in the context for the rest.
//
// The body has the same shape the handlers use for every other error.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "unauthorized",
					"message": "Not authenticated",
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user's id, or (0, false) for
// an anonymous request.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}

func extractUserID(r *http.Request, tokens *TokenService) (int64, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return 0, err
	}

	return tokens.Validate(cookie.Value)
}

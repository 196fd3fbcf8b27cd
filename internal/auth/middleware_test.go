package auth

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func echoUserID(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := UserIDFromContext(r.Context()); ok {
			w.Header().Set("X-User", strconv.FormatInt(id, 10))
		}
		w.WriteHeader(http.StatusOK)
	})
}

func requestWithCookie(value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	if value != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: value})
	}
	return req
}

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate(7)
	expired, _ := ts.GenerateWithDuration(7, -1)

	tests := []struct {
		name       string
		cookie     string
		wantStatus int
		wantUser   string
	}{
		{"valid session", valid, http.StatusOK, "7"},
		{"no cookie", "", http.StatusUnauthorized, ""},
		{"expired session", expired, http.StatusUnauthorized, ""},
		{"garbage cookie", "nope", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RequireAuth(ts)(echoUserID(t)).ServeHTTP(rec, requestWithCookie(tt.cookie))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("X-User"); got != tt.wantUser {
				t.Errorf("user = %q, want %q", got, tt.wantUser)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q, want application/json", ct)
				}
			}
		})
	}
}

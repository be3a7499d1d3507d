package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/rizzosai/affiliate-service/internal/app"
)

func adminTestHandler(t *testing.T) *Handler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return NewHandler(nil, nil, app.NopRateLimiter{}, AdminConfig{
		Username:      "admin",
		PasswordHash:  string(hash),
		SessionSecret: "session-secret",
	}, "")
}

func loginRequest(username, password string) *http.Request {
	body := `{"username":"` + username + `","password":"` + password + `"}`
	return httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(body))
}

func TestAdminLogin(t *testing.T) {
	h := adminTestHandler(t)

	t.Run("issues a token for valid credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.handleAdminLogin(rec, loginRequest("admin", "hunter2"))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
			t.Fatalf("token missing in response %s", rec.Body.String())
		}
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.handleAdminLogin(rec, loginRequest("admin", "wrong"))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("rejects login when admin access is not configured", func(t *testing.T) {
		unconfigured := NewHandler(nil, nil, app.NopRateLimiter{}, AdminConfig{}, "")
		rec := httptest.NewRecorder()
		unconfigured.handleAdminLogin(rec, loginRequest("admin", "hunter2"))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})
}

func TestAdminAuthMiddleware(t *testing.T) {
	h := adminTestHandler(t)

	issueToken := func(t *testing.T) string {
		rec := httptest.NewRecorder()
		h.handleAdminLogin(rec, loginRequest("admin", "hunter2"))
		var resp struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode login response: %v", err)
		}
		return resp.Token
	}

	protected := h.AdminAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("admits a valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
		req.Header.Set("Authorization", "Bearer "+issueToken(t))
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("rejects a missing or malformed header", func(t *testing.T) {
		for _, header := range []string{"", "Bearer ", "Token abc"} {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("header %q: status = %d, want 401", header, rec.Code)
			}
		}
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		other := NewHandler(nil, nil, app.NopRateLimiter{}, AdminConfig{
			Username: "admin", PasswordHash: h.admin.PasswordHash, SessionSecret: "other-secret",
		}, "")
		rec := httptest.NewRecorder()
		other.handleAdminLogin(rec, loginRequest("admin", "hunter2"))
		var resp struct {
			Token string `json:"token"`
		}
		json.Unmarshal(rec.Body.Bytes(), &resp)

		req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
		req.Header.Set("Authorization", "Bearer "+resp.Token)
		verify := httptest.NewRecorder()
		protected.ServeHTTP(verify, req)
		if verify.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", verify.Code)
		}
	})
}

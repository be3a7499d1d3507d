/**
 * @description
 * Admin authentication and the admin dashboard endpoints. Login checks the
 * configured bcrypt hash and issues a short-lived HS256 session token; the
 * middleware guards the dashboard routes with it.
 */
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AdminConfig carries the admin credential material.
type AdminConfig struct {
	Username      string
	PasswordHash  string
	SessionSecret string
}

// adminSessionTTL bounds how long an admin login stays valid.
const adminSessionTTL = 12 * time.Hour

// handleAdminLogin checks the admin credentials and issues a session token.
func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if h.admin.Username == "" || h.admin.PasswordHash == "" {
		http.Error(w, "Admin access not configured", http.StatusForbidden)
		return
	}
	if req.Username != h.admin.Username ||
		bcrypt.CompareHashAndPassword([]byte(h.admin.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   req.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(adminSessionTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.admin.SessionSecret))
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"token": token})
}

// AdminAuthMiddleware guards the admin routes with the session token.
func (h *Handler) AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
			func(t *jwt.Token) (any, error) { return []byte(h.admin.SessionSecret), nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !parsed.Valid {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
		if !ok || claims.Subject != h.admin.Username {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleAdminStats returns the platform-wide aggregate counters.
func (h *Handler) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.AdminStats(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// handleAdminDashboard returns the stats plus the full leaderboard.
func (h *Handler) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.AdminStats(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	leaderboard, err := h.service.Leaderboard(r.Context(), 100)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"stats":       stats,
		"leaderboard": leaderboard,
	})
}

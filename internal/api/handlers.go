/**
 * @description
 * This file contains the HTTP handler functions for the affiliate-service.
 * Handlers parse incoming requests, call the business logic in the service
 * layer, and map the failure taxonomy onto HTTP statuses.
 */
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rizzosai/affiliate-service/internal/app"
	"github.com/rizzosai/affiliate-service/internal/domain"
)

// Handler holds the application services that handlers interact with.
type Handler struct {
	service    *app.Service
	reconciler *app.Reconciler
	limiter    app.RateLimiter
	admin      AdminConfig
	webhookKey string
}

// NewHandler creates a new Handler.
func NewHandler(service *app.Service, reconciler *app.Reconciler, limiter app.RateLimiter, admin AdminConfig, webhookSecret string) *Handler {
	return &Handler{
		service:    service,
		reconciler: reconciler,
		limiter:    limiter,
		admin:      admin,
		webhookKey: webhookSecret,
	}
}

// handleGetPackages returns the purchasable package catalog.
func (h *Handler) handleGetPackages(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{"packages": h.service.Packages()})
}

// handleGetPromotion returns the public promotion state.
func (h *Handler) handleGetPromotion(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.service.Promotion())
}

// handleGetLeaderboard returns the public earnings leaderboard.
func (h *Handler) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

// handleGetLiveSignups returns the recent-signup feed for the sales pages.
func (h *Handler) handleGetLiveSignups(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	feed, err := h.service.RecentSignups(r.Context(), limit)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, feed)
}

// handleCaptureEmail records a sales-page lead.
func (h *Handler) handleCaptureEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email  string `json:"email"`
		Source string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.service.CaptureEmail(r.Context(), req.Email, req.Source); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleCheckDomainAvailability reports whether a domain can be sold.
func (h *Handler) handleCheckDomainAvailability(w http.ResponseWriter, r *http.Request) {
	domainName := r.URL.Query().Get("domain")
	available, err := h.service.DomainAvailable(r.Context(), domainName)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"domain":    domain.NormalizeDomain(domainName),
		"available": available,
	})
}

// handleCreatePackageCheckout opens a checkout session for a package.
func (h *Handler) handleCreatePackageCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PackageID  string `json:"package_id"`
		ReferredBy string `json:"referred_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	redirect, err := h.service.CreatePackageCheckout(r.Context(), req.PackageID, req.ReferredBy)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, redirect)
}

// handleCreateDomainCheckout opens a checkout session for a domain rental.
func (h *Handler) handleCreateDomainCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain     string `json:"domain"`
		Email      string `json:"email"`
		FullName   string `json:"full_name"`
		ReferredBy string `json:"referred_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	redirect, err := h.service.CreateDomainCheckout(r.Context(), req.Domain, req.Email, req.FullName, req.ReferredBy)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, redirect)
}

// handleRegisterPackage completes a paid package purchase.
func (h *Handler) handleRegisterPackage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID  string `json:"session_id"`
		Username   string `json:"username"`
		Email      string `json:"email"`
		FullName   string `json:"full_name"`
		ReferredBy string `json:"referred_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	user, err := h.service.RegisterPackage(r.Context(), app.RegisterPackageRequest{
		SessionID:  req.SessionID,
		Username:   req.Username,
		Email:      req.Email,
		FullName:   req.FullName,
		ReferredBy: req.ReferredBy,
	})
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]any{"success": true, "user": user})
}

// handleProcessDomainPayment completes a paid domain rental purchase.
func (h *Handler) handleProcessDomainPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	user, rental, err := h.service.ProcessDomainPayment(r.Context(), req.SessionID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    user,
		"rental":  rental,
	})
}

// handleVerifyEmail consumes a verification link.
func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// handleCompleteOnboarding marks a user's onboarding as completed.
func (h *Handler) handleCompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.service.CompleteOnboarding(r.Context(), req.Username); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleGetUserStats returns the affiliate dashboard for a verified user.
func (h *Handler) handleGetUserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), chi.URLParam(r, "username"))
	if errors.Is(err, app.ErrNotVerified) {
		http.Error(w, "Email not verified", http.StatusForbidden)
		return
	}
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// handleAffiliateRedirect sends an affiliate link visitor to the package
// page with the referral attached. Unknown or unverified usernames fall
// through to the plain package page.
func (h *Handler) handleAffiliateRedirect(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, err := h.service.AffiliateByUsername(r.Context(), username)
	if err != nil {
		http.Redirect(w, r, "/packages", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/packages?ref="+user.Username, http.StatusFound)
}

// handleGetAffiliate resolves a verified affiliate for referral links.
func (h *Handler) handleGetAffiliate(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.AffiliateByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"username":  user.Username,
		"full_name": user.FullName,
	})
}

// CheckoutRateLimit gates the checkout endpoints per client IP.
func (h *Handler) CheckoutRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, err := h.limiter.Allow(r.Context(), clientIP(r))
		if err != nil {
			log.Printf("Rate limiter error: %v", err)
		}
		if !allowed {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// respondWithError maps the failure taxonomy onto HTTP statuses.
func respondWithError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		respondWithJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrPaymentNotCompleted),
		errors.Is(err, domain.ErrAmountMismatch),
		errors.Is(err, domain.ErrInvalidMetadata):
		respondWithJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrDuplicatePayment),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrDomainUnavailable):
		respondWithJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		respondWithJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
	case errors.Is(err, domain.ErrInvalidSignature):
		respondWithJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid signature"})
	case errors.Is(err, domain.ErrUpstream),
		errors.Is(err, domain.ErrRegistrationFailed):
		log.Printf("Upstream error: %v", err)
		respondWithJSON(w, http.StatusBadGateway, map[string]any{"error": "upstream service failure"})
	default:
		log.Printf("Internal error: %v", err)
		respondWithJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
	}
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

/**
 * @description
 * This file sets up the HTTP router for the affiliate-service using the
 * go-chi/chi router. It defines the public sales/affiliate API, the
 * webhook endpoint, the admin surface, and the operational endpoints.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new Chi router and registers the affiliate-service
// routes.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Operational endpoints
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Affiliate service is healthy"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Affiliate links: rizzosai.example/{username}
	r.Get("/{username}", h.handleAffiliateRedirect)

	r.Route("/api", func(r chi.Router) {
		// Sales pages
		r.Get("/packages", h.handleGetPackages)
		r.Get("/promotion-config", h.handleGetPromotion)
		r.Get("/leaderboard", h.handleGetLeaderboard)
		r.Get("/live-signups", h.handleGetLiveSignups)
		r.Post("/capture-email", h.handleCaptureEmail)
		r.Get("/check-domain-availability", h.handleCheckDomainAvailability)

		// Checkout (rate limited per client IP)
		r.Group(func(r chi.Router) {
			r.Use(h.CheckoutRateLimit)
			r.Post("/create-checkout-session", h.handleCreatePackageCheckout)
			r.Post("/create-domain-checkout", h.handleCreateDomainCheckout)
		})

		// Post-payment entitlement
		r.Post("/register", h.handleRegisterPackage)
		r.Post("/process-domain-payment", h.handleProcessDomainPayment)
		r.Get("/verify-email", h.handleVerifyEmail)
		r.Post("/complete-onboarding", h.handleCompleteOnboarding)

		// Affiliate dashboard
		r.Get("/user/{username}/stats", h.handleGetUserStats)
		r.Get("/affiliate/{username}", h.handleGetAffiliate)

		// Billing webhook
		r.Post("/webhook/stripe", h.handleStripeWebhook)

		// Admin surface
		r.Post("/admin/login", h.handleAdminLogin)
		r.Group(func(r chi.Router) {
			r.Use(h.AdminAuthMiddleware)
			r.Get("/admin/stats", h.handleAdminStats)
			r.Get("/admin/dashboard", h.handleAdminDashboard)
		})
	})

	return r
}

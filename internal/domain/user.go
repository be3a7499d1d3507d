/**
 * @description
 * This file defines the User domain model for the affiliate platform.
 * A user is created exactly once by a completed purchase (package or domain
 * rental) and carries the affiliate state the commission logic depends on:
 * the daily rate earned per referral and the one-shot pass-up flag.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Package tier identifiers. The freedom pass tier is assigned by the domain
// rental flow; the others are purchasable packages.
const (
	TierBasic        = "basic"
	TierStarter      = "starter"
	TierProfessional = "professional"
	TierEmpire       = "empire"
	TierFreedomPass  = "freedom_pass"
)

// User represents a registered affiliate.
type User struct {
	ID                   uuid.UUID  `json:"id"`
	Username             string     `json:"username"`
	Email                string     `json:"email"`
	FullName             string     `json:"full_name"`
	DomainName           *string    `json:"domain_name,omitempty"`
	PackageTier          string     `json:"package_tier"`
	DailyRateCents       int64      `json:"daily_rate_cents"`
	EmailVerified        bool       `json:"email_verified"`
	PassUpUsed           bool       `json:"pass_up_used"`
	OnboardingCompleted  bool       `json:"onboarding_completed"`
	FreedomPassActivated bool       `json:"freedom_pass_activated"`
	FreedomPassExpires   *time.Time `json:"freedom_pass_expires,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	VerifiedAt           *time.Time `json:"verified_at,omitempty"`
}

/**
 * @description
 * This file defines the ledger models for one-time charges. Both are keyed
 * by the external checkout-session identifier, whose unique constraint is
 * what makes payment application idempotent: a session id is consumed at
 * most once across the whole system.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// Payment records a completed one-time package purchase.
// Immutable after creation except for Status.
type Payment struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	StripeSessionID string    `json:"stripe_session_id"`
	AmountCents     int64     `json:"amount_cents"`
	PackageTier     string    `json:"package_tier"`
	Status          string    `json:"status"`
	PaymentDate     time.Time `json:"payment_date"`
}

// PaymentCharge records the initial one-time charge of a domain rental.
type PaymentCharge struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	StripeSessionID string    `json:"stripe_session_id"`
	AmountCents     int64     `json:"amount_cents"`
	ChargeType      string    `json:"charge_type"`
	DomainName      string    `json:"domain_name"`
	Status          string    `json:"status"`
	PaymentDate     time.Time `json:"payment_date"`
}

// ChargeTypeDomainInitial is the only charge type currently issued.
const ChargeTypeDomainInitial = "domain_initial"

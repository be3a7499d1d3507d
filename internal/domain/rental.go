/**
 * @description
 * This file defines the domain rental lifecycle models. A DomainRental links
 * a registered domain to the recurring subscription billing it; its rental
 * status is recoverable between active and payment_failed but cancelled is
 * terminal. SubscriptionCharge rows are the append-only audit trail of
 * billing-cycle events, deduplicated by the external invoice id.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Registrar statuses for a rented domain.
const (
	RegistrarStatusPending    = "pending"
	RegistrarStatusRegistered = "registered"
	RegistrarStatusOnHold     = "on_hold"
)

// Rental statuses. Cancelled is terminal.
const (
	RentalStatusActive        = "active"
	RentalStatusPaymentFailed = "payment_failed"
	RentalStatusCancelled     = "cancelled"
)

// Subscription charge statuses.
const (
	ChargeStatusPaid   = "paid"
	ChargeStatusFailed = "failed"
)

// DomainRental is one domain under management.
type DomainRental struct {
	ID                   uuid.UUID  `json:"id"`
	UserID               uuid.UUID  `json:"user_id"`
	DomainName           string     `json:"domain_name"`
	RegistrarStatus      string     `json:"registrar_status"`
	RentalStatus         string     `json:"rental_status"`
	RegistrarOrderID     *string    `json:"registrar_order_id,omitempty"`
	StripeSubscriptionID string     `json:"stripe_subscription_id"`
	RentStartedAt        *time.Time `json:"rent_started_at,omitempty"`
	RentExpiresAt        *time.Time `json:"rent_expires_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// SubscriptionCharge is one billing-cycle event for a rental.
type SubscriptionCharge struct {
	ID                   uuid.UUID  `json:"id"`
	UserID               uuid.UUID  `json:"user_id"`
	DomainRentalID       uuid.UUID  `json:"domain_rental_id"`
	StripeSubscriptionID string     `json:"stripe_subscription_id"`
	StripeInvoiceID      string     `json:"stripe_invoice_id"`
	AmountCents          int64      `json:"amount_cents"`
	BillingPeriodStart   *time.Time `json:"billing_period_start,omitempty"`
	BillingPeriodEnd     *time.Time `json:"billing_period_end,omitempty"`
	Status               string     `json:"status"`
	PaymentDate          time.Time  `json:"payment_date"`
}

// EmailLead is a captured sales-page email before any purchase.
type EmailLead struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Source    string    `json:"source"`
	Converted bool      `json:"converted"`
	CreatedAt time.Time `json:"created_at"`
}

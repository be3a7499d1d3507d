/**
 * @description
 * This file defines the atomic write units the orchestrator hands to the
 * store. Each struct is everything one purchase commits in a single
 * transaction: the account and ledger rows plus the outbox events that
 * must only become visible if the purchase commits.
 */
package domain

import "time"

// PackageRegistration is the atomic unit of a package purchase.
type PackageRegistration struct {
	User     User
	Payment  Payment
	Referral *PendingReferral
	Emails   []OutboxMessage
}

// DomainEntitlement is the atomic unit of a domain rental purchase. User is
// only inserted when no account exists for the paying email; otherwise the
// existing account is reused and the charge, rental and referral attach to it.
type DomainEntitlement struct {
	User              User
	Charge            PaymentCharge
	Rental            DomainRental
	Referral          *PendingReferral
	FreedomPassExpiry time.Time
	Emails            []OutboxMessage
}

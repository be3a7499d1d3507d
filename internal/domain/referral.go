/**
 * @description
 * This file defines the Referral edge and the decision record produced by the
 * commission engine. An edge always names the ORIGINAL referrer; a pass-up
 * never rewrites who referred whom, it only redirects the commission through
 * PassUpRecipientID. ReferralOrder is the 1-based count of edges attributed
 * to the original referrer at insertion time and is never recomputed.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Referral is an immutable directed edge referrer -> referred.
type Referral struct {
	ID                uuid.UUID  `json:"id"`
	ReferrerID        uuid.UUID  `json:"referrer_id"`
	ReferredID        uuid.UUID  `json:"referred_id"`
	ReferralOrder     int        `json:"referral_order"`
	PassedUp          bool       `json:"passed_up"`
	PassUpRecipientID *uuid.UUID `json:"pass_up_recipient,omitempty"`
	CommissionCents   int64      `json:"commission_cents"`
	CommissionPaid    bool       `json:"commission_paid"`
	CreatedAt         time.Time  `json:"created_at"`
}

// RecipientID returns the user the commission is attributed to.
func (r *Referral) RecipientID() uuid.UUID {
	if r.PassedUp && r.PassUpRecipientID != nil {
		return *r.PassUpRecipientID
	}
	return r.ReferrerID
}

// ReferralDecision is the outcome of the commission engine for one signup.
// The store applies it verbatim inside the registration transaction while
// holding the referrer row lock that made the prior-referral count stable.
type ReferralDecision struct {
	ReferrerID        uuid.UUID
	ReferralOrder     int
	PassedUp          bool
	PassUpRecipientID *uuid.UUID
	CommissionCents   int64
	// MarkPassUpUsed flips the referrer's pass_up_used flag in the same
	// transaction. Set only on the order==2 pass-up.
	MarkPassUpUsed bool
}

// PendingReferral defers the commission decision until the store holds the
// per-referrer serialization point. Decide receives the count of edges
// already attributed to the referrer and must be free of side effects.
type PendingReferral struct {
	ReferrerID uuid.UUID
	Decide     func(priorReferrals int) ReferralDecision
}

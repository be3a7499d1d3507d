/**
 * @description
 * The commission engine: pure decision logic for where a new referral's
 * commission lands. Exactly one rule exists: a referrer's second referral
 * passes up to the site owner. It is evaluated per original referrer,
 * so the 1st, 3rd, 4th... always credit the referrer directly.
 *
 * The engine has no side effects. The caller persists the resulting edge
 * and the pass_up_used transition in one transaction while holding the
 * referrer row lock that made priorReferrals stable.
 */
package app

import (
	"log"

	"github.com/rizzosai/affiliate-service/internal/domain"
)

// passUpOrder is the only referral order that redirects commission.
const passUpOrder = 2

// DecideRecipient decides the effective commission recipient for the
// referrer's next referral. siteOwner may be nil when no owner account
// exists; the pass-up then falls back to the referrer and is logged as a
// pass-up failure, not an error.
func DecideRecipient(referrer *domain.User, priorReferrals int, siteOwner *domain.User) (*domain.User, bool) {
	order := priorReferrals + 1
	if order != passUpOrder {
		return referrer, false
	}
	if siteOwner == nil || siteOwner.ID == referrer.ID {
		log.Printf("Pass-up failed for %s's referral #%d: no distinct site owner account", referrer.Username, order)
		return referrer, false
	}
	return siteOwner, true
}

// buildReferralDecision wraps DecideRecipient into the record the store
// applies. The referrer on the edge is always the original referrer; a
// pass-up only fills PassUpRecipientID and flips the one-shot flag.
func buildReferralDecision(referrer *domain.User, priorReferrals int, siteOwner *domain.User, commissionCents int64) domain.ReferralDecision {
	recipient, passedUp := DecideRecipient(referrer, priorReferrals, siteOwner)

	decision := domain.ReferralDecision{
		ReferrerID:      referrer.ID,
		ReferralOrder:   priorReferrals + 1,
		PassedUp:        passedUp,
		CommissionCents: commissionCents,
	}
	if passedUp {
		recipientID := recipient.ID
		decision.PassUpRecipientID = &recipientID
		decision.MarkPassUpUsed = true
		log.Printf("Pass-up activated: %s's referral #%d redirected to %s",
			referrer.Username, decision.ReferralOrder, recipient.Username)
	}
	return decision
}

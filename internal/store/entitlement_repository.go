/**
 * @description
 * Atomic write units for the two purchase flows. Each method is one
 * transaction: every row either commits together or nothing does. The
 * referral edge is inserted while holding a row lock on the referrer, so
 * two concurrent signups referred by the same user cannot both read the
 * same prior-referral count and both decide order==2.
 */
package store

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rizzosai/affiliate-service/internal/domain"
)

// PackagePaymentExists reports whether a package payment already references
// the checkout session.
func (r *PostgresRepository) PackagePaymentExists(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE stripe_session_id = $1)`, sessionID).Scan(&exists)
	return exists, translateError(err)
}

// DomainChargeExists reports whether a domain charge already references the
// checkout session.
func (r *PostgresRepository) DomainChargeExists(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payment_charges WHERE stripe_session_id = $1)`, sessionID).Scan(&exists)
	return exists, translateError(err)
}

// RentalExistsByDomain reports whether a domain is already under management.
func (r *PostgresRepository) RentalExistsByDomain(ctx context.Context, domainName string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM domain_rentals WHERE domain_name = $1)`, domainName).Scan(&exists)
	return exists, translateError(err)
}

// CreatePackageRegistration commits a package purchase: the user, the
// payment keyed by session id, the referral edge if any, and the queued
// verification email.
func (r *PostgresRepository) CreatePackageRegistration(ctx context.Context, reg *domain.PackageRegistration) (*domain.User, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	defer tx.Rollback(ctx)

	user, err := insertUser(ctx, tx, &reg.User)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO payments (user_id, stripe_session_id, amount_cents, package_tier, status)
        VALUES ($1, $2, $3, $4, $5)`,
		user.ID, reg.Payment.StripeSessionID, reg.Payment.AmountCents,
		reg.Payment.PackageTier, reg.Payment.Status)
	if err != nil {
		return nil, translateError(err)
	}

	if reg.Referral != nil {
		if err := insertReferral(ctx, tx, user.ID, reg.Referral); err != nil {
			return nil, err
		}
	}

	if err := enqueueOutbox(ctx, tx, reg.Emails); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateError(err)
	}
	return user, nil
}

// CreateDomainEntitlement commits a domain rental purchase. When an account
// already exists for the paying email it is reused; otherwise the provided
// user is inserted. The freedom-pass expiry is stamped on the owning user
// either way.
func (r *PostgresRepository) CreateDomainEntitlement(ctx context.Context, ent *domain.DomainEntitlement) (*domain.User, *domain.DomainRental, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, translateError(err)
	}
	defer tx.Rollback(ctx)

	user, err := scanUser(tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 FOR UPDATE`, ent.User.Email))
	if err == nil {
		log.Printf("Domain entitlement reusing existing account %s for %s", user.Username, user.Email)
	} else if err == domain.ErrNotFound {
		user, err = insertUser(ctx, tx, &ent.User)
	}
	if err != nil {
		return nil, nil, err
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO payment_charges (user_id, stripe_session_id, amount_cents, charge_type, domain_name, status)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, ent.Charge.StripeSessionID, ent.Charge.AmountCents,
		ent.Charge.ChargeType, ent.Charge.DomainName, ent.Charge.Status)
	if err != nil {
		return nil, nil, translateError(err)
	}

	if ent.Referral != nil {
		if err := insertReferral(ctx, tx, user.ID, ent.Referral); err != nil {
			return nil, nil, err
		}
	}

	rental := ent.Rental
	err = tx.QueryRow(ctx, `
        INSERT INTO domain_rentals
            (user_id, domain_name, registrar_status, rental_status, registrar_order_id,
             stripe_subscription_id, rent_started_at, rent_expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at`,
		user.ID, rental.DomainName, rental.RegistrarStatus, rental.RentalStatus,
		rental.RegistrarOrderID, rental.StripeSubscriptionID,
		rental.RentStartedAt, rental.RentExpiresAt,
	).Scan(&rental.ID, &rental.CreatedAt, &rental.UpdatedAt)
	if err != nil {
		return nil, nil, translateError(err)
	}
	rental.UserID = user.ID

	_, err = tx.Exec(ctx, `
        UPDATE users SET freedom_pass_activated = TRUE, freedom_pass_expires = $2, domain_name = $3
        WHERE id = $1`,
		user.ID, ent.FreedomPassExpiry, rental.DomainName)
	if err != nil {
		return nil, nil, translateError(err)
	}
	user.FreedomPassActivated = true
	expiry := ent.FreedomPassExpiry
	user.FreedomPassExpires = &expiry
	user.DomainName = &rental.DomainName

	if err := enqueueOutbox(ctx, tx, ent.Emails); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, translateError(err)
	}
	return user, &rental, nil
}

func insertUser(ctx context.Context, tx pgx.Tx, u *domain.User) (*domain.User, error) {
	return scanUser(tx.QueryRow(ctx, `
        INSERT INTO users
            (username, email, full_name, domain_name, package_tier, daily_rate_cents,
             email_verified, freedom_pass_activated, verified_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CASE WHEN $7 THEN NOW() ELSE NULL END)
        RETURNING `+userColumns,
		u.Username, u.Email, u.FullName, u.DomainName, u.PackageTier,
		u.DailyRateCents, u.EmailVerified, u.FreedomPassActivated))
}

// insertReferral creates the referral edge for a new signup. It locks the
// referrer row first: the lock is the serialization point that keeps the
// read-count-then-insert sequence atomic per referrer, which is what makes
// "pass up exactly the 2nd referral" hold under concurrent signups.
func insertReferral(ctx context.Context, tx pgx.Tx, referredID uuid.UUID, pending *domain.PendingReferral) error {
	var lockedID uuid.UUID
	err := tx.QueryRow(ctx,
		`SELECT id FROM users WHERE id = $1 FOR UPDATE`, pending.ReferrerID).Scan(&lockedID)
	if err != nil {
		return translateError(err)
	}

	var prior int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM referrals WHERE referrer_id = $1`, pending.ReferrerID).Scan(&prior)
	if err != nil {
		return translateError(err)
	}

	decision := pending.Decide(prior)

	_, err = tx.Exec(ctx, `
        INSERT INTO referrals
            (referrer_id, referred_id, referral_order, passed_up, pass_up_recipient, commission_cents)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		decision.ReferrerID, referredID, decision.ReferralOrder,
		decision.PassedUp, decision.PassUpRecipientID, decision.CommissionCents)
	if err != nil {
		return translateError(err)
	}

	if decision.MarkPassUpUsed {
		_, err = tx.Exec(ctx,
			`UPDATE users SET pass_up_used = TRUE WHERE id = $1`, decision.ReferrerID)
		if err != nil {
			return translateError(err)
		}
	}
	return nil
}

func enqueueOutbox(ctx context.Context, tx pgx.Tx, emails []domain.OutboxMessage) error {
	for _, msg := range emails {
		_, err := tx.Exec(ctx, `
            INSERT INTO email_outbox (exchange, routing_key, payload)
            VALUES ($1, $2, $3)`,
			msg.Exchange, msg.RoutingKey, msg.Payload)
		if err != nil {
			return translateError(err)
		}
	}
	return nil
}

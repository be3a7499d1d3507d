/**
 * @description
 * Reconciler-facing queries. Invoice events are deduplicated by the unique
 * constraint on stripe_invoice_id; rental status updates never resurrect a
 * cancelled rental, so replayed or late events cannot move the lifecycle
 * backwards.
 */
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rizzosai/affiliate-service/internal/domain"
)

// FindRentalBySubscriptionID resolves the rental a gateway subscription
// bills for.
func (r *PostgresRepository) FindRentalBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.DomainRental, error) {
	var d domain.DomainRental
	err := r.db.QueryRow(ctx, `
        SELECT id, user_id, domain_name, registrar_status, rental_status, registrar_order_id,
               stripe_subscription_id, rent_started_at, rent_expires_at, created_at, updated_at
        FROM domain_rentals
        WHERE stripe_subscription_id = $1`, subscriptionID).Scan(
		&d.ID, &d.UserID, &d.DomainName, &d.RegistrarStatus, &d.RentalStatus,
		&d.RegistrarOrderID, &d.StripeSubscriptionID, &d.RentStartedAt,
		&d.RentExpiresAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &d, nil
}

// SubscriptionChargeExists reports whether an invoice has already been
// recorded.
func (r *PostgresRepository) SubscriptionChargeExists(ctx context.Context, invoiceID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscription_charges WHERE stripe_invoice_id = $1)`, invoiceID).Scan(&exists)
	return exists, translateError(err)
}

// RecordInvoicePaid appends the paid charge and reactivates the rental,
// extending its expiry to the billing period end. One transaction; the
// unique invoice id makes redelivery a Conflict instead of a duplicate row.
func (r *PostgresRepository) RecordInvoicePaid(ctx context.Context, rentalID uuid.UUID, charge *domain.SubscriptionCharge, periodEnd time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return translateError(err)
	}
	defer tx.Rollback(ctx)

	if err := insertSubscriptionCharge(ctx, tx, rentalID, charge); err != nil {
		return err
	}

	// Cancelled is terminal; a paid invoice racing a cancellation must not
	// bring the rental back.
	_, err = tx.Exec(ctx, `
        UPDATE domain_rentals
        SET rental_status = $2, rent_expires_at = $3, updated_at = NOW()
        WHERE id = $1 AND rental_status <> $4`,
		rentalID, domain.RentalStatusActive, periodEnd, domain.RentalStatusCancelled)
	if err != nil {
		return translateError(err)
	}

	return translateError(tx.Commit(ctx))
}

// RecordInvoiceFailed appends the failed charge and marks the rental
// payment_failed. The rental is not cancelled; a later paid invoice
// recovers it.
func (r *PostgresRepository) RecordInvoiceFailed(ctx context.Context, rentalID uuid.UUID, charge *domain.SubscriptionCharge) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return translateError(err)
	}
	defer tx.Rollback(ctx)

	if err := insertSubscriptionCharge(ctx, tx, rentalID, charge); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
        UPDATE domain_rentals
        SET rental_status = $2, updated_at = NOW()
        WHERE id = $1 AND rental_status <> $3`,
		rentalID, domain.RentalStatusPaymentFailed, domain.RentalStatusCancelled)
	if err != nil {
		return translateError(err)
	}

	return translateError(tx.Commit(ctx))
}

// CancelRental marks a rental cancelled. Terminal and idempotent.
func (r *PostgresRepository) CancelRental(ctx context.Context, rentalID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
        UPDATE domain_rentals SET rental_status = $2, updated_at = NOW() WHERE id = $1`,
		rentalID, domain.RentalStatusCancelled)
	return translateError(err)
}

// SetRegistrarStatus records the registrar-side state of a rented domain.
func (r *PostgresRepository) SetRegistrarStatus(ctx context.Context, rentalID uuid.UUID, status string) error {
	_, err := r.db.Exec(ctx, `
        UPDATE domain_rentals SET registrar_status = $2, updated_at = NOW() WHERE id = $1`,
		rentalID, status)
	return translateError(err)
}

func insertSubscriptionCharge(ctx context.Context, tx pgx.Tx, rentalID uuid.UUID, charge *domain.SubscriptionCharge) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO subscription_charges
            (user_id, domain_rental_id, stripe_subscription_id, stripe_invoice_id,
             amount_cents, billing_period_start, billing_period_end, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		charge.UserID, rentalID, charge.StripeSubscriptionID, charge.StripeInvoiceID,
		charge.AmountCents, charge.BillingPeriodStart, charge.BillingPeriodEnd, charge.Status)
	return translateError(err)
}

/**
 * @description
 * The billing reconciler consumes verified gateway webhook events and keeps
 * rental state in sync with billing reality. Every handler tolerates
 * redelivery: invoice events are deduplicated by invoice id, status
 * transitions never resurrect a cancelled rental, and events for unknown
 * subscriptions are logged and acknowledged so the gateway stops retrying.
 */
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rizzosai/affiliate-service/internal/domain"
	"github.com/rizzosai/affiliate-service/internal/observability/metrics"
	"github.com/rizzosai/affiliate-service/pkg/stripeclient"
)

// BillingRepository is the persistence surface the reconciler needs.
type BillingRepository interface {
	FindRentalBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.DomainRental, error)
	SubscriptionChargeExists(ctx context.Context, invoiceID string) (bool, error)
	RecordInvoicePaid(ctx context.Context, rentalID uuid.UUID, charge *domain.SubscriptionCharge, periodEnd time.Time) error
	RecordInvoiceFailed(ctx context.Context, rentalID uuid.UUID, charge *domain.SubscriptionCharge) error
	CancelRental(ctx context.Context, rentalID uuid.UUID) error
	SetRegistrarStatus(ctx context.Context, rentalID uuid.UUID, status string) error
}

// Reconciler applies webhook events to the rental lifecycle.
type Reconciler struct {
	repo      BillingRepository
	registrar Registrar
}

// NewReconciler creates the webhook reconciler.
func NewReconciler(repo BillingRepository, registrar Registrar) *Reconciler {
	return &Reconciler{repo: repo, registrar: registrar}
}

// HandleEvent dispatches one verified event. Unknown event types are
// acknowledged without side effects.
func (r *Reconciler) HandleEvent(ctx context.Context, event *stripeclient.Event) error {
	var err error
	switch event.Type {
	case stripeclient.EventInvoicePaid:
		err = r.handleInvoicePaid(ctx, event)
	case stripeclient.EventInvoiceFailed:
		err = r.handleInvoiceFailed(ctx, event)
	case stripeclient.EventSubscriptionDeleted:
		err = r.handleSubscriptionDeleted(ctx, event)
	default:
		log.Printf("Ignoring webhook event %s of type %s", event.ID, event.Type)
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "ignored").Inc()
		return nil
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.WebhookEventsTotal.WithLabelValues(event.Type, result).Inc()
	return err
}

func (r *Reconciler) handleInvoicePaid(ctx context.Context, event *stripeclient.Event) error {
	invoice, err := decodeInvoice(event)
	if err != nil {
		return err
	}
	if invoice.Subscription == "" {
		log.Printf("Invoice %s carries no subscription, skipping", invoice.ID)
		return nil
	}

	rental, ok, err := r.lookupRental(ctx, invoice.Subscription, event.ID)
	if err != nil || !ok {
		return err
	}

	recorded, err := r.repo.SubscriptionChargeExists(ctx, invoice.ID)
	if err != nil {
		return err
	}
	if recorded {
		log.Printf("Invoice %s already recorded, skipping redelivery", invoice.ID)
		return nil
	}

	periodStart := time.Unix(invoice.PeriodStart, 0).UTC()
	periodEnd := time.Unix(invoice.PeriodEnd, 0).UTC()
	charge := &domain.SubscriptionCharge{
		UserID:               rental.UserID,
		DomainRentalID:       rental.ID,
		StripeSubscriptionID: invoice.Subscription,
		StripeInvoiceID:      invoice.ID,
		AmountCents:          invoice.AmountPaid,
		BillingPeriodStart:   &periodStart,
		BillingPeriodEnd:     &periodEnd,
		Status:               domain.ChargeStatusPaid,
	}

	err = r.repo.RecordInvoicePaid(ctx, rental.ID, charge, periodEnd)
	if errors.Is(err, domain.ErrConflict) {
		// A concurrent delivery of the same invoice won the insert race.
		log.Printf("Invoice %s recorded by a concurrent delivery", invoice.ID)
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("Rental %s renewed through %s (invoice %s, %d cents)",
		rental.DomainName, periodEnd.Format(time.RFC3339), invoice.ID, invoice.AmountPaid)
	return nil
}

func (r *Reconciler) handleInvoiceFailed(ctx context.Context, event *stripeclient.Event) error {
	invoice, err := decodeInvoice(event)
	if err != nil {
		return err
	}
	if invoice.Subscription == "" {
		log.Printf("Invoice %s carries no subscription, skipping", invoice.ID)
		return nil
	}

	rental, ok, err := r.lookupRental(ctx, invoice.Subscription, event.ID)
	if err != nil || !ok {
		return err
	}

	recorded, err := r.repo.SubscriptionChargeExists(ctx, invoice.ID)
	if err != nil {
		return err
	}
	if recorded {
		log.Printf("Invoice %s already recorded, skipping redelivery", invoice.ID)
		return nil
	}

	charge := &domain.SubscriptionCharge{
		UserID:               rental.UserID,
		DomainRentalID:       rental.ID,
		StripeSubscriptionID: invoice.Subscription,
		StripeInvoiceID:      invoice.ID,
		AmountCents:          invoice.AmountDue,
		Status:               domain.ChargeStatusFailed,
	}

	err = r.repo.RecordInvoiceFailed(ctx, rental.ID, charge)
	if errors.Is(err, domain.ErrConflict) {
		log.Printf("Invoice %s recorded by a concurrent delivery", invoice.ID)
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("Rental %s marked payment_failed (invoice %s)", rental.DomainName, invoice.ID)
	return nil
}

// handleSubscriptionDeleted cancels the rental locally and then attempts
// the registrar hold. A hold failure never rolls back the cancellation;
// the registrar status stays behind for a later retry.
func (r *Reconciler) handleSubscriptionDeleted(ctx context.Context, event *stripeclient.Event) error {
	var sub stripeclient.SubscriptionObject
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return fmt.Errorf("decode subscription object: %w", err)
	}

	rental, ok, err := r.lookupRental(ctx, sub.ID, event.ID)
	if err != nil || !ok {
		return err
	}

	if err := r.repo.CancelRental(ctx, rental.ID); err != nil {
		return err
	}
	log.Printf("Rental %s cancelled (subscription %s deleted)", rental.DomainName, sub.ID)

	if err := r.registrar.Hold(ctx, rental.DomainName); err != nil {
		log.Printf("ALERT: failed to place hold on %s after cancellation: %v", rental.DomainName, err)
		return nil
	}
	if err := r.repo.SetRegistrarStatus(ctx, rental.ID, domain.RegistrarStatusOnHold); err != nil {
		log.Printf("ALERT: hold applied to %s but status update failed: %v", rental.DomainName, err)
	}
	return nil
}

// lookupRental resolves the rental for a subscription. Unknown
// subscriptions are acknowledged, not retried.
func (r *Reconciler) lookupRental(ctx context.Context, subscriptionID, eventID string) (*domain.DomainRental, bool, error) {
	rental, err := r.repo.FindRentalBySubscriptionID(ctx, subscriptionID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Printf("Event %s references unknown subscription %s, acknowledging", eventID, subscriptionID)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rental, true, nil
}

func decodeInvoice(event *stripeclient.Event) (*stripeclient.Invoice, error) {
	var invoice stripeclient.Invoice
	if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
		return nil, fmt.Errorf("decode invoice object: %w", err)
	}
	return &invoice, nil
}

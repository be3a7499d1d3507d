package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rizzosai/affiliate-service/internal/domain"
	"github.com/rizzosai/affiliate-service/pkg/stripeclient"
)

type fakeBillingRepo struct {
	rentals   map[string]*domain.DomainRental // by subscription id
	charges   map[string]bool                 // by invoice id
	paid      []string
	failed    []string
	cancelled []uuid.UUID
	statuses  map[uuid.UUID]string

	recordPaidErr error
}

func newFakeBillingRepo() *fakeBillingRepo {
	return &fakeBillingRepo{
		rentals:  map[string]*domain.DomainRental{},
		charges:  map[string]bool{},
		statuses: map[uuid.UUID]string{},
	}
}

func (f *fakeBillingRepo) addRental(subscriptionID, domainName string) *domain.DomainRental {
	r := &domain.DomainRental{
		ID: uuid.New(), UserID: uuid.New(), DomainName: domainName,
		StripeSubscriptionID: subscriptionID,
		RentalStatus:         domain.RentalStatusActive,
		RegistrarStatus:      domain.RegistrarStatusRegistered,
	}
	f.rentals[subscriptionID] = r
	return r
}

func (f *fakeBillingRepo) FindRentalBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.DomainRental, error) {
	if r, ok := f.rentals[subscriptionID]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBillingRepo) SubscriptionChargeExists(ctx context.Context, invoiceID string) (bool, error) {
	return f.charges[invoiceID], nil
}

func (f *fakeBillingRepo) RecordInvoicePaid(ctx context.Context, rentalID uuid.UUID, charge *domain.SubscriptionCharge, periodEnd time.Time) error {
	if f.recordPaidErr != nil {
		return f.recordPaidErr
	}
	f.charges[charge.StripeInvoiceID] = true
	f.paid = append(f.paid, charge.StripeInvoiceID)
	for _, r := range f.rentals {
		if r.ID == rentalID && r.RentalStatus != domain.RentalStatusCancelled {
			r.RentalStatus = domain.RentalStatusActive
			end := periodEnd
			r.RentExpiresAt = &end
		}
	}
	return nil
}

func (f *fakeBillingRepo) RecordInvoiceFailed(ctx context.Context, rentalID uuid.UUID, charge *domain.SubscriptionCharge) error {
	f.charges[charge.StripeInvoiceID] = true
	f.failed = append(f.failed, charge.StripeInvoiceID)
	for _, r := range f.rentals {
		if r.ID == rentalID && r.RentalStatus != domain.RentalStatusCancelled {
			r.RentalStatus = domain.RentalStatusPaymentFailed
		}
	}
	return nil
}

func (f *fakeBillingRepo) CancelRental(ctx context.Context, rentalID uuid.UUID) error {
	f.cancelled = append(f.cancelled, rentalID)
	for _, r := range f.rentals {
		if r.ID == rentalID {
			r.RentalStatus = domain.RentalStatusCancelled
		}
	}
	return nil
}

func (f *fakeBillingRepo) SetRegistrarStatus(ctx context.Context, rentalID uuid.UUID, status string) error {
	f.statuses[rentalID] = status
	return nil
}

func webhookEvent(t *testing.T, eventType string, object any) *stripeclient.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("marshal event object: %v", err)
	}
	event := &stripeclient.Event{ID: "evt_" + eventType, Type: eventType}
	event.Data.Object = raw
	return event
}

func TestReconcilerInvoicePaid(t *testing.T) {
	ctx := context.Background()
	repo := newFakeBillingRepo()
	rental := repo.addRental("sub_1", "mybrand.com")
	rental.RentalStatus = domain.RentalStatusPaymentFailed
	rec := NewReconciler(repo, &fakeRegistrar{})

	invoice := stripeclient.Invoice{
		ID: "in_1", Subscription: "sub_1", AmountPaid: 2000,
		PeriodStart: 1700000000, PeriodEnd: 1700086400,
	}
	if err := rec.HandleEvent(ctx, webhookEvent(t, stripeclient.EventInvoicePaid, invoice)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if rental.RentalStatus != domain.RentalStatusActive {
		t.Fatalf("rental status = %s, want recovery to active", rental.RentalStatus)
	}
	if rental.RentExpiresAt == nil || !rental.RentExpiresAt.Equal(time.Unix(1700086400, 0).UTC()) {
		t.Fatalf("expiry = %v, want billing period end", rental.RentExpiresAt)
	}

	// Redelivery is acknowledged without a second charge row.
	if err := rec.HandleEvent(ctx, webhookEvent(t, stripeclient.EventInvoicePaid, invoice)); err != nil {
		t.Fatalf("redelivered HandleEvent: %v", err)
	}
	if len(repo.paid) != 1 {
		t.Fatalf("paid charges = %d, want 1 after redelivery", len(repo.paid))
	}
}

func TestReconcilerInvoicePaidConflictIsAcknowledged(t *testing.T) {
	repo := newFakeBillingRepo()
	repo.addRental("sub_1", "mybrand.com")
	repo.recordPaidErr = domain.ErrConflict
	rec := NewReconciler(repo, &fakeRegistrar{})

	event := webhookEvent(t, stripeclient.EventInvoicePaid,
		stripeclient.Invoice{ID: "in_1", Subscription: "sub_1", AmountPaid: 2000})
	if err := rec.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("a concurrent-delivery conflict must be acknowledged, got %v", err)
	}
}

func TestReconcilerInvoiceFailed(t *testing.T) {
	ctx := context.Background()
	repo := newFakeBillingRepo()
	rental := repo.addRental("sub_1", "mybrand.com")
	rec := NewReconciler(repo, &fakeRegistrar{})

	event := webhookEvent(t, stripeclient.EventInvoiceFailed,
		stripeclient.Invoice{ID: "in_f1", Subscription: "sub_1", AmountDue: 2000})
	if err := rec.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if rental.RentalStatus != domain.RentalStatusPaymentFailed {
		t.Fatalf("rental status = %s, want payment_failed", rental.RentalStatus)
	}
	if len(repo.failed) != 1 {
		t.Fatalf("failed charges = %d, want 1", len(repo.failed))
	}
}

func TestReconcilerSubscriptionDeleted(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels the rental and holds the domain", func(t *testing.T) {
		repo := newFakeBillingRepo()
		rental := repo.addRental("sub_1", "mybrand.com")
		registrar := &fakeRegistrar{}
		rec := NewReconciler(repo, registrar)

		event := webhookEvent(t, stripeclient.EventSubscriptionDeleted,
			stripeclient.SubscriptionObject{ID: "sub_1"})
		if err := rec.HandleEvent(ctx, event); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
		if rental.RentalStatus != domain.RentalStatusCancelled {
			t.Fatalf("rental status = %s, want cancelled", rental.RentalStatus)
		}
		if len(registrar.held) != 1 || registrar.held[0] != "mybrand.com" {
			t.Fatalf("holds = %v, want mybrand.com", registrar.held)
		}
		if repo.statuses[rental.ID] != domain.RegistrarStatusOnHold {
			t.Fatalf("registrar status = %s, want on_hold", repo.statuses[rental.ID])
		}
	})

	t.Run("hold failure keeps the cancellation", func(t *testing.T) {
		repo := newFakeBillingRepo()
		rental := repo.addRental("sub_1", "mybrand.com")
		rec := NewReconciler(repo, &fakeRegistrar{holdErr: errors.New("registrar down")})

		event := webhookEvent(t, stripeclient.EventSubscriptionDeleted,
			stripeclient.SubscriptionObject{ID: "sub_1"})
		if err := rec.HandleEvent(ctx, event); err != nil {
			t.Fatalf("hold failure must not fail the event, got %v", err)
		}
		if rental.RentalStatus != domain.RentalStatusCancelled {
			t.Fatal("cancellation must stand when the hold fails")
		}
		if repo.statuses[rental.ID] == domain.RegistrarStatusOnHold {
			t.Fatal("registrar status must stay behind for a later retry")
		}
	})
}

func TestReconcilerUnknownSubscriptionAndType(t *testing.T) {
	ctx := context.Background()
	repo := newFakeBillingRepo()
	rec := NewReconciler(repo, &fakeRegistrar{})

	event := webhookEvent(t, stripeclient.EventInvoicePaid,
		stripeclient.Invoice{ID: "in_1", Subscription: "sub_unknown", AmountPaid: 2000})
	if err := rec.HandleEvent(ctx, event); err != nil {
		t.Fatalf("unknown subscription must be acknowledged, got %v", err)
	}
	if len(repo.paid) != 0 {
		t.Fatal("no charge expected for an unknown subscription")
	}

	other := webhookEvent(t, "customer.created", map[string]string{"id": "cus_1"})
	if err := rec.HandleEvent(ctx, other); err != nil {
		t.Fatalf("unknown event type must be acknowledged, got %v", err)
	}
}

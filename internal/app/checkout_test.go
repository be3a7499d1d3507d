package app

import (
	"context"
	"errors"
	"testing"

	"github.com/rizzosai/affiliate-service/internal/domain"
)

func TestCreatePackageCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps the sale facts as session metadata", func(t *testing.T) {
		gateway := &fakeGateway{}
		svc := newTestService(newFakeRepo(), gateway, &fakeRegistrar{})

		redirect, err := svc.CreatePackageCheckout(ctx, "professional", "Alice")
		if err != nil {
			t.Fatalf("CreatePackageCheckout: %v", err)
		}
		if redirect.URL == "" || redirect.SessionID == "" {
			t.Fatalf("redirect = %+v", redirect)
		}

		meta := gateway.lastCheckout.Metadata
		if meta["package_id"] != "professional" {
			t.Fatalf("package_id = %q", meta["package_id"])
		}
		if meta["package_price_cents"] != "2000" {
			t.Fatalf("package_price_cents = %q, want promo price", meta["package_price_cents"])
		}
		if meta["referrer_username"] != "alice" {
			t.Fatalf("referrer_username = %q, want normalized", meta["referrer_username"])
		}
		if gateway.lastCheckout.AmountCents != 2000 {
			t.Fatalf("amount = %d, want promo price", gateway.lastCheckout.AmountCents)
		}
	})

	t.Run("rejects an unknown package id", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), &fakeGateway{}, &fakeRegistrar{})
		if _, err := svc.CreatePackageCheckout(ctx, "platinum", ""); !domain.IsValidation(err) {
			t.Fatalf("err = %v, want validation error", err)
		}
	})
}

func TestCreateDomainCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects a domain already under management", func(t *testing.T) {
		repo := newFakeRepo()
		repo.rentals["mybrand.com"] = true
		svc := newTestService(repo, &fakeGateway{}, &fakeRegistrar{})

		_, err := svc.CreateDomainCheckout(ctx, "mybrand", "b@example.com", "Buyer", "")
		if !errors.Is(err, domain.ErrDomainUnavailable) {
			t.Fatalf("err = %v, want ErrDomainUnavailable", err)
		}
	})

	t.Run("rejects a malformed email before any registrar call", func(t *testing.T) {
		registrar := &fakeRegistrar{checkErr: errors.New("must not be called")}
		svc := newTestService(newFakeRepo(), &fakeGateway{}, registrar)

		_, err := svc.CreateDomainCheckout(ctx, "mybrand", "not-an-email", "Buyer", "")
		if !domain.IsValidation(err) {
			t.Fatalf("err = %v, want validation error", err)
		}
	})

	t.Run("appends .com and creates the session", func(t *testing.T) {
		gateway := &fakeGateway{}
		svc := newTestService(newFakeRepo(), gateway, &fakeRegistrar{})

		if _, err := svc.CreateDomainCheckout(ctx, "MyBrand", "b@example.com", "Buyer", ""); err != nil {
			t.Fatalf("CreateDomainCheckout: %v", err)
		}
		if gateway.lastCheckout.Metadata["domain_name"] != "mybrand.com" {
			t.Fatalf("domain_name = %q", gateway.lastCheckout.Metadata["domain_name"])
		}
		if gateway.lastCheckout.AmountCents != domain.DomainRentalPriceCents {
			t.Fatalf("amount = %d, want %d", gateway.lastCheckout.AmountCents, domain.DomainRentalPriceCents)
		}
	})
}

func TestStatsRequiresVerification(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("bob", false)
	svc := newTestService(repo, &fakeGateway{}, &fakeRegistrar{})

	if _, err := svc.Stats(context.Background(), "bob"); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("err = %v, want ErrNotVerified", err)
	}

	repo.users["bob"].EmailVerified = true
	if _, err := svc.Stats(context.Background(), "Bob"); err != nil {
		t.Fatalf("Stats after verification: %v", err)
	}
}

func TestCaptureEmail(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeGateway{}, &fakeRegistrar{})

	if err := svc.CaptureEmail(context.Background(), " Lead@Example.com ", ""); err != nil {
		t.Fatalf("CaptureEmail: %v", err)
	}
	if len(repo.leads) != 1 || repo.leads[0] != "lead@example.com" {
		t.Fatalf("leads = %v, want normalized address", repo.leads)
	}

	if err := svc.CaptureEmail(context.Background(), "bogus", ""); !domain.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

/**
 * @description
 * Checkout-session creation for both purchase flows, plus the pre-purchase
 * reads the sales pages use. Sessions carry the trusted sale facts as
 * metadata; the post-payment flows recompute the expected amount from that
 * metadata rather than trusting anything the client resubmits.
 */
package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rizzosai/affiliate-service/internal/domain"
	"github.com/rizzosai/affiliate-service/pkg/stripeclient"
)

// CreatePackageCheckout opens a hosted checkout session for a package
// purchase and returns the redirect URL.
func (s *Service) CreatePackageCheckout(ctx context.Context, packageID, referrerUsername string) (*CheckoutRedirect, error) {
	pkg, ok := domain.FindPackage(s.catalog(), packageID)
	if !ok {
		return nil, &domain.ValidationError{Field: "package_id", Reason: "unknown package"}
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, stripeclient.CheckoutParams{
		ProductName:        pkg.Name + " Package",
		ProductDescription: "RizzosAI affiliate package: " + pkg.Name,
		AmountCents:        pkg.PriceCents,
		SuccessURL:         s.settings.BaseURL + "/register-complete?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:          s.settings.BaseURL + "/#packages",
		Metadata: map[string]string{
			metaPackageID:  pkg.ID,
			metaPriceCents: strconv.FormatInt(pkg.PriceCents, 10),
			metaReferrer:   domain.NormalizeUsername(referrerUsername),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout session: %v", domain.ErrUpstream, err)
	}
	return &CheckoutRedirect{SessionID: session.ID, URL: session.URL}, nil
}

// CreateDomainCheckout opens a hosted checkout session for the initial
// domain rental charge. Availability is checked here for fast feedback and
// re-checked after payment before the registrar is committed.
func (s *Service) CreateDomainCheckout(ctx context.Context, domainName, email, fullName, referrerUsername string) (*CheckoutRedirect, error) {
	domainName = domain.NormalizeDomain(domainName)
	if err := domain.ValidateDomain(domainName); err != nil {
		return nil, err
	}
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if fullName == "" {
		return nil, &domain.ValidationError{Field: "full_name", Reason: "full name is required"}
	}

	available, err := s.DomainAvailable(ctx, domainName)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, fmt.Errorf("%w: %s", domain.ErrDomainUnavailable, domainName)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, stripeclient.CheckoutParams{
		ProductName:        "Domain Registration: " + domainName,
		ProductDescription: "Domain registration with daily rental billing",
		AmountCents:        domain.DomainRentalPriceCents,
		SuccessURL:         s.settings.BaseURL + "/domain-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:          s.settings.BaseURL + "/freedom-pass",
		CustomerEmail:      email,
		Metadata: map[string]string{
			metaPaymentType: domain.ChargeTypeDomainInitial,
			metaDomainName:  domainName,
			metaEmail:       email,
			metaFullName:    fullName,
			metaReferrer:    domain.NormalizeUsername(referrerUsername),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create domain checkout session: %v", domain.ErrUpstream, err)
	}
	return &CheckoutRedirect{SessionID: session.ID, URL: session.URL}, nil
}

// DomainAvailable reports whether a domain can be sold: not already under
// management locally and available at the registrar.
func (s *Service) DomainAvailable(ctx context.Context, domainName string) (bool, error) {
	domainName = domain.NormalizeDomain(domainName)
	if err := domain.ValidateDomain(domainName); err != nil {
		return false, err
	}

	taken, err := s.repo.RentalExistsByDomain(ctx, domainName)
	if err != nil {
		return false, err
	}
	if taken {
		return false, nil
	}

	available, err := s.registrar.CheckAvailability(ctx, domainName)
	if err != nil {
		return false, fmt.Errorf("%w: registrar availability check: %v", domain.ErrUpstream, err)
	}
	return available, nil
}

// CaptureEmail records a sales-page lead.
func (s *Service) CaptureEmail(ctx context.Context, email, source string) error {
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateEmail(email); err != nil {
		return err
	}
	if source == "" {
		source = "freedom_pass_sales"
	}
	return s.repo.CreateEmailLead(ctx, email, source)
}

// Packages returns the catalog under the current promotion settings.
func (s *Service) Packages() []domain.PackageSpec {
	return s.catalog()
}

// PromotionConfig is the public promotion state the sales pages render.
type PromotionConfig struct {
	PromoActive      bool   `json:"promo_active"`
	PromoPriceCents  int64  `json:"promo_price_cents"`
	PromotionEndDate string `json:"promotion_end_date,omitempty"`
}

// Promotion returns the current promotion state.
func (s *Service) Promotion() PromotionConfig {
	cfg := PromotionConfig{
		PromoActive:     s.settings.PromoActive,
		PromoPriceCents: s.settings.PromoPriceCents,
	}
	if s.settings.PromotionEndDate != nil {
		cfg.PromotionEndDate = s.settings.PromotionEndDate.Format("2006-01-02T15:04:05Z07:00")
	}
	return cfg
}

// CheckoutRedirect is the hosted-checkout handoff returned to the client.
type CheckoutRedirect struct {
	SessionID string `json:"session_id"`
	URL       string `json:"checkout_url"`
}

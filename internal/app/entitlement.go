/**
 * @description
 * Post-payment entitlement flows. Both flows follow the same shape: verify
 * the session against the gateway, reject duplicates by session id, check
 * the captured amount against the trusted metadata, then commit every local
 * row in one store transaction. The domain flow additionally commits the
 * registrar and the recurring subscription before the local transaction;
 * failures after the registrar call are surfaced loudly because only the
 * local rows roll back.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/rizzosai/affiliate-service/internal/domain"
	"github.com/rizzosai/affiliate-service/internal/observability/metrics"
	"github.com/rizzosai/affiliate-service/pkg/stripeclient"
)

// RegisterPackageRequest is the account the buyer chose on the
// registration-completion page after paying.
type RegisterPackageRequest struct {
	SessionID  string
	Username   string
	Email      string
	FullName   string
	ReferredBy string
}

// RegisterPackage turns a paid checkout session into an account, its
// payment row, the referral edge and the queued verification email.
func (s *Service) RegisterPackage(ctx context.Context, req RegisterPackageRequest) (*domain.User, error) {
	user, err := s.registerPackage(ctx, req)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("package", "error").Inc()
		return nil, err
	}
	metrics.RegistrationsTotal.WithLabelValues("package", "ok").Inc()
	return user, nil
}

func (s *Service) registerPackage(ctx context.Context, req RegisterPackageRequest) (*domain.User, error) {
	if req.SessionID == "" {
		return nil, &domain.ValidationError{Field: "session_id", Reason: "session id is required"}
	}
	username := domain.NormalizeUsername(req.Username)
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(req.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.FullName) == "" {
		return nil, &domain.ValidationError{Field: "full_name", Reason: "full name is required"}
	}

	session, err := s.retrievePaidSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.PackagePaymentExists(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicatePayment
	}

	pkg, priceCents, err := s.packageSale(session)
	if err != nil {
		return nil, err
	}
	if session.AmountTotal != priceCents {
		log.Printf("Amount mismatch on session %s: captured %d, expected %d",
			session.ID, session.AmountTotal, priceCents)
		return nil, domain.ErrAmountMismatch
	}

	var referral *domain.PendingReferral
	referredBy := req.ReferredBy
	if referredBy == "" {
		referredBy = session.Metadata[metaReferrer]
	}
	if domain.NormalizeUsername(referredBy) != username {
		referral = s.pendingReferral(ctx, referredBy, priceCents)
	}

	token, err := IssueVerificationToken(s.settings.VerificationSecret, email, s.now())
	if err != nil {
		return nil, fmt.Errorf("issue verification token: %w", err)
	}

	reg := &domain.PackageRegistration{
		User: domain.User{
			Username:       username,
			Email:          email,
			FullName:       strings.TrimSpace(req.FullName),
			PackageTier:    pkg.ID,
			DailyRateCents: priceCents,
		},
		Payment: domain.Payment{
			StripeSessionID: session.ID,
			AmountCents:     session.AmountTotal,
			PackageTier:     pkg.ID,
			Status:          domain.PaymentStatusCompleted,
		},
		Referral: referral,
		Emails: []domain.OutboxMessage{
			domain.NewOutboxMessage(domain.EmailExchange, domain.RoutingKeyVerification,
				domain.VerificationEmailRequested{
					Email:           email,
					FullName:        strings.TrimSpace(req.FullName),
					Username:        username,
					VerificationURL: s.settings.BaseURL + "/verify-email?token=" + token,
				}),
		},
	}

	user, err := s.repo.CreatePackageRegistration(ctx, reg)
	if errors.Is(err, domain.ErrConflict) {
		return nil, fmt.Errorf("%w: username, email or payment session already registered", domain.ErrConflict)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("Package registration complete: user=%s tier=%s amount=%d session=%s",
		user.Username, pkg.ID, session.AmountTotal, session.ID)
	return user, nil
}

// ProcessDomainPayment turns a paid domain checkout session into a
// registered domain, its recurring billing and the freedom-pass account.
func (s *Service) ProcessDomainPayment(ctx context.Context, sessionID string) (*domain.User, *domain.DomainRental, error) {
	user, rental, err := s.processDomainPayment(ctx, sessionID)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("domain", "error").Inc()
		return nil, nil, err
	}
	metrics.RegistrationsTotal.WithLabelValues("domain", "ok").Inc()
	return user, rental, nil
}

func (s *Service) processDomainPayment(ctx context.Context, sessionID string) (*domain.User, *domain.DomainRental, error) {
	if sessionID == "" {
		return nil, nil, &domain.ValidationError{Field: "session_id", Reason: "session id is required"}
	}

	session, err := s.retrievePaidSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	exists, err := s.repo.DomainChargeExists(ctx, session.ID)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, domain.ErrDuplicatePayment
	}

	domainName := domain.NormalizeDomain(session.Metadata[metaDomainName])
	email := domain.NormalizeEmail(session.Metadata[metaEmail])
	fullName := strings.TrimSpace(session.Metadata[metaFullName])
	if domainName == "" || email == "" || fullName == "" {
		return nil, nil, fmt.Errorf("%w: session %s missing domain_name, email or full_name", domain.ErrInvalidMetadata, session.ID)
	}
	if err := domain.ValidateDomain(domainName); err != nil {
		return nil, nil, fmt.Errorf("%w: session %s carries malformed domain %q", domain.ErrInvalidMetadata, session.ID, domainName)
	}
	if session.AmountTotal != domain.DomainRentalPriceCents {
		log.Printf("Amount mismatch on domain session %s: captured %d, expected %d",
			session.ID, session.AmountTotal, domain.DomainRentalPriceCents)
		return nil, nil, domain.ErrAmountMismatch
	}

	// Re-check availability after payment; the domain may have been taken
	// while the buyer was on the hosted checkout page.
	available, err := s.registrar.CheckAvailability(ctx, domainName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: registrar availability check: %v", domain.ErrUpstream, err)
	}
	if !available {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrDomainUnavailable, domainName)
	}

	orderID, err := s.registrar.Register(ctx, domainName, email, fullName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrRegistrationFailed, err)
	}

	subscription, err := s.gateway.CreateDailySubscription(ctx, session.Customer,
		domain.DomainRentalPriceCents, map[string]string{
			metaDomainName:  domainName,
			metaEmail:       email,
			metaPaymentType: "domain_rental",
		})
	if err != nil {
		// The domain is already registered at this point. Surface the
		// failure for manual reconciliation instead of hiding it.
		log.Printf("ALERT: subscription creation failed after registering %s (order %s): %v",
			domainName, orderID, err)
		return nil, nil, fmt.Errorf("%w: subscription creation after domain registration: %v", domain.ErrUpstream, err)
	}

	username := domainName[:strings.Index(domainName, ".")]
	now := s.now()
	expiry := s.freedomPassExpiry()

	ent := &domain.DomainEntitlement{
		User: domain.User{
			Username:             username,
			Email:                email,
			FullName:             fullName,
			PackageTier:          domain.TierFreedomPass,
			DailyRateCents:       domain.DomainRentalPriceCents,
			EmailVerified:        true,
			FreedomPassActivated: true,
		},
		Charge: domain.PaymentCharge{
			StripeSessionID: session.ID,
			AmountCents:     session.AmountTotal,
			ChargeType:      domain.ChargeTypeDomainInitial,
			DomainName:      domainName,
			Status:          domain.PaymentStatusCompleted,
		},
		Rental: domain.DomainRental{
			DomainName:           domainName,
			RegistrarStatus:      domain.RegistrarStatusRegistered,
			RentalStatus:         domain.RentalStatusActive,
			RegistrarOrderID:     &orderID,
			StripeSubscriptionID: subscription.ID,
			RentStartedAt:        &now,
			RentExpiresAt:        &expiry,
		},
		Referral:          s.pendingReferral(ctx, session.Metadata[metaReferrer], domain.DomainRentalPriceCents),
		FreedomPassExpiry: expiry,
		Emails: []domain.OutboxMessage{
			domain.NewOutboxMessage(domain.EmailExchange, domain.RoutingKeyDomainWelcome,
				domain.DomainWelcomeEmailRequested{
					Email:         email,
					FullName:      fullName,
					Username:      username,
					DomainName:    domainName,
					AffiliateLink: s.settings.BaseURL + "/" + username,
				}),
		},
	}

	user, rental, err := s.repo.CreateDomainEntitlement(ctx, ent)
	if err != nil {
		// The registrar and the subscription are already committed; only
		// the local rows rolled back.
		log.Printf("ALERT: local commit failed after registering %s (order %s, subscription %s): %v",
			domainName, orderID, subscription.ID, err)
		return nil, nil, err
	}

	log.Printf("Domain entitlement complete: domain=%s user=%s order=%s subscription=%s",
		domainName, user.Username, orderID, subscription.ID)
	return user, rental, nil
}

// VerifyEmail consumes a signed verification token and flips the user's
// verification flag. Repeat calls with a valid token are no-ops.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	email, err := ParseVerificationToken(s.settings.VerificationSecret, token, s.now())
	if err != nil {
		return nil, err
	}
	return s.repo.MarkEmailVerified(ctx, email)
}

// CompleteOnboarding flips the onboarding flag for a verified account.
func (s *Service) CompleteOnboarding(ctx context.Context, username string) error {
	username = domain.NormalizeUsername(username)
	if err := domain.ValidateUsername(username); err != nil {
		return err
	}
	return s.repo.CompleteOnboarding(ctx, username)
}

// retrievePaidSession fetches a checkout session and requires it to be paid.
func (s *Service) retrievePaidSession(ctx context.Context, sessionID string) (*stripeclient.Session, error) {
	session, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		if stripeclient.IsInvalidRequest(err) {
			return nil, &domain.ValidationError{Field: "session_id", Reason: "unknown checkout session"}
		}
		return nil, fmt.Errorf("%w: retrieve checkout session: %v", domain.ErrUpstream, err)
	}
	if session.PaymentStatus != "paid" {
		return nil, domain.ErrPaymentNotCompleted
	}
	return session, nil
}

// packageSale reads the trusted sale facts off a paid session. Money fields
// are never defaulted: missing or malformed metadata fails the flow.
func (s *Service) packageSale(session *stripeclient.Session) (domain.PackageSpec, int64, error) {
	packageID := session.Metadata[metaPackageID]
	if packageID == "" {
		return domain.PackageSpec{}, 0, fmt.Errorf("%w: session %s missing package_id", domain.ErrInvalidMetadata, session.ID)
	}
	pkg, ok := domain.FindPackage(s.catalog(), packageID)
	if !ok {
		return domain.PackageSpec{}, 0, fmt.Errorf("%w: session %s references unknown package %q", domain.ErrInvalidMetadata, session.ID, packageID)
	}

	rawPrice := session.Metadata[metaPriceCents]
	if rawPrice == "" {
		return domain.PackageSpec{}, 0, fmt.Errorf("%w: session %s missing package_price_cents", domain.ErrInvalidMetadata, session.ID)
	}
	priceCents, err := strconv.ParseInt(rawPrice, 10, 64)
	if err != nil || priceCents <= 0 {
		return domain.PackageSpec{}, 0, fmt.Errorf("%w: session %s has malformed package_price_cents %q", domain.ErrInvalidMetadata, session.ID, rawPrice)
	}
	return pkg, priceCents, nil
}

/**
 * @description
 * This file defines the Service orchestrating the purchase flows, and the
 * capability interfaces it consumes. Interfaces are declared here, where
 * they are used: the store, the payment gateway and the registrar all plug
 * in behind them, which is also what the tests substitute fakes for.
 */
package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rizzosai/affiliate-service/internal/domain"
	"github.com/rizzosai/affiliate-service/internal/observability/metrics"
	"github.com/rizzosai/affiliate-service/pkg/stripeclient"
)

// Repository is the persistence surface the orchestrator needs.
type Repository interface {
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindVerifiedUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	MarkEmailVerified(ctx context.Context, email string) (*domain.User, error)
	CompleteOnboarding(ctx context.Context, username string) error

	PackagePaymentExists(ctx context.Context, sessionID string) (bool, error)
	DomainChargeExists(ctx context.Context, sessionID string) (bool, error)
	RentalExistsByDomain(ctx context.Context, domainName string) (bool, error)
	CreatePackageRegistration(ctx context.Context, reg *domain.PackageRegistration) (*domain.User, error)
	CreateDomainEntitlement(ctx context.Context, ent *domain.DomainEntitlement) (*domain.User, *domain.DomainRental, error)

	AdminStats(ctx context.Context) (*domain.AdminStats, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	UserStats(ctx context.Context, username string) (*domain.UserStats, error)
	RecentSignups(ctx context.Context, since time.Time, limit int) ([]domain.User, error)
	CountSignupsSince(ctx context.Context, since time.Time) (int, error)
	CreateEmailLead(ctx context.Context, email, source string) error
}

// PaymentGateway is the checkout and subscription surface of the payment
// provider. *stripeclient.Client satisfies it.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, p stripeclient.CheckoutParams) (*stripeclient.CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*stripeclient.Session, error)
	CreateDailySubscription(ctx context.Context, customerID string, amountCents int64, metadata map[string]string) (*stripeclient.Subscription, error)
}

// Registrar is the domain registrar surface. *namecheapclient.Client
// satisfies it.
type Registrar interface {
	CheckAvailability(ctx context.Context, domain string) (bool, error)
	Register(ctx context.Context, domain, ownerEmail, ownerName string) (string, error)
	Hold(ctx context.Context, domain string) error
}

// Settings is the slice of configuration the purchase flows read.
type Settings struct {
	BaseURL            string
	SiteOwnerUsername  string
	PromoActive        bool
	PromoPriceCents    int64
	PromotionEndDate   *time.Time
	VerificationSecret string
}

// Metadata keys stamped on checkout sessions at creation and read back,
// post-payment, as the trusted record of what was sold.
const (
	metaPackageID   = "package_id"
	metaPriceCents  = "package_price_cents"
	metaReferrer    = "referrer_username"
	metaDomainName  = "domain_name"
	metaEmail       = "email"
	metaFullName    = "full_name"
	metaPaymentType = "payment_type"
)

// Service orchestrates the package and domain purchase flows.
type Service struct {
	repo      Repository
	gateway   PaymentGateway
	registrar Registrar
	settings  Settings
	now       func() time.Time
}

// NewService creates the purchase orchestrator.
func NewService(repo Repository, gateway PaymentGateway, registrar Registrar, settings Settings) *Service {
	return &Service{
		repo:      repo,
		gateway:   gateway,
		registrar: registrar,
		settings:  settings,
		now:       time.Now,
	}
}

// catalog returns the package catalog under the current promotion settings.
func (s *Service) catalog() []domain.PackageSpec {
	return domain.PackageCatalog(s.settings.PromoActive, s.settings.PromoPriceCents)
}

// pendingReferral resolves the referrer and defers the commission decision
// to the store's serialization point. An unknown or unverified referrer is
// skipped, never an error: the signup always proceeds.
func (s *Service) pendingReferral(ctx context.Context, referrerUsername string, commissionCents int64) *domain.PendingReferral {
	username := domain.NormalizeUsername(referrerUsername)
	if username == "" {
		return nil
	}

	referrer, err := s.repo.FindVerifiedUserByUsername(ctx, username)
	if err != nil {
		log.Printf("Referrer %q not found or unverified, signup proceeds unattributed", username)
		return nil
	}

	siteOwner, err := s.repo.FindUserByUsername(ctx, s.settings.SiteOwnerUsername)
	if err != nil {
		siteOwner = nil
	}

	return &domain.PendingReferral{
		ReferrerID: referrer.ID,
		Decide: func(priorReferrals int) domain.ReferralDecision {
			decision := buildReferralDecision(referrer, priorReferrals, siteOwner, commissionCents)
			if decision.PassedUp {
				metrics.PassUpsTotal.Inc()
			}
			return decision
		},
	}
}

// freedomPassExpiry is the promotion end date when one is configured,
// otherwise seven days from activation.
func (s *Service) freedomPassExpiry() time.Time {
	if s.settings.PromotionEndDate != nil {
		return *s.settings.PromotionEndDate
	}
	return s.now().Add(7 * 24 * time.Hour)
}

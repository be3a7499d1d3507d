package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rizzosai/affiliate-service/internal/domain"
	"github.com/rizzosai/affiliate-service/pkg/stripeclient"
)

// fakeRepo is an in-memory Repository. Writes apply the same decision flow
// the Postgres store does, including the prior-referral count handed to
// PendingReferral.Decide.
type fakeRepo struct {
	users           map[string]*domain.User // by username
	packagePayments map[string]bool         // by session id
	domainCharges   map[string]bool
	rentals         map[string]bool // by domain name
	referralCounts  map[uuid.UUID]int
	decisions       []domain.ReferralDecision
	outbox          []domain.OutboxMessage
	leads           []string

	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:           map[string]*domain.User{},
		packagePayments: map[string]bool{},
		domainCharges:   map[string]bool{},
		rentals:         map[string]bool{},
		referralCounts:  map[uuid.UUID]int{},
	}
}

func (f *fakeRepo) addUser(username string, verified bool) *domain.User {
	u := &domain.User{ID: uuid.New(), Username: username, Email: username + "@example.com",
		FullName: username, EmailVerified: verified, CreatedAt: time.Now()}
	f.users[username] = u
	return u
}

func (f *fakeRepo) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	if u, ok := f.users[username]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRepo) FindVerifiedUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, ok := f.users[username]
	if !ok || !u.EmailVerified {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRepo) FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRepo) MarkEmailVerified(ctx context.Context, email string) (*domain.User, error) {
	u, err := f.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	u.EmailVerified = true
	return u, nil
}

func (f *fakeRepo) CompleteOnboarding(ctx context.Context, username string) error {
	u, ok := f.users[username]
	if !ok {
		return domain.ErrNotFound
	}
	u.OnboardingCompleted = true
	return nil
}

func (f *fakeRepo) PackagePaymentExists(ctx context.Context, sessionID string) (bool, error) {
	return f.packagePayments[sessionID], nil
}

func (f *fakeRepo) DomainChargeExists(ctx context.Context, sessionID string) (bool, error) {
	return f.domainCharges[sessionID], nil
}

func (f *fakeRepo) RentalExistsByDomain(ctx context.Context, domainName string) (bool, error) {
	return f.rentals[domainName], nil
}

func (f *fakeRepo) applyReferral(referredID uuid.UUID, pending *domain.PendingReferral) {
	if pending == nil {
		return
	}
	prior := f.referralCounts[pending.ReferrerID]
	decision := pending.Decide(prior)
	f.referralCounts[pending.ReferrerID] = prior + 1
	f.decisions = append(f.decisions, decision)
	if decision.MarkPassUpUsed {
		for _, u := range f.users {
			if u.ID == decision.ReferrerID {
				u.PassUpUsed = true
			}
		}
	}
}

func (f *fakeRepo) CreatePackageRegistration(ctx context.Context, reg *domain.PackageRegistration) (*domain.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, taken := f.users[reg.User.Username]; taken {
		return nil, domain.ErrConflict
	}
	user := reg.User
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	f.users[user.Username] = &user
	f.packagePayments[reg.Payment.StripeSessionID] = true
	f.applyReferral(user.ID, reg.Referral)
	f.outbox = append(f.outbox, reg.Emails...)
	return &user, nil
}

func (f *fakeRepo) CreateDomainEntitlement(ctx context.Context, ent *domain.DomainEntitlement) (*domain.User, *domain.DomainRental, error) {
	if f.createErr != nil {
		return nil, nil, f.createErr
	}
	user, err := f.FindUserByEmail(ctx, ent.User.Email)
	if errors.Is(err, domain.ErrNotFound) {
		u := ent.User
		u.ID = uuid.New()
		u.CreatedAt = time.Now()
		f.users[u.Username] = &u
		user = &u
	}
	f.domainCharges[ent.Charge.StripeSessionID] = true
	f.rentals[ent.Rental.DomainName] = true
	f.applyReferral(user.ID, ent.Referral)
	f.outbox = append(f.outbox, ent.Emails...)

	rental := ent.Rental
	rental.ID = uuid.New()
	rental.UserID = user.ID
	user.FreedomPassActivated = true
	expiry := ent.FreedomPassExpiry
	user.FreedomPassExpires = &expiry
	return user, &rental, nil
}

func (f *fakeRepo) AdminStats(ctx context.Context) (*domain.AdminStats, error) {
	return &domain.AdminStats{TotalUsers: len(f.users)}, nil
}

func (f *fakeRepo) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return nil, nil
}

func (f *fakeRepo) UserStats(ctx context.Context, username string) (*domain.UserStats, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.UserStats{User: *u}, nil
}

func (f *fakeRepo) RecentSignups(ctx context.Context, since time.Time, limit int) ([]domain.User, error) {
	return nil, nil
}

func (f *fakeRepo) CountSignupsSince(ctx context.Context, since time.Time) (int, error) {
	return 0, nil
}

func (f *fakeRepo) CreateEmailLead(ctx context.Context, email, source string) error {
	f.leads = append(f.leads, email)
	return nil
}

// fakeGateway serves canned sessions keyed by id.
type fakeGateway struct {
	sessions     map[string]*stripeclient.Session
	createdSubs  []string
	subErr       error
	checkoutErr  error
	lastCheckout stripeclient.CheckoutParams
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, p stripeclient.CheckoutParams) (*stripeclient.CheckoutSession, error) {
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	f.lastCheckout = p
	return &stripeclient.CheckoutSession{ID: "cs_new", URL: "https://checkout.example/cs_new"}, nil
}

func (f *fakeGateway) RetrieveSession(ctx context.Context, sessionID string) (*stripeclient.Session, error) {
	if s, ok := f.sessions[sessionID]; ok {
		return s, nil
	}
	return nil, &stripeclient.APIError{StatusCode: 404, Type: "invalid_request_error", Message: "no such session"}
}

func (f *fakeGateway) CreateDailySubscription(ctx context.Context, customerID string, amountCents int64, metadata map[string]string) (*stripeclient.Subscription, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	id := "sub_" + customerID
	f.createdSubs = append(f.createdSubs, id)
	return &stripeclient.Subscription{ID: id}, nil
}

// fakeRegistrar answers availability and records registrations and holds.
type fakeRegistrar struct {
	unavailable map[string]bool
	registered  []string
	held        []string
	registerErr error
	holdErr     error
	checkErr    error
}

func (f *fakeRegistrar) CheckAvailability(ctx context.Context, domainName string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return !f.unavailable[domainName], nil
}

func (f *fakeRegistrar) Register(ctx context.Context, domainName, ownerEmail, ownerName string) (string, error) {
	if f.registerErr != nil {
		return "", f.registerErr
	}
	f.registered = append(f.registered, domainName)
	return "order-123", nil
}

func (f *fakeRegistrar) Hold(ctx context.Context, domainName string) error {
	if f.holdErr != nil {
		return f.holdErr
	}
	f.held = append(f.held, domainName)
	return nil
}

func newTestService(repo *fakeRepo, gateway *fakeGateway, registrar *fakeRegistrar) *Service {
	s := NewService(repo, gateway, registrar, Settings{
		BaseURL:            "https://rizzosai.example",
		SiteOwnerUsername:  "rizzosai",
		PromoActive:        true,
		PromoPriceCents:    2000,
		VerificationSecret: "test-secret",
	})
	s.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	return s
}

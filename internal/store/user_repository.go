/**
 * @description
 * User queries: lookups by the identifiers the purchase and verification
 * flows use, plus the two single-shot state transitions (email verification
 * and onboarding completion).
 */
package store

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/rizzosai/affiliate-service/internal/domain"
)

const userColumns = `id, username, email, full_name, domain_name, package_tier,
	daily_rate_cents, email_verified, pass_up_used, onboarding_completed,
	freedom_pass_activated, freedom_pass_expires, created_at, verified_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.DomainName,
		&u.PackageTier, &u.DailyRateCents, &u.EmailVerified, &u.PassUpUsed,
		&u.OnboardingCompleted, &u.FreedomPassActivated, &u.FreedomPassExpires,
		&u.CreatedAt, &u.VerifiedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}

// FindUserByUsername returns the user with the given (normalized) username.
func (r *PostgresRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRow(ctx, query, username))
}

// FindVerifiedUserByUsername returns the user only when their email is
// verified. Referrer resolution and affiliate links use this form.
func (r *PostgresRepository) FindVerifiedUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 AND email_verified`
	return scanUser(r.db.QueryRow(ctx, query, username))
}

// FindUserByEmail returns the user owning the given email address.
func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// FindUserByID returns the user with the given id.
func (r *PostgresRepository) FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// MarkEmailVerified performs the false->true verification transition. The
// update only fires on the first call; repeats return the already-verified
// user unchanged.
func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, email string) (*domain.User, error) {
	query := `
        UPDATE users
        SET email_verified = TRUE, verified_at = COALESCE(verified_at, NOW())
        WHERE email = $1
        RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		log.Printf("Error marking email %s verified: %v", email, err)
		return nil, err
	}
	return user, nil
}

// CompleteOnboarding flips the onboarding flag for a user.
func (r *PostgresRepository) CompleteOnboarding(ctx context.Context, username string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET onboarding_completed = TRUE WHERE username = $1`, username)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

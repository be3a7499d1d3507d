/**
 * @description
 * Read models for the public and admin dashboards. Earnings attribute a
 * referral edge to its effective commission recipient: the pass-up
 * recipient when the edge was passed up, the referrer otherwise.
 */
package store

import (
	"context"
	"time"

	"github.com/rizzosai/affiliate-service/internal/domain"
)

// AdminStats aggregates the platform-wide counters.
func (r *PostgresRepository) AdminStats(ctx context.Context) (*domain.AdminStats, error) {
	var s domain.AdminStats
	err := r.db.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM users),
            (SELECT COUNT(*) FROM users WHERE email_verified),
            (SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE status = 'completed')
              + (SELECT COALESCE(SUM(amount_cents), 0) FROM payment_charges WHERE status = 'completed'),
            (SELECT COUNT(*) FROM referrals)`).Scan(
		&s.TotalUsers, &s.VerifiedUsers, &s.TotalRevenueCents, &s.ActiveReferrals)
	if err != nil {
		return nil, translateError(err)
	}
	return &s, nil
}

// Leaderboard returns verified affiliates ordered by attributed earnings.
func (r *PostgresRepository) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := r.db.Query(ctx, `
        SELECT u.full_name, u.username, u.package_tier, u.daily_rate_cents,
               (SELECT COUNT(*) FROM referrals r
                WHERE (r.referrer_id = u.id AND NOT r.passed_up) OR r.pass_up_recipient = u.id) AS refs
        FROM users u
        WHERE u.email_verified
        ORDER BY u.daily_rate_cents * GREATEST((SELECT COUNT(*) FROM referrals r
                WHERE (r.referrer_id = u.id AND NOT r.passed_up) OR r.pass_up_recipient = u.id), 1) DESC,
                 u.created_at ASC
        LIMIT $1`, limit)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		var dailyRate int64
		if err := rows.Scan(&e.Name, &e.Username, &e.Tier, &dailyRate, &e.Referrals); err != nil {
			return nil, translateError(err)
		}
		// Every verified affiliate shows at least one unit of earnings.
		refs := e.Referrals
		if refs < 1 {
			refs = 1
		}
		e.EarningsCents = dailyRate * int64(refs)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UserStats builds the per-affiliate dashboard for a verified user.
func (r *PostgresRepository) UserStats(ctx context.Context, username string) (*domain.UserStats, error) {
	user, err := r.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
        SELECT ru.username, ru.full_name, r.created_at, ru.package_tier
        FROM referrals r
        JOIN users ru ON ru.id = r.referred_id
        WHERE (r.referrer_id = $1 AND NOT r.passed_up) OR r.pass_up_recipient = $1
        ORDER BY r.created_at DESC`, user.ID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	stats := &domain.UserStats{User: *user}
	for rows.Next() {
		var ref domain.ReferredUser
		if err := rows.Scan(&ref.Username, &ref.Name, &ref.Joined, &ref.Tier); err != nil {
			return nil, translateError(err)
		}
		stats.Referrals = append(stats.Referrals, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.TotalReferrals = len(stats.Referrals)
	refs := stats.TotalReferrals
	if refs < 1 {
		refs = 1
	}
	stats.EarningsCents = user.DailyRateCents * int64(refs)
	return stats, nil
}

// RecentSignups lists users created since the cutoff, newest first.
func (r *PostgresRepository) RecentSignups(ctx context.Context, since time.Time, limit int) ([]domain.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE created_at >= $1 ORDER BY created_at DESC LIMIT $2`,
		since, limit)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountSignupsSince counts users created since the cutoff.
func (r *PostgresRepository) CountSignupsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE created_at >= $1`, since).Scan(&count)
	return count, translateError(err)
}

// CreateEmailLead records a sales-page email capture, deduplicated per
// address.
func (r *PostgresRepository) CreateEmailLead(ctx context.Context, email, source string) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO email_leads (email, source)
        SELECT $1, $2
        WHERE NOT EXISTS (SELECT 1 FROM email_leads WHERE email = $1)`,
		email, source)
	return translateError(err)
}

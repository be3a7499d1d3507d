/**
 * @description
 * Read models for the public pages and the admin dashboard. The per-user
 * stats endpoint is gated on email verification; the live-signups feed only
 * exposes first names and tiers.
 */
package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rizzosai/affiliate-service/internal/domain"
)

// ErrNotVerified gates the affiliate dashboard until the email is verified.
var ErrNotVerified = errors.New("email not verified")

// Stats returns the affiliate dashboard for a verified user.
func (s *Service) Stats(ctx context.Context, username string) (*domain.UserStats, error) {
	username = domain.NormalizeUsername(username)
	stats, err := s.repo.UserStats(ctx, username)
	if err != nil {
		return nil, err
	}
	if !stats.User.EmailVerified {
		return nil, ErrNotVerified
	}
	return stats, nil
}

// Leaderboard returns the public earnings leaderboard.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.repo.Leaderboard(ctx, limit)
}

// AdminStats returns the platform-wide aggregate counters.
func (s *Service) AdminStats(ctx context.Context) (*domain.AdminStats, error) {
	return s.repo.AdminStats(ctx)
}

// AffiliateByUsername resolves a verified affiliate for referral links.
func (s *Service) AffiliateByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.repo.FindVerifiedUserByUsername(ctx, domain.NormalizeUsername(username))
}

// SignupEntry is one row of the live-signups feed.
type SignupEntry struct {
	Name     string    `json:"name"`
	Tier     string    `json:"tier"`
	JoinedAt time.Time `json:"joined_at"`
}

// LiveSignups is the social-proof feed on the sales pages.
type LiveSignups struct {
	Signups    []SignupEntry `json:"signups"`
	TodayCount int           `json:"today_count"`
}

// RecentSignups returns signups from the last 24 hours plus today's count.
func (s *Service) RecentSignups(ctx context.Context, limit int) (*LiveSignups, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	now := s.now()

	users, err := s.repo.RecentSignups(ctx, now.Add(-24*time.Hour), limit)
	if err != nil {
		return nil, err
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := s.repo.CountSignupsSince(ctx, midnight)
	if err != nil {
		return nil, err
	}

	feed := &LiveSignups{TodayCount: count, Signups: make([]SignupEntry, 0, len(users))}
	for _, u := range users {
		feed.Signups = append(feed.Signups, SignupEntry{
			Name:     firstNameOnly(u.FullName),
			Tier:     u.PackageTier,
			JoinedAt: u.CreatedAt,
		})
	}
	return feed, nil
}

// firstNameOnly reduces a full name to "First L." for the public feed.
func firstNameOnly(fullName string) string {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "Someone"
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + " " + parts[len(parts)-1][:1] + "."
}

package domain

import "time"

// AdminStats is the aggregate view on the admin dashboard.
type AdminStats struct {
	TotalUsers        int   `json:"total_users"`
	VerifiedUsers     int   `json:"verified_users"`
	TotalRevenueCents int64 `json:"total_revenue_cents"`
	ActiveReferrals   int   `json:"active_referrals"`
}

// LeaderboardEntry is one row of the public earnings leaderboard.
type LeaderboardEntry struct {
	Name          string `json:"name"`
	Username      string `json:"username"`
	EarningsCents int64  `json:"earnings_cents"`
	Referrals     int    `json:"referrals"`
	Tier          string `json:"tier"`
}

// ReferredUser is one entry in a user's referral list.
type ReferredUser struct {
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Joined   time.Time `json:"joined"`
	Tier     string    `json:"tier"`
}

// UserStats is the per-affiliate dashboard view.
type UserStats struct {
	User           User           `json:"user"`
	TotalReferrals int            `json:"total_referrals"`
	EarningsCents  int64          `json:"earnings_cents"`
	Referrals      []ReferredUser `json:"referrals"`
}

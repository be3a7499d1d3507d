/**
 * @description
 * This file owns the database connection pool and schema bootstrap. The
 * uniqueness constraints created here are load-bearing: session and invoice
 * ids are the idempotency keys of the whole payment pipeline, and username,
 * email, domain and subscription ids each admit exactly one row.
 */
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool connects to Postgres with pool settings tuned for PgBouncer
// transaction pooling.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 50
	cfg.MinConns = 5
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	// Simple protocol avoids statement cache errors behind PgBouncer.
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	return pgxpool.NewWithConfig(ctx, cfg)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		domain_name TEXT,
		package_tier TEXT NOT NULL,
		daily_rate_cents BIGINT NOT NULL,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		pass_up_used BOOLEAN NOT NULL DEFAULT FALSE,
		onboarding_completed BOOLEAN NOT NULL DEFAULT FALSE,
		freedom_pass_activated BOOLEAN NOT NULL DEFAULT FALSE,
		freedom_pass_expires TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		verified_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id),
		stripe_session_id TEXT NOT NULL UNIQUE,
		amount_cents BIGINT NOT NULL,
		package_tier TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS payment_charges (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id),
		stripe_session_id TEXT NOT NULL UNIQUE,
		amount_cents BIGINT NOT NULL,
		charge_type TEXT NOT NULL DEFAULT 'domain_initial',
		domain_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS referrals (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		referrer_id UUID NOT NULL REFERENCES users(id),
		referred_id UUID NOT NULL UNIQUE REFERENCES users(id),
		referral_order INT NOT NULL,
		passed_up BOOLEAN NOT NULL DEFAULT FALSE,
		pass_up_recipient UUID REFERENCES users(id),
		commission_cents BIGINT NOT NULL DEFAULT 0,
		commission_paid BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_referrals_referrer ON referrals (referrer_id)`,
	`CREATE TABLE IF NOT EXISTS domain_rentals (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id),
		domain_name TEXT NOT NULL UNIQUE,
		registrar_status TEXT NOT NULL DEFAULT 'pending',
		rental_status TEXT NOT NULL DEFAULT 'active',
		registrar_order_id TEXT,
		stripe_subscription_id TEXT NOT NULL UNIQUE,
		rent_started_at TIMESTAMPTZ,
		rent_expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS subscription_charges (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id),
		domain_rental_id UUID NOT NULL REFERENCES domain_rentals(id),
		stripe_subscription_id TEXT NOT NULL,
		stripe_invoice_id TEXT NOT NULL UNIQUE,
		amount_cents BIGINT NOT NULL,
		billing_period_start TIMESTAMPTZ,
		billing_period_end TIMESTAMPTZ,
		status TEXT NOT NULL,
		payment_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subscription_charges_sub ON subscription_charges (stripe_subscription_id)`,
	`CREATE TABLE IF NOT EXISTS email_leads (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT 'sales_page',
		converted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_email_leads_email ON email_leads (email)`,
	`CREATE TABLE IF NOT EXISTS email_outbox (
		id BIGSERIAL PRIMARY KEY,
		exchange TEXT NOT NULL,
		routing_key TEXT NOT NULL,
		payload JSONB NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INT NOT NULL DEFAULT 0,
		next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_email_outbox_pending ON email_outbox (status, next_attempt_at)`,
}

// Migrate creates the schema when it does not exist yet.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

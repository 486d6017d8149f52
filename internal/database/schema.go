package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied at startup. The unique constraints on email and
// verification_token back the conflict handling in the repository.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                 TEXT PRIMARY KEY,
	email              TEXT NOT NULL UNIQUE,
	password_hash      TEXT NOT NULL,
	subscription       TEXT NOT NULL DEFAULT 'starter',
	token              TEXT,
	avatar_url         TEXT NOT NULL DEFAULT '',
	verified           BOOLEAN NOT NULL DEFAULT FALSE,
	verification_token TEXT UNIQUE,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT users_subscription_check
		CHECK (subscription IN ('starter', 'pro', 'business')),
	CONSTRAINT users_verification_token_check
		CHECK (verified OR verification_token IS NOT NULL)
);
`

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

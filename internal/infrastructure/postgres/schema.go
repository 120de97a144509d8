package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	account_id   BIGSERIAL PRIMARY KEY,
	email        VARCHAR(255) NOT NULL UNIQUE,
	contract_id  VARCHAR(64) UNIQUE,
	status       VARCHAR(32) NOT NULL,
	last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS cards (
	card_id        BIGSERIAL PRIMARY KEY,
	rfid_uid       VARCHAR(100) NOT NULL UNIQUE,
	visible_number VARCHAR(100) NOT NULL UNIQUE,
	contract_id    VARCHAR(64),
	status         VARCHAR(32) NOT NULL,
	account_id     BIGINT REFERENCES accounts (account_id),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_updated   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_cards_last_updated ON cards (last_updated);

CREATE TABLE IF NOT EXISTS domain_events (
	event_id       VARCHAR(64) PRIMARY KEY,
	event_type     VARCHAR(255) NOT NULL,
	aggregate_type VARCHAR(64) NOT NULL,
	aggregate_id   BIGINT NOT NULL,
	payload        JSONB NOT NULL,
	"timestamp"    TIMESTAMPTZ NOT NULL,
	status         VARCHAR(32) NOT NULL,
	version        BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_domain_events_status_timestamp ON domain_events (status, "timestamp");
`

// EnsureSchema creates the tables this service needs if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
    id                       UUID PRIMARY KEY,
    momo_reference_id        TEXT NOT NULL UNIQUE,
    external_id              TEXT NOT NULL,
    amount                   NUMERIC(12, 2) NOT NULL CHECK (amount > 0),
    currency                 VARCHAR(10) NOT NULL DEFAULT 'GHS',
    payer_phone_number       VARCHAR(20) NOT NULL,
    status                   VARCHAR(16) NOT NULL,
    financial_transaction_id TEXT,
    payer_message            TEXT NOT NULL DEFAULT '',
    payee_note               TEXT NOT NULL DEFAULT '',
    created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT transactions_financial_id_iff_successful
        CHECK ((status = 'SUCCESSFUL') = (financial_transaction_id IS NOT NULL))
);
CREATE INDEX IF NOT EXISTS transactions_external_id_idx ON transactions (external_id);
CREATE INDEX IF NOT EXISTS transactions_status_created_idx ON transactions (status, created_at);
`

// EnsureSchema creates the transactions table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Shared, tenant-agnostic tables. Backup artifacts themselves live in object
// storage; these rows are the durable record of attempts and schedules.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS tenants (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    tier_id    TEXT NOT NULL DEFAULT 'basic',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS backup_jobs (
    id            BIGSERIAL PRIMARY KEY,
    tenant_id     TEXT NOT NULL REFERENCES tenants(id),
    kind          TEXT NOT NULL DEFAULT 'full',
    storage_tier  TEXT NOT NULL DEFAULT 'standard',
    status        TEXT NOT NULL DEFAULT 'pending',
    size_bytes    BIGINT,
    location      TEXT,
    error_message TEXT,
    started_at    TIMESTAMPTZ,
    completed_at  TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_backup_jobs_tenant_created
    ON backup_jobs (tenant_id, created_at DESC);

CREATE TABLE IF NOT EXISTS backup_schedules (
    id           BIGSERIAL PRIMARY KEY,
    tenant_id    TEXT NOT NULL REFERENCES tenants(id),
    cadence      TEXT NOT NULL,
    storage_tier TEXT NOT NULL DEFAULT 'standard',
    active       BOOLEAN NOT NULL DEFAULT true,
    last_run_at  TIMESTAMPTZ,
    next_run_at  TIMESTAMPTZ NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (tenant_id, cadence)
);

CREATE INDEX IF NOT EXISTS idx_backup_schedules_due
    ON backup_schedules (next_run_at) WHERE active;
`

// EnsureSchema applies the subsystem's shared-table DDL. Statements are
// idempotent, so repeated startup application is safe.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to apply backup subsystem schema: %w", err)
	}
	return nil
}

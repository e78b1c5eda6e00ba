package database

import (
	"context"
	"database/sql"
	"fmt"

	"pg-tenant-backup/internal/logging"
)

// TenantCatalog answers tenant existence questions and scopes connections to
// a tenant's schema for the duration of a single operation.
type TenantCatalog struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewTenantCatalog creates a new tenant catalog backed by the shared pool
func NewTenantCatalog(db *sql.DB, logger *logging.Logger) *TenantCatalog {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &TenantCatalog{db: db, logger: logger}
}

// TenantExists reports whether the tenant is registered in the tenants table
func (tc *TenantCatalog) TenantExists(ctx context.Context, tenantID string) (bool, error) {
	var exists bool
	err := tc.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`, tenantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query tenant %s: %w", tenantID, err)
	}
	return exists, nil
}

// SchemaExists reports whether the tenant's schema is present in the catalog.
// The check is a parameterized query against pg_namespace; it never
// interpolates the name.
func (tc *TenantCatalog) SchemaExists(ctx context.Context, schemaName string) (bool, error) {
	if err := ValidateSchemaName(schemaName); err != nil {
		return false, err
	}

	var exists bool
	err := tc.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_catalog.pg_namespace WHERE nspname = $1)`,
		schemaName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query schema catalog for %s: %w", schemaName, err)
	}
	return exists, nil
}

// WithSchema pins one connection from the pool, sets its search_path to the
// tenant's schema, runs fn, and resets the search_path before releasing the
// connection. The schema selection never outlives the operation.
func (tc *TenantCatalog) WithSchema(ctx context.Context, schemaName string, fn func(conn *sql.Conn) error) error {
	if err := ValidateSchemaName(schemaName); err != nil {
		return err
	}

	conn, err := tc.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	// SET does not accept bind parameters; the identifier has been
	// allow-listed above and is quoted here.
	if _, err := conn.ExecContext(ctx, "SET search_path TO "+QuoteIdentifier(schemaName)); err != nil {
		return fmt.Errorf("failed to set search_path for %s: %w", schemaName, err)
	}

	fnErr := fn(conn)

	if _, err := conn.ExecContext(ctx, "RESET search_path"); err != nil {
		tc.logger.WithField("schema", schemaName).Warnf("failed to reset search_path: %v", err)
	}

	return fnErr
}

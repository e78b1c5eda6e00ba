package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"pg-tenant-backup/internal/database"
	"pg-tenant-backup/internal/logging"
)

// PgDumpDumper extracts one tenant schema with pg_dump. The schema name is
// allow-listed before it reaches the command line, and existence is checked
// against pg_namespace first because pg_dump's exit codes alone cannot
// distinguish a missing schema from other failures.
type PgDumpDumper struct {
	dbConfig   database.DatabaseConfig
	catalog    *database.TenantCatalog
	pgDumpPath string
	logger     *logging.Logger
}

// NewPgDumpDumper creates a dump engine for the configured database
func NewPgDumpDumper(dbConfig database.DatabaseConfig, catalog *database.TenantCatalog, pgDumpPath string, logger *logging.Logger) *PgDumpDumper {
	if pgDumpPath == "" {
		pgDumpPath = "pg_dump"
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &PgDumpDumper{
		dbConfig:   dbConfig,
		catalog:    catalog,
		pgDumpPath: pgDumpPath,
		logger:     logger,
	}
}

// SchemaExists reports whether the tenant schema is present in the catalog
func (d *PgDumpDumper) SchemaExists(ctx context.Context, schemaName string) (bool, error) {
	return d.catalog.SchemaExists(ctx, schemaName)
}

// Dump writes a plain-format dump of exactly one tenant schema to destPath.
// Ownership and privilege statements are excluded so the dump restores
// cleanly in other environments. pg_dump warnings on stderr are logged and
// tolerated; a non-zero exit is a dump failure carrying the stderr tail.
func (d *PgDumpDumper) Dump(ctx context.Context, schemaName, destPath string) error {
	if err := database.ValidateSchemaName(schemaName); err != nil {
		return NewValidationError("unsafe schema name", err)
	}

	exists, err := d.catalog.SchemaExists(ctx, schemaName)
	if err != nil {
		return NewDatabaseError("failed to check schema catalog", err)
	}
	if !exists {
		return NewSchemaNotFoundError(schemaName)
	}

	cmd := exec.CommandContext(
		ctx,
		d.pgDumpPath,
		"--host", d.dbConfig.Host,
		"--port", strconv.Itoa(d.dbConfig.Port),
		"--username", d.dbConfig.Username,
		"--dbname", d.dbConfig.Database,
		"--schema", schemaName,
		"--format", "plain",
		"--no-owner",
		"--no-privileges",
		"--file", destPath,
	)
	// pg_dump reads the password from the environment, never from argv.
	cmd.Env = append(os.Environ(), "PGPASSWORD="+d.dbConfig.Password)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if msgs := stderr.String(); msgs != "" && runErr == nil {
		// Non-fatal warnings (deprecated options, circular FK notices...)
		d.logger.WithFields(map[string]interface{}{
			"schema": schemaName,
			"stderr": truncate(msgs, 500),
		}).Warn("pg_dump reported warnings")
	}

	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return NewTimeoutError("dump", ctx.Err())
		}
		return NewDumpError(
			fmt.Sprintf("pg_dump failed for schema %s: %s", schemaName, truncate(stderr.String(), 500)),
			runErr)
	}

	return nil
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

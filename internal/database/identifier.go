package database

import (
	"fmt"
	"regexp"
	"strings"
)

// Tenant schema names can originate from user-supplied tenant names, so they
// are allow-listed before reaching any constructed SQL or external command.
var schemaNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// maxIdentifierLength is the Postgres NAMEDATALEN-1 limit
const maxIdentifierLength = 63

// ValidateSchemaName checks a tenant schema name against a safe identifier
// allow-list. It rejects anything that could alter the meaning of a
// search_path assignment or a pg_dump argument.
func ValidateSchemaName(name string) error {
	if name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("schema name exceeds %d bytes: %q", maxIdentifierLength, name)
	}
	if !schemaNamePattern.MatchString(name) {
		return fmt.Errorf("schema name contains characters outside [a-z0-9_]: %q", name)
	}
	if strings.HasPrefix(name, "pg_") {
		return fmt.Errorf("schema name uses reserved prefix pg_: %q", name)
	}
	return nil
}

// QuoteIdentifier wraps an already-validated identifier in double quotes for
// use in statements that cannot take bind parameters (SET search_path).
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSchemaNameAccepted(t *testing.T) {
	valid := []string{
		"acme",
		"acme_corp",
		"_internal",
		"tenant_42",
		"a",
		strings.Repeat("a", 63),
	}

	for _, name := range valid {
		assert.NoError(t, ValidateSchemaName(name), "expected %q to be accepted", name)
	}
}

func TestValidateSchemaNameRejected(t *testing.T) {
	tests := []struct {
		name   string
		schema string
	}{
		{"empty", ""},
		{"too long", strings.Repeat("a", 64)},
		{"uppercase", "Acme"},
		{"leading digit", "1acme"},
		{"hyphen", "acme-corp"},
		{"space", "acme corp"},
		{"dot", "public.acme"},
		{"reserved prefix", "pg_toast"},
		{"semicolon injection", "acme; DROP SCHEMA public CASCADE"},
		{"quote injection", `acme"` + `, public`},
		{"comment injection", "acme--"},
		{"shell metacharacter", "acme$(rm -rf /)"},
		{"search path smuggling", "acme,public"},
		{"unicode", "acmé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateSchemaName(tt.schema))
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"acme"`, QuoteIdentifier("acme"))
	assert.Equal(t, `"tenant_42"`, QuoteIdentifier("tenant_42"))
	// Embedded quotes are doubled, never left to split the identifier.
	assert.Equal(t, `"ac""me"`, QuoteIdentifier(`ac"me`))
}

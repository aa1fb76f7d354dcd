package schema

import (
	"fmt"
	"strings"
)

// SchemaValidationError reports a payload the mapper could not normalize
type SchemaValidationError struct {
	Field      Field
	Candidates []string
	Reason     string
}

func (e *SchemaValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("schema validation failed for %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("schema validation failed for %s: none of [%s] present", e.Field, strings.Join(e.Candidates, ", "))
}

func missing(t AliasTable, field Field) error {
	return &SchemaValidationError{Field: field, Candidates: t.Candidates(field)}
}

func invalid(field Field, format string, args ...any) error {
	return &SchemaValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

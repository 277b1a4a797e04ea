package util

import (
	"fmt"
	"strings"
)

// QueryFilter is a single field = value condition
type QueryFilter struct {
	Field string
	Value string
}

// ParseQueryString parses "field|value" pairs separated by commas.
func ParseQueryString(queryStr string) ([]QueryFilter, error) {
	if queryStr == "" {
		return nil, nil
	}

	var filters []QueryFilter

	for _, pair := range strings.Split(queryStr, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		parts := strings.Split(pair, "|")
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid query format: %s (expected field|value)", pair)
		}

		filters = append(filters, QueryFilter{Field: parts[0], Value: parts[1]})
	}

	return filters, nil
}

// ValidateFilterFields validates that all filter fields are in the allowed set
func ValidateFilterFields(filters []QueryFilter, allowedFields []string) error {
	allowed := make(map[string]bool)
	for _, f := range allowedFields {
		allowed[f] = true
	}

	seen := make(map[string]bool)
	for _, filter := range filters {
		if !allowed[filter.Field] {
			return fmt.Errorf("invalid query field: %s (valid fields: %s)", filter.Field, strings.Join(allowedFields, ", "))
		}
		if seen[filter.Field] {
			return fmt.Errorf("duplicate query field: %s", filter.Field)
		}
		seen[filter.Field] = true
	}

	return nil
}

// Lookup returns the value filtered on for field, if any.
func Lookup(filters []QueryFilter, field string) (string, bool) {
	for _, f := range filters {
		if f.Field == field {
			return f.Value, true
		}
	}
	return "", false
}

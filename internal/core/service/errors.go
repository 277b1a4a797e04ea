package service

import (
	"strings"

	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/ortaieb/a-hunt-game/internal/observability"
)

const (
	MinPasswordLength = 8
	// bcrypt only hashes the first 72 bytes and refuses longer input.
	MaxPasswordBytes = 72
)

// requireField rejects blank input with a validation error naming the field.
func requireField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return domain.Validation("%s is required", field).WithDetail("field", field)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return domain.Validation("password must be at least %d characters", MinPasswordLength).
			WithDetail("field", "password")
	}
	if len(password) > MaxPasswordBytes {
		return domain.Validation("password must be at most %d bytes", MaxPasswordBytes).
			WithDetail("field", "password")
	}
	return nil
}

// validateRoles accepts only the roles the game knows about, so a typo such
// as "admin" is rejected at write time instead of silently granting nothing.
func validateRoles(roles []string) error {
	if len(roles) == 0 {
		return domain.Validation("at least one role is required").WithDetail("field", "roles")
	}
	seen := make(map[string]bool, len(roles))
	for _, r := range roles {
		if !domain.KnownRole(r) {
			return domain.Validation("unknown role: %s", r).WithDetail("field", "roles")
		}
		if seen[r] {
			return domain.Validation("duplicate role: %s", r).WithDetail("field", "roles")
		}
		seen[r] = true
	}
	return nil
}

// recordWrite counts a bitemporal write. Conflicts are reported apart from
// other failures since they are expected under contention.
func recordWrite(m *observability.Metrics, entity, op string, err error) {
	if m == nil {
		return
	}
	outcome := observability.Outcome(err)
	if domain.IsKind(err, domain.KindConflict) {
		outcome = "conflict"
	}
	m.VersionWritesTotal.WithLabelValues(entity, op, outcome).Inc()
}

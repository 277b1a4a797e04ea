package service

import "github.com/ortaieb/a-hunt-game/internal/core/domain"

// RequireRole is the authorization gate. It touches nothing but its
// arguments: the match is literal, with no hierarchy or prefix rules.
func RequireRole(roles []string, required string) error {
	for _, r := range roles {
		if r == required {
			return nil
		}
	}
	return domain.Forbidden(domain.MsgInsufficientPermissions)
}

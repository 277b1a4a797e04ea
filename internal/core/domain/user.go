package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin  = "game.admin"
	RolePlayer = "game.player"
)

// UserPayload is the mutable part of a user version.
type UserPayload struct {
	PasswordHash string   // bcrypt hashed
	Nickname     string
	Roles        []string // ordered as granted
}

type User struct {
	ID       string // row identity, one per version
	Username string // natural key
	UserPayload
	Period
}

func NewUser(username, passwordHash, nickname string, roles []string) *User {
	return &User{
		ID:       uuid.New().String(),
		Username: username,
		UserPayload: UserPayload{
			PasswordHash: passwordHash,
			Nickname:     nickname,
			Roles:        append([]string(nil), roles...),
		},
		Period: Period{ValidFrom: time.Now().UTC()},
	}
}

// KnownRole reports whether role is one the game grants.
func KnownRole(role string) bool {
	return role == RoleAdmin || role == RolePlayer
}

// HasRole is a literal membership check; roles carry no hierarchy.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

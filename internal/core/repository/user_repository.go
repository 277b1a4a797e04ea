package repository

import (
	"context"
	"time"

	"github.com/ortaieb/a-hunt-game/internal/core/domain"
)

type UserFilter struct {
	Role *string
}

// UserRepository is the bitemporal store for users, keyed by username.
// Lookups without a point in time always mean the active row.
type UserRepository interface {
	FindActive(ctx context.Context, username string) (*domain.User, error)
	FindAsOf(ctx context.Context, username string, at time.Time) (*domain.User, error)
	InsertVersion(ctx context.Context, user *domain.User) error
	Supersede(ctx context.Context, username string, payload domain.UserPayload) (*domain.User, error)
	Close(ctx context.Context, username string) error
	ListActive(ctx context.Context, filter UserFilter) ([]*domain.User, error)
	History(ctx context.Context, username string) ([]*domain.User, error)
}

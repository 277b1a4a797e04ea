package repository

import (
	"context"
	"time"

	"github.com/ortaieb/a-hunt-game/internal/core/domain"
)

// ChallengeFilter narrows active challenges. The start window is half-open:
// StartsFrom is inclusive, StartsBefore exclusive; either bound may be nil.
type ChallengeFilter struct {
	Moderator    *string
	StartsFrom   *time.Time
	StartsBefore *time.Time
}

type ChallengeRepository interface {
	FindActive(ctx context.Context, challengeID string) (*domain.Challenge, error)
	InsertVersion(ctx context.Context, challenge *domain.Challenge) error
	Supersede(ctx context.Context, challengeID string, payload domain.ChallengePayload) (*domain.Challenge, error)
	Close(ctx context.Context, challengeID string) error
	ListActive(ctx context.Context, filter ChallengeFilter) ([]*domain.Challenge, error)
	History(ctx context.Context, challengeID string) ([]*domain.Challenge, error)

	// ListActiveStarts returns the (challenge_id, start_time) projection of
	// every active challenge; it backs the scheduling registry.
	ListActiveStarts(ctx context.Context) ([]domain.ChallengeStart, error)
}

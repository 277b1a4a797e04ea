package repository

import (
	"context"
	"time"

	"github.com/ortaieb/a-hunt-game/internal/core/domain"
)

type ParticipantFilter struct {
	ChallengeID *string
	Username    *string
	State       *domain.ParticipantState
}

type ParticipantRepository interface {
	FindActive(ctx context.Context, key domain.ParticipantKey) (*domain.ChallengeParticipant, error)
	FindAsOf(ctx context.Context, key domain.ParticipantKey, at time.Time) (*domain.ChallengeParticipant, error)
	InsertVersion(ctx context.Context, p *domain.ChallengeParticipant) error
	Supersede(ctx context.Context, key domain.ParticipantKey, payload domain.ParticipantPayload) (*domain.ChallengeParticipant, error)
	Close(ctx context.Context, key domain.ParticipantKey) error
	ListActive(ctx context.Context, filter ParticipantFilter) ([]*domain.ChallengeParticipant, error)
	History(ctx context.Context, key domain.ParticipantKey) ([]*domain.ChallengeParticipant, error)
}

package service

import (
	"context"
	"time"

	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/ortaieb/a-hunt-game/internal/core/repository"
	"github.com/ortaieb/a-hunt-game/internal/observability"
	"github.com/sirupsen/logrus"
)

// ParticipantService manages invitations. State transitions are owned by
// challenge logic; here any known state may follow any other.
type ParticipantService struct {
	participantRepo repository.ParticipantRepository
	challengeRepo   repository.ChallengeRepository
	userRepo        repository.UserRepository
	logger          *logrus.Logger
	metrics         *observability.Metrics
}

func NewParticipantService(
	participantRepo repository.ParticipantRepository,
	challengeRepo repository.ChallengeRepository,
	userRepo repository.UserRepository,
	logger *logrus.Logger,
	metrics *observability.Metrics,
) *ParticipantService {
	return &ParticipantService{
		participantRepo: participantRepo,
		challengeRepo:   challengeRepo,
		userRepo:        userRepo,
		logger:          observability.OrDefault(logger),
		metrics:         metrics,
	}
}

// Invite adds an active user to an active challenge in the PENDING state.
// An empty name defaults to the user's nickname.
func (s *ParticipantService) Invite(ctx context.Context, challengeID, username, name string) (*domain.ChallengeParticipant, error) {
	if err := requireField("username", username); err != nil {
		return nil, err
	}
	if _, err := s.challengeRepo.FindActive(ctx, challengeID); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindActive(ctx, username)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = user.Nickname
	}

	p := domain.NewParticipant(challengeID, username, name)
	err = s.participantRepo.InsertVersion(ctx, p)
	recordWrite(s.metrics, "participant", "insert", err)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"challenge_id": challengeID,
		"username":     username,
	}).Info("participant invited")
	return p, nil
}

// UpdateState supersedes the participant with a new state and optionally a
// new display name.
func (s *ParticipantService) UpdateState(ctx context.Context, key domain.ParticipantKey, state domain.ParticipantState, name *string) (*domain.ChallengeParticipant, error) {
	if !state.Valid() {
		return nil, domain.Validation("unknown participant state: %s", state).WithDetail("field", "state")
	}

	current, err := s.participantRepo.FindActive(ctx, key)
	if err != nil {
		return nil, err
	}

	payload := current.ParticipantPayload
	payload.State = state
	if name != nil {
		if err := requireField("participant_name", *name); err != nil {
			return nil, err
		}
		payload.ParticipantName = *name
	}

	p, err := s.participantRepo.Supersede(ctx, key, payload)
	recordWrite(s.metrics, "participant", "supersede", err)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"challenge_id": key.ChallengeID,
		"username":     key.Username,
		"state":        state,
	}).Info("participant updated")
	return p, nil
}

func (s *ParticipantService) Remove(ctx context.Context, key domain.ParticipantKey) error {
	err := s.participantRepo.Close(ctx, key)
	recordWrite(s.metrics, "participant", "close", err)
	return err
}

func (s *ParticipantService) Get(ctx context.Context, key domain.ParticipantKey) (*domain.ChallengeParticipant, error) {
	return s.participantRepo.FindActive(ctx, key)
}

func (s *ParticipantService) AsOf(ctx context.Context, key domain.ParticipantKey, at time.Time) (*domain.ChallengeParticipant, error) {
	return s.participantRepo.FindAsOf(ctx, key, at)
}

func (s *ParticipantService) List(ctx context.Context, filter repository.ParticipantFilter) ([]*domain.ChallengeParticipant, error) {
	return s.participantRepo.ListActive(ctx, filter)
}

func (s *ParticipantService) History(ctx context.Context, key domain.ParticipantKey) ([]*domain.ChallengeParticipant, error) {
	versions, err := s.participantRepo.History(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, domain.NotFound("participant not found: %s/%s", key.ChallengeID, key.Username)
	}
	return versions, nil
}

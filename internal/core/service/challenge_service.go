package service

import (
	"context"
	"time"

	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/ortaieb/a-hunt-game/internal/core/repository"
	"github.com/ortaieb/a-hunt-game/internal/observability"
	"github.com/sirupsen/logrus"
)

type ChallengeInput struct {
	Name        string
	Description string
	StartTime   time.Time
	Moderator   string
}

func (in ChallengeInput) validate() error {
	if err := requireField("name", in.Name); err != nil {
		return err
	}
	if err := requireField("moderator", in.Moderator); err != nil {
		return err
	}
	if in.StartTime.IsZero() {
		return domain.Validation("start_time is required").WithDetail("field", "start_time")
	}
	return nil
}

func (in ChallengeInput) payload() domain.ChallengePayload {
	return domain.ChallengePayload{
		Name:        in.Name,
		Description: in.Description,
		StartTime:   in.StartTime.UTC(),
		Moderator:   in.Moderator,
	}
}

// ChallengeService keeps challenge rows and the scheduling registry in step.
// A failed registry update never fails the write; the periodic resync
// repairs it.
type ChallengeService struct {
	challengeRepo repository.ChallengeRepository
	userRepo      repository.UserRepository
	registry      *ChallengeRegistry
	logger        *logrus.Logger
	metrics       *observability.Metrics
}

func NewChallengeService(
	challengeRepo repository.ChallengeRepository,
	userRepo repository.UserRepository,
	registry *ChallengeRegistry,
	logger *logrus.Logger,
	metrics *observability.Metrics,
) *ChallengeService {
	return &ChallengeService{
		challengeRepo: challengeRepo,
		userRepo:      userRepo,
		registry:      registry,
		logger:        observability.OrDefault(logger),
		metrics:       metrics,
	}
}

func (s *ChallengeService) Create(ctx context.Context, in ChallengeInput) (*domain.Challenge, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.requireModerator(ctx, in.Moderator); err != nil {
		return nil, err
	}

	challenge := domain.NewChallenge(in.payload())
	err := s.challengeRepo.InsertVersion(ctx, challenge)
	recordWrite(s.metrics, "challenge", "insert", err)
	if err != nil {
		return nil, err
	}

	s.registry.Upsert(challenge.ChallengeID, challenge.StartTime)
	s.logger.WithFields(logrus.Fields{
		"challenge_id": challenge.ChallengeID,
		"start_time":   challenge.StartTime,
	}).Info("challenge created")
	return challenge, nil
}

func (s *ChallengeService) Update(ctx context.Context, challengeID string, in ChallengeInput) (*domain.Challenge, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.requireModerator(ctx, in.Moderator); err != nil {
		return nil, err
	}

	challenge, err := s.challengeRepo.Supersede(ctx, challengeID, in.payload())
	recordWrite(s.metrics, "challenge", "supersede", err)
	if err != nil {
		return nil, err
	}

	s.registry.Upsert(challenge.ChallengeID, challenge.StartTime)
	s.logger.WithField("challenge_id", challengeID).Info("challenge updated")
	return challenge, nil
}

func (s *ChallengeService) Delete(ctx context.Context, challengeID string) error {
	err := s.challengeRepo.Close(ctx, challengeID)
	recordWrite(s.metrics, "challenge", "close", err)
	if err != nil {
		return err
	}

	s.registry.Delete(challengeID)
	s.logger.WithField("challenge_id", challengeID).Info("challenge deleted")
	return nil
}

func (s *ChallengeService) Get(ctx context.Context, challengeID string) (*domain.Challenge, error) {
	return s.challengeRepo.FindActive(ctx, challengeID)
}

// List returns active challenges ordered by start time.
func (s *ChallengeService) List(ctx context.Context, filter repository.ChallengeFilter) ([]*domain.Challenge, error) {
	if filter.StartsFrom != nil && filter.StartsBefore != nil && !filter.StartsBefore.After(*filter.StartsFrom) {
		return nil, domain.Validation("starts_before must be after starts_from").WithDetail("field", "starts_before")
	}
	return s.challengeRepo.ListActive(ctx, filter)
}

func (s *ChallengeService) History(ctx context.Context, challengeID string) ([]*domain.Challenge, error) {
	versions, err := s.challengeRepo.History(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, domain.NotFound("challenge not found: %s", challengeID)
	}
	return versions, nil
}

// Registry exposes the scheduling registry to read-only callers.
func (s *ChallengeService) Registry() *ChallengeRegistry {
	return s.registry
}

func (s *ChallengeService) requireModerator(ctx context.Context, username string) error {
	if _, err := s.userRepo.FindActive(ctx, username); err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return domain.Validation("moderator is not an active user: %s", username).WithDetail("field", "moderator")
		}
		return err
	}
	return nil
}

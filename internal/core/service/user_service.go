package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/ortaieb/a-hunt-game/internal/core/repository"
	"github.com/ortaieb/a-hunt-game/internal/observability"
	"github.com/sirupsen/logrus"
)

type CreateUserInput struct {
	Username string
	Password string
	Nickname string
	Roles    []string
}

// ProfileUpdate carries the fields a user may change about themselves.
// Nil fields are left as they are.
type ProfileUpdate struct {
	Nickname *string
	Password *string
}

type UserService struct {
	userRepo repository.UserRepository
	auth     *AuthService
	logger   *logrus.Logger
	metrics  *observability.Metrics
}

func NewUserService(userRepo repository.UserRepository, auth *AuthService, logger *logrus.Logger, metrics *observability.Metrics) *UserService {
	return &UserService{
		userRepo: userRepo,
		auth:     auth,
		logger:   observability.OrDefault(logger),
		metrics:  metrics,
	}
}

// Register creates a player account.
func (s *UserService) Register(ctx context.Context, username, password, nickname string) (*domain.User, error) {
	return s.Create(ctx, CreateUserInput{
		Username: username,
		Password: password,
		Nickname: nickname,
		Roles:    []string{domain.RolePlayer},
	})
}

// Create inserts the first version of a user with the given roles.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	if err := requireField("username", in.Username); err != nil {
		return nil, err
	}
	if err := requireField("nickname", in.Nickname); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := validateRoles(in.Roles); err != nil {
		return nil, err
	}

	hash, err := s.auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := domain.NewUser(in.Username, hash, in.Nickname, in.Roles)
	err = s.userRepo.InsertVersion(ctx, user)
	recordWrite(s.metrics, "user", "insert", err)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"username": user.Username,
		"roles":    user.Roles,
	}).Info("user created")
	return user, nil
}

func (s *UserService) Get(ctx context.Context, username string) (*domain.User, error) {
	return s.userRepo.FindActive(ctx, username)
}

func (s *UserService) List(ctx context.Context, filter repository.UserFilter) ([]*domain.User, error) {
	return s.userRepo.ListActive(ctx, filter)
}

func (s *UserService) History(ctx context.Context, username string) ([]*domain.User, error) {
	versions, err := s.userRepo.History(ctx, username)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, domain.NotFound("user not found: %s", username)
	}
	return versions, nil
}

func (s *UserService) AsOf(ctx context.Context, username string, at time.Time) (*domain.User, error) {
	return s.userRepo.FindAsOf(ctx, username, at)
}

// UpdateProfile supersedes the active version with a new nickname and/or
// password. Roles are carried over unchanged.
func (s *UserService) UpdateProfile(ctx context.Context, username string, update ProfileUpdate) (*domain.User, error) {
	if update.Nickname == nil && update.Password == nil {
		return nil, domain.Validation("nothing to update")
	}

	current, err := s.userRepo.FindActive(ctx, username)
	if err != nil {
		return nil, err
	}

	payload := current.UserPayload
	if update.Nickname != nil {
		if err := requireField("nickname", *update.Nickname); err != nil {
			return nil, err
		}
		payload.Nickname = *update.Nickname
	}
	if update.Password != nil {
		if err := validatePassword(*update.Password); err != nil {
			return nil, err
		}
		hash, err := s.auth.HashPassword(*update.Password)
		if err != nil {
			return nil, err
		}
		payload.PasswordHash = hash
	}

	return s.supersede(ctx, username, payload, "profile")
}

// SetRoles replaces the user's role list.
func (s *UserService) SetRoles(ctx context.Context, username string, roles []string) (*domain.User, error) {
	if err := validateRoles(roles); err != nil {
		return nil, err
	}

	current, err := s.userRepo.FindActive(ctx, username)
	if err != nil {
		return nil, err
	}

	payload := current.UserPayload
	payload.Roles = append([]string(nil), roles...)
	return s.supersede(ctx, username, payload, "roles")
}

func (s *UserService) supersede(ctx context.Context, username string, payload domain.UserPayload, what string) (*domain.User, error) {
	user, err := s.userRepo.Supersede(ctx, username, payload)
	recordWrite(s.metrics, "user", "supersede", err)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", what, err)
	}

	s.logger.WithFields(logrus.Fields{
		"username": username,
		"change":   what,
	}).Info("user updated")
	return user, nil
}

// Remove closes the active version; history is kept.
func (s *UserService) Remove(ctx context.Context, username string) error {
	err := s.userRepo.Close(ctx, username)
	recordWrite(s.metrics, "user", "close", err)
	if err != nil {
		return err
	}

	s.logger.WithField("username", username).Info("user removed")
	return nil
}

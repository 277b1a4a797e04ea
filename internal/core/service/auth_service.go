package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/ortaieb/a-hunt-game/internal/core/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenIssuer          = "https://a-hunt-game/issuer"
	TokenType            = "Bearer"
	DefaultBcryptCost    = 10
	DefaultTokenLifetime = time.Hour
)

// AuthConfig is the credential engine's fixed configuration. It is handed to
// NewAuthService once and never changes afterwards.
type AuthConfig struct {
	Secret        string
	Algorithm     string // HS256, HS384 or HS512
	TokenLifetime time.Duration
	BcryptCost    int
}

// Identity is what a verified token says about its bearer.
type Identity struct {
	Username string   `json:"username"`
	Nickname string   `json:"nickname"`
	Roles    []string `json:"roles"`
}

func (i *Identity) HasRole(role string) bool {
	return RequireRole(i.Roles, role) == nil
}

type IssuedToken struct {
	Token     string
	ExpiresIn int64 // seconds
	ExpiresAt time.Time
	TokenType string
}

// TokenClaims represents JWT claims
type TokenClaims struct {
	Upn      string   `json:"upn"`
	Nickname string   `json:"nickname"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

type AuthService struct {
	userRepo   repository.UserRepository
	secret     []byte
	method     jwt.SigningMethod
	lifetime   time.Duration
	bcryptCost int
	now        func() time.Time
	logger     *logrus.Logger
}

func NewAuthService(userRepo repository.UserRepository, cfg AuthConfig, logger *logrus.Logger) *AuthService {
	lifetime := cfg.TokenLifetime
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &AuthService{
		userRepo:   userRepo,
		secret:     []byte(cfg.Secret),
		method:     signingMethod(cfg.Algorithm),
		lifetime:   lifetime,
		bcryptCost: cost,
		now:        time.Now,
		logger:     logger,
	}
}

func signingMethod(alg string) jwt.SigningMethod {
	switch alg {
	case "HS384":
		return jwt.SigningMethodHS384
	case "HS512":
		return jwt.SigningMethodHS512
	default:
		return jwt.SigningMethodHS256
	}
}

// SetClock replaces the time source used for issuing and checking expiry.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// HashPassword hashes a password using bcrypt
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", domain.Validation("password must be at most %d bytes", MaxPasswordBytes).
			WithDetail("field", "password")
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a hash. Passwords longer than
// bcrypt accepts can never have been stored, so they never match.
func (s *AuthService) VerifyPassword(password, hash string) bool {
	if len(password) > MaxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken signs a bearer token for the given identity.
func (s *AuthService) IssueToken(username string, roles []string, nickname string) (*IssuedToken, error) {
	now := s.now()
	expiresAt := now.Add(s.lifetime)

	claims := TokenClaims{
		Upn:      username,
		Nickname: nickname,
		Roles:    append([]string{}, roles...),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return nil, domain.Internal("failed to sign token", err)
	}

	return &IssuedToken{
		Token:     signed,
		ExpiresIn: int64(s.lifetime / time.Second),
		ExpiresAt: expiresAt,
		TokenType: TokenType,
	}, nil
}

// VerifyToken checks signature, algorithm, issuer and expiry, and decodes the
// bearer's identity. Every failure is KindUnauthorized.
func (s *AuthService) VerifyToken(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, domain.Unauthorized(domain.MsgMissingToken)
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		s.logger.WithError(err).Debug("token rejected")
		wrong := domain.Unauthorized(domain.MsgWrongToken)
		wrong.Err = err
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, wrong.WithDetail("reason", "expired")
		}
		return nil, wrong
	}
	if claims.Upn == "" {
		return nil, domain.Unauthorized(domain.MsgWrongToken)
	}

	return &Identity{
		Username: claims.Upn,
		Nickname: claims.Nickname,
		Roles:    claims.Roles,
	}, nil
}

// Login checks a username/password pair against the active user row.
// An unknown user is KindNotFound; a wrong password is KindUnauthorized.
func (s *AuthService) Login(ctx context.Context, username, password string) (*IssuedToken, error) {
	user, err := s.userRepo.FindActive(ctx, username)
	if err != nil {
		return nil, err
	}

	if !s.VerifyPassword(password, user.PasswordHash) {
		s.logger.WithField("username", username).Info("login rejected")
		return nil, domain.Unauthorized(domain.MsgInvalidCredentials)
	}

	token, err := s.IssueToken(user.Username, user.Roles, user.Nickname)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("username", username).Info("login succeeded")
	return token, nil
}

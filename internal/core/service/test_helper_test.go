package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ortaieb/a-hunt-game/internal/infrastructure/database"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

// testEnv wires services over a real sqlite store in a temp dir.
type testEnv struct {
	db           *database.DB
	auth         *AuthService
	users        *UserService
	challenges   *ChallengeService
	participants *ParticipantService
	registry     *ChallengeRegistry
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(database.DriverSQLite, filepath.Join(t.TempDir(), "hunt.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	userRepo := database.NewUserRepository(db)
	challengeRepo := database.NewChallengeRepository(db)
	participantRepo := database.NewParticipantRepository(db)

	auth := NewAuthService(userRepo, AuthConfig{
		Secret:        testSecret,
		Algorithm:     "HS256",
		TokenLifetime: time.Hour,
		BcryptCost:    4,
	}, nil)
	registry := NewChallengeRegistry(challengeRepo, nil, nil)

	return &testEnv{
		db:           db,
		auth:         auth,
		users:        NewUserService(userRepo, auth, nil, nil),
		challenges:   NewChallengeService(challengeRepo, userRepo, registry, nil, nil),
		participants: NewParticipantService(participantRepo, challengeRepo, userRepo, nil, nil),
		registry:     registry,
	}
}

func ptr[T any](v T) *T {
	return &v
}

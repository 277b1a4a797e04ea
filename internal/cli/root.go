package cli

import (
	"context"
	"fmt"

	"github.com/ortaieb/a-hunt-game/internal/core/repository"
	"github.com/ortaieb/a-hunt-game/internal/core/service"
	"github.com/ortaieb/a-hunt-game/internal/infrastructure/database"
	"github.com/ortaieb/a-hunt-game/internal/observability"
	"github.com/ortaieb/a-hunt-game/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hunt",
	Short: "Hunt - scavenger hunt game backend",
	Long: `Hunt is the backend of a scavenger hunt game.

It provides:
- Users, challenges and challenge participants with full version history
- Password login issuing signed bearer tokens
- Role based access for players and game admins
- An in-memory schedule of upcoming challenge starts
- REST API for players and administrators`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+config.DefaultConfigPath+")")
}

// initServices opens the store and wires all services
func initServices(ctx context.Context) (*Services, error) {
	logger, closeLog, err := observability.NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}
	metrics := observability.NewMetrics()

	// Initialize database
	db, err := database.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	challengeRepo := database.NewChallengeRepository(db)
	participantRepo := database.NewParticipantRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, service.AuthConfig{
		Secret:        cfg.JWTSecretKey,
		Algorithm:     cfg.JWTAlgorithm,
		TokenLifetime: cfg.TokenLifetime,
		BcryptCost:    cfg.BcryptCost,
	}, logger)
	registry := service.NewChallengeRegistry(challengeRepo, logger, metrics)

	logger.WithFields(logrus.Fields{
		"driver": cfg.DBDriver,
		"config": cfg.ConfigPath,
	}).Debug("services initialized")

	return &Services{
		DB:                 db,
		Logger:             logger,
		closeLog:           closeLog,
		Metrics:            metrics,
		UserRepo:           userRepo,
		AuthService:        authService,
		UserService:        service.NewUserService(userRepo, authService, logger, metrics),
		ChallengeService:   service.NewChallengeService(challengeRepo, userRepo, registry, logger, metrics),
		ParticipantService: service.NewParticipantService(participantRepo, challengeRepo, userRepo, logger, metrics),
		Registry:           registry,
	}, nil
}

// Services holds all initialized services
type Services struct {
	DB                 *database.DB
	Logger             *logrus.Logger
	Metrics            *observability.Metrics
	UserRepo           repository.UserRepository
	AuthService        *service.AuthService
	UserService        *service.UserService
	ChallengeService   *service.ChallengeService
	ParticipantService *service.ParticipantService
	Registry           *service.ChallengeRegistry

	closeLog func() error
}

// Close closes all resources
func (s *Services) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
	if s.closeLog != nil {
		s.closeLog()
	}
}

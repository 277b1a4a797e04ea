package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ortaieb/a-hunt-game/internal/api"
	"github.com/ortaieb/a-hunt-game/internal/core/service"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long:  "Load the challenge schedule from storage and start the REST API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()
		logger := services.Logger

		// Warm the schedule before accepting requests
		if err := services.Registry.LoadAll(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load challenge schedule: %w", err)
		}
		logger.WithField("challenges", services.Registry.Size()).Info("challenge schedule loaded")

		syncer, err := service.NewRegistrySyncer(services.Registry, cfg.RegistryResyncSchedule, logger)
		if err != nil {
			return err
		}
		syncer.Start()
		defer syncer.Stop()

		server := api.NewServer(
			cfg,
			services.AuthService,
			services.UserService,
			services.ChallengeService,
			services.ParticipantService,
			logger,
			services.Metrics,
		)

		// Start server in goroutine
		serverErr := make(chan error, 1)
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()

		// Wait for interrupt signal or server error
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		logger.Info("server is ready")

		select {
		case err := <-serverErr:
			return fmt.Errorf("server error: %w", err)
		case <-sigChan:
			logger.Info("shutting down gracefully")
		}

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		logger.Info("server stopped")
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		// Opening the store migrates it; run once more to surface errors explicitly.
		if err := services.DB.Migrate(cmd.Context()); err != nil {
			return err
		}

		fmt.Printf("Schema is up to date (%s)\n", services.DB.Driver())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(migrateCmd)
}

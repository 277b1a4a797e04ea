package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ortaieb/a-hunt-game/internal/api/handler"
	"github.com/ortaieb/a-hunt-game/internal/api/middleware"
	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/ortaieb/a-hunt-game/internal/core/service"
	"github.com/ortaieb/a-hunt-game/internal/observability"
	"github.com/ortaieb/a-hunt-game/pkg/config"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router *gin.Engine
	srv    *http.Server
	config *config.Config
	logger *logrus.Logger
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	authService *service.AuthService,
	userService *service.UserService,
	challengeService *service.ChallengeService,
	participantService *service.ParticipantService,
	logger *logrus.Logger,
	metrics *observability.Metrics,
) *Server {
	// Set Gin mode
	if !cfg.IsDevMode() {
		gin.SetMode(gin.ReleaseMode)
	}
	logger = observability.OrDefault(logger)

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.ErrorHandlerMiddleware(logger))
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	if metrics != nil {
		router.Use(middleware.HTTPMetrics(metrics))
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, logger, metrics)
	userHandler := handler.NewUserHandler(userService, cfg.SelfRegistration, logger)
	challengeHandler := handler.NewChallengeHandler(challengeService, logger)
	participantHandler := handler.NewParticipantHandler(participantService, logger)
	scheduleHandler := handler.NewScheduleHandler(challengeService.Registry(), logger)

	authMiddleware := middleware.AuthMiddleware(authService, logger, metrics)
	adminOnly := middleware.RequireRole(domain.RoleAdmin, metrics)

	// Public routes (no auth required)
	router.POST("/auth/login", authHandler.Login)
	router.POST("/users", userHandler.Register)

	// Authenticated routes
	router.GET("/auth/me", authMiddleware, authHandler.Me)
	router.PUT("/users/:username/profile", authMiddleware, userHandler.UpdateProfile)

	// Challenges
	challenges := router.Group("/challenges")
	challenges.Use(authMiddleware)
	{
		challenges.GET("", challengeHandler.ListChallenges)
		challenges.GET("/:id", challengeHandler.GetChallenge)
		challenges.GET("/:id/participants", participantHandler.ListParticipants)

		challenges.POST("", adminOnly, challengeHandler.CreateChallenge)
		challenges.PUT("/:id", adminOnly, challengeHandler.UpdateChallenge)
		challenges.DELETE("/:id", adminOnly, challengeHandler.DeleteChallenge)
		challenges.GET("/:id/history", adminOnly, challengeHandler.History)

		challenges.POST("/:id/participants", adminOnly, participantHandler.InviteParticipant)
		challenges.PUT("/:id/participants/:username", adminOnly, participantHandler.UpdateParticipant)
		challenges.DELETE("/:id/participants/:username", adminOnly, participantHandler.RemoveParticipant)
		challenges.GET("/:id/participants/:username/history", adminOnly, participantHandler.History)
	}

	// Schedule
	schedule := router.Group("/schedule")
	schedule.Use(authMiddleware)
	{
		schedule.GET("", scheduleHandler.ListSchedule)
		schedule.GET("/upcoming", scheduleHandler.Upcoming)
	}

	// Administration
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminOnly)
	{
		admin.POST("/users", userHandler.CreateUser)
		admin.GET("/users", userHandler.ListUsers)
		admin.PUT("/users/:username/roles", userHandler.SetRoles)
		admin.DELETE("/users/:username", userHandler.DeleteUser)
		admin.GET("/users/:username/history", userHandler.History)
		admin.GET("/users/:username/as-of", userHandler.AsOf)
		admin.POST("/schedule/flush", scheduleHandler.Flush)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":               "ok",
			"time":                 time.Now().Format(time.RFC3339),
			"scheduled_challenges": challengeService.Registry().Size(),
		})
	})

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	return &Server{
		router: router,
		config: cfg,
		logger: logger,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)

	s.srv = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// Start with or without SSL
	if s.config.SSLCert != "" && s.config.SSLKey != "" {
		s.logger.WithField("addr", addr).Info("starting HTTPS server")
		return s.srv.ListenAndServeTLS(s.config.SSLCert, s.config.SSLKey)
	}

	s.logger.WithField("addr", addr).Info("starting HTTP server")
	return s.srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

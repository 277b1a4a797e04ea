package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ortaieb/a-hunt-game/internal/api/dto"
	"github.com/ortaieb/a-hunt-game/internal/api/middleware"
	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/ortaieb/a-hunt-game/internal/core/service"
	"github.com/ortaieb/a-hunt-game/internal/observability"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	authService *service.AuthService
	logger      *logrus.Logger
	metrics     *observability.Metrics
}

func NewAuthHandler(authService *service.AuthService, logger *logrus.Logger, metrics *observability.Metrics) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      observability.OrDefault(logger),
		metrics:     metrics,
	}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondBadRequest(c, err.Error())
		return
	}

	issued, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	h.recordLogin(err)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:     issued.Token,
		ExpiresIn: issued.ExpiresIn,
		TokenType: issued.TokenType,
	})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		middleware.RespondError(c, h.logger, domain.Unauthorized(domain.MsgMissingToken))
		return
	}

	c.JSON(http.StatusOK, dto.IdentityResponse{
		Username: identity.Username,
		Nickname: identity.Nickname,
		Roles:    identity.Roles,
	})
}

func (h *AuthHandler) recordLogin(err error) {
	if h.metrics == nil {
		return
	}

	outcome := "success"
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindNotFound:
			outcome = "unknown_user"
		case domain.KindUnauthorized:
			outcome = "wrong_password"
		default:
			outcome = "error"
		}
	}
	h.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
}

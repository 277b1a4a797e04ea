package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ortaieb/a-hunt-game/internal/api/dto"
	"github.com/ortaieb/a-hunt-game/internal/api/middleware"
	"github.com/ortaieb/a-hunt-game/internal/api/util"
	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/ortaieb/a-hunt-game/internal/core/repository"
	"github.com/ortaieb/a-hunt-game/internal/core/service"
	"github.com/ortaieb/a-hunt-game/internal/observability"
	"github.com/sirupsen/logrus"
)

type UserHandler struct {
	userService      *service.UserService
	selfRegistration bool
	logger           *logrus.Logger
}

func NewUserHandler(userService *service.UserService, selfRegistration bool, logger *logrus.Logger) *UserHandler {
	return &UserHandler{
		userService:      userService,
		selfRegistration: selfRegistration,
		logger:           observability.OrDefault(logger),
	}
}

// Register handles POST /users
func (h *UserHandler) Register(c *gin.Context) {
	if !h.selfRegistration {
		middleware.RespondError(c, h.logger, domain.Forbidden("self registration is disabled"))
		return
	}

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondBadRequest(c, err.Error())
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Username, req.Password, req.Nickname)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// UpdateProfile handles PUT /users/:username/profile. Callers may change
// their own profile; admins may change anyone's.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	username := c.Param("username")

	identity, ok := middleware.GetIdentity(c)
	if !ok {
		middleware.RespondError(c, h.logger, domain.Unauthorized(domain.MsgMissingToken))
		return
	}
	if identity.Username != username {
		if err := service.RequireRole(identity.Roles, domain.RoleAdmin); err != nil {
			middleware.RespondError(c, h.logger, err)
			return
		}
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondBadRequest(c, err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), username, service.ProfileUpdate{
		Nickname: req.Nickname,
		Password: req.Password,
	})
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// CreateUser handles POST /admin/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondBadRequest(c, err.Error())
		return
	}

	user, err := h.userService.Create(c.Request.Context(), service.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Nickname: req.Nickname,
		Roles:    req.Roles,
	})
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// ListUsers handles GET /admin/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, perPage, err := util.ParsePagination(c.Query("page"), c.Query("per_page"))
	if err != nil {
		middleware.RespondBadRequest(c, err.Error())
		return
	}

	var filter repository.UserFilter
	if role := c.Query("role"); role != "" {
		filter.Role = &role
	}

	users, err := h.userService.List(c.Request.Context(), filter)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	items, totalPages := util.Paginate(users, page, perPage)
	response := dto.UserListResponse{
		Items: make([]dto.UserResponse, len(items)),
		Pagination: dto.PaginationInfo{
			Total:      len(users),
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
		},
	}
	for i, u := range items {
		response.Items[i] = toUserResponse(u)
	}

	c.JSON(http.StatusOK, response)
}

// SetRoles handles PUT /admin/users/:username/roles
func (h *UserHandler) SetRoles(c *gin.Context) {
	var req dto.SetRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondBadRequest(c, err.Error())
		return
	}

	user, err := h.userService.SetRoles(c.Request.Context(), c.Param("username"), req.Roles)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// DeleteUser handles DELETE /admin/users/:username
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.Remove(c.Request.Context(), c.Param("username")); err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// History handles GET /admin/users/:username/history
func (h *UserHandler) History(c *gin.Context) {
	username := c.Param("username")

	versions, err := h.userService.History(c.Request.Context(), username)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	response := dto.UserHistoryResponse{
		Username: username,
		Versions: make([]dto.UserResponse, len(versions)),
	}
	for i, v := range versions {
		response.Versions[i] = toUserResponse(v)
	}

	c.JSON(http.StatusOK, response)
}

// AsOf handles GET /admin/users/:username/as-of?at=RFC3339
func (h *UserHandler) AsOf(c *gin.Context) {
	at, err := time.Parse(time.RFC3339Nano, c.Query("at"))
	if err != nil {
		middleware.RespondBadRequest(c, "at must be an RFC3339 timestamp")
		return
	}

	user, err := h.userService.AsOf(c.Request.Context(), c.Param("username"), at)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

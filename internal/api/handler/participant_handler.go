package handler

import (
	"net/http"

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

var participantQueryFields = []string{"state", "username"}

type ParticipantHandler struct {
	participantService *service.ParticipantService
	logger             *logrus.Logger
}

func NewParticipantHandler(participantService *service.ParticipantService, logger *logrus.Logger) *ParticipantHandler {
	return &ParticipantHandler{
		participantService: participantService,
		logger:             observability.OrDefault(logger),
	}
}

func participantKey(c *gin.Context) domain.ParticipantKey {
	return domain.ParticipantKey{ChallengeID: c.Param("id"), Username: c.Param("username")}
}

// ListParticipants handles GET /challenges/:id/participants
func (h *ParticipantHandler) ListParticipants(c *gin.Context) {
	page, perPage, err := util.ParsePagination(c.Query("page"), c.Query("per_page"))
	if err != nil {
		middleware.RespondBadRequest(c, err.Error())
		return
	}

	filters, err := util.ParseQueryString(c.Query("query"))
	if err == nil {
		err = util.ValidateFilterFields(filters, participantQueryFields)
	}
	if err != nil {
		middleware.RespondBadRequest(c, err.Error())
		return
	}

	challengeID := c.Param("id")
	filter := repository.ParticipantFilter{ChallengeID: &challengeID}
	if username, ok := util.Lookup(filters, "username"); ok {
		filter.Username = &username
	}
	if state, ok := util.Lookup(filters, "state"); ok {
		s := domain.ParticipantState(state)
		if !s.Valid() {
			middleware.RespondBadRequest(c, "unknown participant state: "+state)
			return
		}
		filter.State = &s
	}

	participants, err := h.participantService.List(c.Request.Context(), filter)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	items, totalPages := util.Paginate(participants, page, perPage)
	response := dto.ParticipantListResponse{
		Items: make([]dto.ParticipantResponse, len(items)),
		Pagination: dto.PaginationInfo{
			Total:      len(participants),
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
		},
	}
	for i, p := range items {
		response.Items[i] = toParticipantResponse(p)
	}

	c.JSON(http.StatusOK, response)
}

// InviteParticipant handles POST /challenges/:id/participants
func (h *ParticipantHandler) InviteParticipant(c *gin.Context) {
	var req dto.InviteParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondBadRequest(c, err.Error())
		return
	}

	p, err := h.participantService.Invite(c.Request.Context(), c.Param("id"), req.Username, req.ParticipantName)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toParticipantResponse(p))
}

// UpdateParticipant handles PUT /challenges/:id/participants/:username
func (h *ParticipantHandler) UpdateParticipant(c *gin.Context) {
	var req dto.UpdateParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondBadRequest(c, err.Error())
		return
	}

	p, err := h.participantService.UpdateState(c.Request.Context(), participantKey(c),
		domain.ParticipantState(req.State), req.ParticipantName)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toParticipantResponse(p))
}

// RemoveParticipant handles DELETE /challenges/:id/participants/:username
func (h *ParticipantHandler) RemoveParticipant(c *gin.Context) {
	if err := h.participantService.Remove(c.Request.Context(), participantKey(c)); err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// History handles GET /challenges/:id/participants/:username/history
func (h *ParticipantHandler) History(c *gin.Context) {
	key := participantKey(c)

	versions, err := h.participantService.History(c.Request.Context(), key)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	response := dto.ParticipantHistoryResponse{
		ChallengeID: key.ChallengeID,
		Username:    key.Username,
		Versions:    make([]dto.ParticipantResponse, len(versions)),
	}
	for i, v := range versions {
		response.Versions[i] = toParticipantResponse(v)
	}

	c.JSON(http.StatusOK, response)
}

package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ortaieb/a-hunt-game/internal/api/dto"
	"github.com/ortaieb/a-hunt-game/internal/api/middleware"
	"github.com/ortaieb/a-hunt-game/internal/api/util"
	"github.com/ortaieb/a-hunt-game/internal/core/repository"
	"github.com/ortaieb/a-hunt-game/internal/core/service"
	"github.com/ortaieb/a-hunt-game/internal/observability"
	"github.com/sirupsen/logrus"
)

var challengeQueryFields = []string{"moderator", "starts_from", "starts_before"}

type ChallengeHandler struct {
	challengeService *service.ChallengeService
	logger           *logrus.Logger
}

func NewChallengeHandler(challengeService *service.ChallengeService, logger *logrus.Logger) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
		logger:           observability.OrDefault(logger),
	}
}

// ListChallenges handles GET /challenges
func (h *ChallengeHandler) ListChallenges(c *gin.Context) {
	page, perPage, err := util.ParsePagination(c.Query("page"), c.Query("per_page"))
	if err != nil {
		middleware.RespondBadRequest(c, err.Error())
		return
	}

	filters, err := util.ParseQueryString(c.Query("query"))
	if err == nil {
		err = util.ValidateFilterFields(filters, challengeQueryFields)
	}
	if err != nil {
		middleware.RespondBadRequest(c, err.Error())
		return
	}

	var filter repository.ChallengeFilter
	if moderator, ok := util.Lookup(filters, "moderator"); ok {
		filter.Moderator = &moderator
	}
	if filter.StartsFrom, err = lookupTime(filters, "starts_from"); err != nil {
		middleware.RespondBadRequest(c, err.Error())
		return
	}
	if filter.StartsBefore, err = lookupTime(filters, "starts_before"); err != nil {
		middleware.RespondBadRequest(c, err.Error())
		return
	}

	challenges, err := h.challengeService.List(c.Request.Context(), filter)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	items, totalPages := util.Paginate(challenges, page, perPage)
	response := dto.ChallengeListResponse{
		Items: make([]dto.ChallengeResponse, len(items)),
		Pagination: dto.PaginationInfo{
			Total:      len(challenges),
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
		},
	}
	for i, ch := range items {
		response.Items[i] = toChallengeResponse(ch)
	}

	c.JSON(http.StatusOK, response)
}

// GetChallenge handles GET /challenges/:id
func (h *ChallengeHandler) GetChallenge(c *gin.Context) {
	challenge, err := h.challengeService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toChallengeResponse(challenge))
}

// CreateChallenge handles POST /challenges
func (h *ChallengeHandler) CreateChallenge(c *gin.Context) {
	var req dto.ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondBadRequest(c, err.Error())
		return
	}

	challenge, err := h.challengeService.Create(c.Request.Context(), toChallengeInput(req))
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toChallengeResponse(challenge))
}

// UpdateChallenge handles PUT /challenges/:id
func (h *ChallengeHandler) UpdateChallenge(c *gin.Context) {
	var req dto.ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondBadRequest(c, err.Error())
		return
	}

	challenge, err := h.challengeService.Update(c.Request.Context(), c.Param("id"), toChallengeInput(req))
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toChallengeResponse(challenge))
}

// DeleteChallenge handles DELETE /challenges/:id
func (h *ChallengeHandler) DeleteChallenge(c *gin.Context) {
	if err := h.challengeService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// History handles GET /challenges/:id/history
func (h *ChallengeHandler) History(c *gin.Context) {
	challengeID := c.Param("id")

	versions, err := h.challengeService.History(c.Request.Context(), challengeID)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	response := dto.ChallengeHistoryResponse{
		ChallengeID: challengeID,
		Versions:    make([]dto.ChallengeResponse, len(versions)),
	}
	for i, v := range versions {
		response.Versions[i] = toChallengeResponse(v)
	}

	c.JSON(http.StatusOK, response)
}

// lookupTime parses an optional RFC3339 filter value.
func lookupTime(filters []util.QueryFilter, field string) (*time.Time, error) {
	raw, ok := util.Lookup(filters, field)
	if !ok {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC3339 timestamp", field)
	}
	return &t, nil
}

func toChallengeInput(req dto.ChallengeRequest) service.ChallengeInput {
	return service.ChallengeInput{
		Name:        req.Name,
		Description: req.Description,
		StartTime:   req.StartTime,
		Moderator:   req.Moderator,
	}
}

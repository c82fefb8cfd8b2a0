package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-games/internal/middleware"
	"github.com/stemsi/exstem-games/internal/response"
	"github.com/stemsi/exstem-games/internal/service"
)

// AttemptHandler serves recorded attempts to tutors.
type AttemptHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "attempt_handler").Logger(),
	}
}

// ListAttempts godoc
// GET /api/v1/tutor/games/:game_id/attempts?page=1&per_page=20
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	gameID, ok := parseID(c, "game_id")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	attempts, pagination, err := h.attemptService.ListByGame(c.Request.Context(), claims.UserID, gameID, page, perPage)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGameNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrGameNotFound)
		case errors.Is(err, service.ErrNotGameAuthor):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		default:
			h.log.Error().Err(err).Str("game_id", gameID.String()).Msg("List attempts failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attempts": attempts}, pagination)
}

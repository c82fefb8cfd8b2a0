package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-games/internal/engine"
	"github.com/stemsi/exstem-games/internal/middleware"
	"github.com/stemsi/exstem-games/internal/model"
	"github.com/stemsi/exstem-games/internal/response"
	"github.com/stemsi/exstem-games/internal/service"
	"github.com/stemsi/exstem-games/internal/validator"
)

// SessionHandler handles player-facing game session endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "session_handler").Logger(),
	}
}

// StartSession godoc
// POST /api/v1/play/sessions
// Starts a session from a stored game or an inline definition.
func (h *SessionHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.sessionService.Start(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": snap})
}

// GetSession godoc
// GET /api/v1/play/sessions/:session_id
// Returns the latest snapshot of a live session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, ok := parseID(c, "session_id")
	if !ok {
		return
	}

	snap, err := h.sessionService.View(claims.UserID, sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// Act godoc
// POST /api/v1/play/sessions/:session_id/actions
// Applies one player intent. Illegal intents leave the session unchanged.
func (h *SessionHandler) Act(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, ok := parseID(c, "session_id")
	if !ok {
		return
	}

	var req model.SessionActionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.sessionService.Act(c.Request.Context(), claims.UserID, sessionID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// ReviewSession godoc
// POST /api/v1/play/sessions/:session_id/review
// Starts a review deck over the cards a completed flashcard session marked unknown.
func (h *SessionHandler) ReviewSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, ok := parseID(c, "session_id")
	if !ok {
		return
	}

	snap, err := h.sessionService.Review(c.Request.Context(), claims.UserID, sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": snap})
}

// ExitSession godoc
// DELETE /api/v1/play/sessions/:session_id
// Ends a session. Flashcard progress is kept for a later resume.
func (h *SessionHandler) ExitSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, ok := parseID(c, "session_id")
	if !ok {
		return
	}

	snap, err := h.sessionService.Exit(c.Request.Context(), claims.UserID, sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// GetProgress godoc
// GET /api/v1/play/games/:game_id/progress
// Reports whether a resumable flashcard deck is saved for this game.
func (h *SessionHandler) GetProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	gameID, ok := parseID(c, "game_id")
	if !ok {
		return
	}

	status, err := h.sessionService.Progress(c.Request.Context(), claims.UserID, gameID)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"progress": status})
}

// fail maps service errors onto response codes.
func (h *SessionHandler) fail(c *gin.Context, err error) {
	var defErr *service.DefinitionError
	switch {
	case errors.As(err, &defErr):
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrGameCannotLoad, defErr.Fields)
	case errors.Is(err, service.ErrGameCannotLoad):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrGameCannotLoad)
	case errors.Is(err, service.ErrGameNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrGameNotFound)
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrInvalidAction):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
	case errors.Is(err, service.ErrReviewNotSupported):
		response.Fail(c, http.StatusConflict, response.ErrReviewNotSupported)
	case errors.Is(err, engine.ErrNotCompleted):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotCompleted)
	case errors.Is(err, engine.ErrNothingToReview):
		response.Fail(c, http.StatusConflict, response.ErrNothingToReview)
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Session request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-games/internal/middleware"
	"github.com/stemsi/exstem-games/internal/response"
	"github.com/stemsi/exstem-games/internal/service"
	"github.com/stemsi/exstem-games/internal/session"
	"github.com/stemsi/exstem-games/internal/validator"
	ws "github.com/stemsi/exstem-games/internal/websocket"
)

const outboundCapacity = 8

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams session snapshots over WebSocket.
type WSHandler struct {
	sessionService *service.SessionService
	limiter        *middleware.RateLimiter
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. Intent frames draw from the same
// limiter buckets as the REST actions endpoint; a nil limiter disables the
// check.
func NewWSHandler(sessionService *service.SessionService, limiter *middleware.RateLimiter, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		limiter:        limiter,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/play/sessions/:session_id/stream?token=
// Pushes a snapshot after every session event and accepts player intents.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, ok := parseID(c, "session_id")
	if !ok {
		return
	}

	sess, err := h.sessionService.Session(claims.UserID, sessionID)
	switch {
	case errors.Is(err, service.ErrForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	case err != nil:
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("player_id", claims.UserID).
		Str("session_id", sessionID.String()).
		Logger()
	wsLog.Info().Msg("Player connected")

	snapshots, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	out := make(chan any, outboundCapacity)
	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, wsLog, snapshots, out, stop)
	}()

	h.readLoop(conn, wsLog, middleware.RateKey(c), claims.UserID, sessionID, out, writerDone)

	close(stop)
	<-writerDone
}

// readLoop handles client frames until the connection fails or closes.
func (h *WSHandler) readLoop(conn *websocket.Conn, wsLog zerolog.Logger, rateKey string, playerID int, sessionID uuid.UUID, out chan<- any, writerDone <-chan struct{}) {
	send := func(v any) {
		select {
		case out <- v:
		case <-writerDone:
		}
	}

	for {
		var msg ws.IntentRequest
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		if msg.Action == ws.ActionPing {
			send(ws.PongResponse{Event: ws.EventPong})
			continue
		}

		if h.limiter != nil && !h.limiter.Allow(rateKey) {
			send(ws.ErrorResponse{
				Event: ws.EventError,
				Code:  string(response.ErrRateLimitExceeded),
				Error: response.GetMessage(response.ErrRateLimitExceeded),
			})
			continue
		}

		req := msg.ActionRequest()
		if fields := validator.ValidateStruct(req); fields != nil {
			send(ws.ErrorResponse{Event: ws.EventError, Error: "invalid action", Fields: fields})
			continue
		}

		// Snapshots arrive through the subscription; only failures are
		// answered here. An exit closes the subscription, which ends the
		// writer and with it this loop.
		if _, err := h.sessionService.Act(context.Background(), playerID, sessionID, req); err != nil {
			wsLog.Debug().Err(err).Str("action", msg.Action).Msg("Intent rejected")
			send(ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
		}
	}
}

// writeLoop owns all writes to conn. It ends when the session exits, the
// reader stops or a write fails.
func (h *WSHandler) writeLoop(conn *websocket.Conn, wsLog zerolog.Logger, snapshots <-chan session.Snapshot, out <-chan any, stop <-chan struct{}) {
	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				_ = ws.WriteTyped(conn, ws.ClosedResponse{Event: ws.EventClosed})
				_ = ws.WriteClose(conn, "session closed")
				// Unblocks the reader.
				_ = conn.Close()
				return
			}
			if err := ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventSnapshot, Snapshot: snap}); err != nil {
				wsLog.Debug().Err(err).Msg("Snapshot write failed")
				_ = conn.Close()
				return
			}
		case v := <-out:
			if err := ws.WriteTyped(conn, v); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				_ = conn.Close()
				return
			}
		case <-stop:
			return
		}
	}
}

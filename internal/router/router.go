package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stemsi/exstem-games/internal/config"
	"github.com/stemsi/exstem-games/internal/handler"
	"github.com/stemsi/exstem-games/internal/middleware"
	"github.com/stemsi/exstem-games/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	Attempt *handler.AttemptHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth middleware.TokenValidator,
	limiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally. WebSocket upgrades are skipped.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Player Group (JWT, Rate Limited) ───────────────────────────
	playAPI := router.Group("/api/v1/play")
	playAPI.Use(
		middleware.RequirePlayerJWT(auth),
		limiter.Middleware(),
		middleware.CacheControl("no-store"),
	)
	{
		playAPI.POST("/sessions", handlers.Session.StartSession)
		playAPI.GET("/sessions/:session_id", handlers.Session.GetSession)
		playAPI.POST("/sessions/:session_id/actions", handlers.Session.Act)
		playAPI.POST("/sessions/:session_id/review", handlers.Session.ReviewSession)
		playAPI.DELETE("/sessions/:session_id", handlers.Session.ExitSession)
		playAPI.GET("/games/:game_id/progress", handlers.Session.GetProgress)
	}

	// ─── 2. Tutor Group (JWT) ──────────────────────────────────────────
	tutorAPI := router.Group("/api/v1/tutor")
	tutorAPI.Use(
		middleware.RequireTutorJWT(auth),
		middleware.CacheControl("private, max-age=30"),
	)
	{
		tutorAPI.GET("/games/:game_id/attempts", handlers.Attempt.ListAttempts)
	}

	// ─── 3. WebSocket Group (Player WS Auth) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequirePlayerWSAuth(auth))
	{
		ws.GET("/play/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	return router
}

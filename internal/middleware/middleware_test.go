package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-games/internal/config"
	"github.com/stemsi/exstem-games/internal/response"
	"github.com/stemsi/exstem-games/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

func authService(expiry time.Duration) *service.AuthService {
	return service.NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: expiry})
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	var body struct {
		Error *response.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func TestRequirePlayerJWT(t *testing.T) {
	auth := authService(time.Hour)
	r := gin.New()
	r.GET("/play", RequirePlayerJWT(auth), func(c *gin.Context) {
		c.String(http.StatusOK, "%d", GetClaims(c).UserID)
	})

	player, err := auth.IssueToken(service.TokenTypePlayer, 42, 3)
	require.NoError(t, err)
	tutor, err := auth.IssueToken(service.TokenTypeTutor, 7, 0)
	require.NoError(t, err)
	expired, err := authService(-time.Minute).IssueToken(service.TokenTypePlayer, 42, 3)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		code   response.ErrCode
	}{
		{"player", "Bearer " + player, http.StatusOK, ""},
		{"missing", "", http.StatusUnauthorized, response.ErrTokenRequired},
		{"wrong scheme", "Basic " + player, http.StatusUnauthorized, response.ErrTokenRequired},
		{"garbage", "Bearer nope", http.StatusUnauthorized, response.ErrTokenInvalid},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, response.ErrTokenExpired},
		{"tutor", "Bearer " + tutor, http.StatusForbidden, response.ErrPlayerAccessOnly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/play", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.code == "" {
				assert.Equal(t, "42", w.Body.String())
				return
			}
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestRequirePlayerWSAuthReadsQuery(t *testing.T) {
	auth := authService(time.Hour)
	r := gin.New()
	r.GET("/ws", RequirePlayerWSAuth(auth), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	player, err := auth.IssueToken(service.TokenTypePlayer, 1, 0)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+player, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrTokenRequired, errorCode(t, w))
}

func TestRequireTutorJWTRejectsPlayers(t *testing.T) {
	auth := authService(time.Hour)
	r := gin.New()
	r.GET("/tutor", RequireTutorJWT(auth), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	player, err := auth.IssueToken(service.TokenTypePlayer, 1, 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/tutor", nil)
	req.Header.Set("Authorization", "Bearer "+player)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.ErrTutorAccessOnly, errorCode(t, w))
}

func TestRateLimiterRefills(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(ctx, 2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("player:1"))
	assert.True(t, rl.Allow("player:1"))
	assert.False(t, rl.Allow("player:1"))
	assert.True(t, rl.Allow("player:2"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("player:1"))

	now = now.Add(10 * time.Minute)
	rl.cleanup()
	rl.mu.Lock()
	assert.Empty(t, rl.visitors)
	rl.mu.Unlock()
}

func TestRateLimiterMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 1, time.Hour)
	r := gin.New()
	r.GET("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, response.ErrRateLimitExceeded, errorCode(t, w))
}

func TestRateKeySharesBucketWithMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 1, time.Hour)
	var key string
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		c.Set(ContextKeyClaims, &service.Claims{TokenType: service.TokenTypePlayer, UserID: 4})
		key = RateKey(c)
		c.Next()
	}, rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, "player:4", key)
	assert.False(t, rl.Allow(key), "the request drained the player's bucket")
	assert.True(t, rl.Allow("ip:192.0.2.1"))
}

func TestBrotli(t *testing.T) {
	large := strings.Repeat("snapshot ", 400)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })

	t.Run("small responses pass through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/small", nil)
		req.Header.Set("Accept-Encoding", "gzip, br")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("large responses are compressed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/large", nil)
		req.Header.Set("Accept-Encoding", "br")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, "br", w.Header().Get("Content-Encoding"))

		body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
		require.NoError(t, err)
		assert.Equal(t, large, string(body))
	})

	t.Run("websocket upgrades are skipped", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/large", nil)
		req.Header.Set("Accept-Encoding", "br")
		req.Header.Set("Upgrade", "websocket")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Equal(t, large, w.Body.String())
	})
}

func TestCacheControl(t *testing.T) {
	r := gin.New()
	r.GET("/", CacheControl("no-store"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

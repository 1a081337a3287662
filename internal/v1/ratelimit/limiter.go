// Package ratelimit implements rate limiting logic using Redis or local memory.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/config"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/logging"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/metrics"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// profileIDHeader carries the caller's self-asserted profile id. This
// server treats a profile id as a bearer token: there is no signature to
// verify, so the header is trusted as-is and used only for rate-limit
// keying and room membership, never for authorization decisions beyond
// "is this the room's host".
const profileIDHeader = "X-Profile-Id"

// RateLimiter holds the rate limiter instances.
type RateLimiter struct {
	apiGlobal   *limiter.Limiter
	apiRooms    *limiter.Limiter
	wsIP        *limiter.Limiter
	wsProfile   *limiter.Limiter
	store       limiter.Store
	redisClient *redis.Client
}

// NewRateLimiter creates a new RateLimiter instance.
func NewRateLimiter(cfg *config.Config, redisClient *redis.Client) (*RateLimiter, error) {
	apiGlobalRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPIGlobal)
	if err != nil {
		return nil, fmt.Errorf("invalid API global rate: %w", err)
	}

	apiRoomsRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPIRooms)
	if err != nil {
		return nil, fmt.Errorf("invalid API rooms rate: %w", err)
	}

	wsIPRate, err := limiter.NewRateFromFormatted(cfg.RateLimitWsIP)
	if err != nil {
		return nil, fmt.Errorf("invalid WS IP rate: %w", err)
	}

	wsProfileRate, err := limiter.NewRateFromFormatted(cfg.RateLimitWsProfile)
	if err != nil {
		return nil, fmt.Errorf("invalid WS profile rate: %w", err)
	}

	var store limiter.Store
	if redisClient != nil {
		s, err := sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
			Prefix: "limiter:v1:",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		store = s
		logging.Info(context.Background(), "rate limiter using Redis store")
	} else {
		store = memory.NewStore()
		logging.Warn(context.Background(), "rate limiter using memory store (Redis disabled or unavailable)")
	}

	return &RateLimiter{
		apiGlobal:   limiter.New(store, apiGlobalRate),
		apiRooms:    limiter.New(store, apiRoomsRate),
		wsIP:        limiter.New(store, wsIPRate),
		wsProfile:   limiter.New(store, wsProfileRate),
		store:       store,
		redisClient: redisClient,
	}, nil
}

// callerKey returns the self-asserted profile id if present, else the
// client IP, along with which kind of key was used.
func callerKey(c *gin.Context) (key string, kind string) {
	if profileID := c.GetHeader(profileIDHeader); profileID != "" {
		return profileID, "profile"
	}
	return c.ClientIP(), "ip"
}

// GlobalMiddleware returns a Gin middleware that enforces the admin
// surface's baseline rate limit, keyed by profile id when present and
// falling back to the client IP otherwise.
func (rl *RateLimiter) GlobalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, kind := callerKey(c)

		ctx := c.Request.Context()
		lctx, err := rl.apiGlobal.Get(ctx, key)
		if err != nil {
			logging.Error(ctx, "rate limiter store failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			metrics.RateLimitExceeded.WithLabelValues(c.FullPath(), kind).Inc()
			c.Header("Retry-After", strconv.FormatInt(lctx.Reset-time.Now().Unix(), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many requests",
				"retry_after": lctx.Reset,
			})
			return
		}

		metrics.RateLimitRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

// RoomsMiddleware returns a Gin middleware that enforces the tighter
// room-mutation rate limit (create/close/cleanup), keyed the same way
// as GlobalMiddleware.
func (rl *RateLimiter) RoomsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, kind := callerKey(c)

		ctx := c.Request.Context()
		lctx, err := rl.apiRooms.Get(ctx, key)
		if err != nil {
			logging.Error(ctx, "rate limiter store failed", zap.Error(err))
			c.Next()
			return
		}

		if lctx.Reached {
			metrics.RateLimitExceeded.WithLabelValues(c.FullPath(), kind).Inc()
			c.Header("X-RateLimit-Retry-After", strconv.FormatInt(lctx.Reset, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many requests",
				"retry_after": lctx.Reset,
			})
			return
		}

		metrics.RateLimitRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

// CheckWebSocket enforces the per-IP connection limit ahead of the
// websocket upgrade. Returns true if allowed, false if the limit is
// exceeded (in which case it has already written the error response).
func (rl *RateLimiter) CheckWebSocket(c *gin.Context) bool {
	ctx := c.Request.Context()

	ip := c.ClientIP()
	ipContext, err := rl.wsIP.Get(ctx, ip)
	if err != nil {
		logging.Error(ctx, "ws rate limiter store failed (ip)", zap.Error(err))
		return true
	}

	if ipContext.Reached {
		metrics.RateLimitExceeded.WithLabelValues("websocket_connect", "ip").Inc()
		c.Header("X-RateLimit-Retry-After", strconv.FormatInt(ipContext.Reset, 10))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many connections from this IP"})
		return false
	}

	return true
}

// CheckWebSocketProfile enforces the per-profile websocket connection
// limit. Call after the profile id has been read off the handshake.
func (rl *RateLimiter) CheckWebSocketProfile(ctx context.Context, profileID string) error {
	profileContext, err := rl.wsProfile.Get(ctx, profileID)
	if err != nil {
		logging.Error(ctx, "ws rate limiter store failed (profile)", zap.Error(err))
		return nil
	}

	if profileContext.Reached {
		metrics.RateLimitExceeded.WithLabelValues("websocket_connect", "profile").Inc()
		return fmt.Errorf("rate limit exceeded for profile")
	}

	return nil
}

// StandardMiddleware exposes the stock ulule/limiter gin middleware for
// callers that don't need the custom key-selection logic above.
func (rl *RateLimiter) StandardMiddleware() gin.HandlerFunc {
	return mgin.NewMiddleware(rl.apiGlobal)
}

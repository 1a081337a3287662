package ratelimit

import (
	"testing"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/config"
	"github.com/stretchr/testify/assert"
)

func TestStandardMiddleware(t *testing.T) {
	cfg := &config.Config{
		RateLimitAPIGlobal: "100-M",
		RateLimitAPIRooms:  "50-M",
		RateLimitWsIP:      "50-M",
		RateLimitWsProfile: "100-M",
	}

	rl, err := NewRateLimiter(cfg, nil)
	assert.NoError(t, err)

	middleware := rl.StandardMiddleware()
	assert.NotNil(t, middleware)
}

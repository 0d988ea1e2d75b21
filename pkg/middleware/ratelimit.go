package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rewards-controlplane/pkg/errutil"
	"rewards-controlplane/pkg/ratelimit"
)

const HeaderActorID = "x-actor-id"

// RateLimit throttles requests per acting identity. Clients without an
// actor header fall back to their source address.
func RateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetHeader(HeaderActorID)
		if actorID == "" {
			actorID = c.ClientIP()
		}

		ok, err := limiter.Allow(c.Request.Context(), actorID)
		if err != nil {
			// Limiter outage must not take the ledger down with it.
			zap.L().Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			_ = c.Error(errutil.TooManyRequest("rate limit exceeded"))
			c.Abort()
			return
		}

		c.Next()
	}
}

package http

import (
	"net/http"

	"petcare_settlement/internal/limiter"
	"petcare_settlement/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// NewRateLimitMiddleware limits each authenticated user under the named policy. It must run
// after the auth middleware.
func NewRateLimitMiddleware(m *limiter.Manager, policy string, logger *zap.Logger) gin.HandlerFunc {
	l := m.Get(policy)
	logger = logger.Named("RateLimit").With(zap.String("policy", policy))

	return func(c *gin.Context) {
		v, _ := c.Get(service.UserIDKey)
		uid, ok := v.(primitive.ObjectID)
		if !ok {
			service.ResponseError(c, http.StatusUnauthorized, "Unauthorized: User ID not found in context.")
			return
		}

		allowed, err := l.Allow(c.Request.Context(), uid.Hex())
		if err != nil {
			// Fail open.
			logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			service.ResponseError(c, http.StatusTooManyRequests, "Too Many Requests")
			return
		}
		c.Next()
	}
}

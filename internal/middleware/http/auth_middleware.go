package http

import (
	"net/http"

	"petcare_settlement/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Headers injected by the upstream gateway after it authenticated the caller.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserName  = "X-User-Name"
	HeaderUserEmail = "X-User-Email"
)

// AuthMiddleware rejects requests without a valid X-User-Id.
type AuthMiddleware gin.HandlerFunc

func NewAuthMiddleware() AuthMiddleware {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderUserID)
		if raw == "" {
			service.ResponseError(c, http.StatusUnauthorized, "Unauthorized: Missing X-User-Id header")
			return
		}
		uid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			service.ResponseError(c, http.StatusUnauthorized, "Unauthorized: invalid user id format")
			return
		}

		c.Set(service.UserIDKey, uid)
		c.Set(service.UserNameKey, c.GetHeader(HeaderUserName))
		c.Set(service.UserEmailKey, c.GetHeader(HeaderUserEmail))
		c.Next()
	}
}

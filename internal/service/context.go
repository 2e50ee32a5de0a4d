package service

import (
	"petcare_settlement/internal/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Keys the middleware stores on the gin context.
const (
	UserIDKey    = "userID"
	UserNameKey  = "userName"
	UserEmailKey = "userEmail"
	RequestIDKey = "requestID"
)

func getUserId(c *gin.Context) (primitive.ObjectID, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok
}

// currentUser builds the operator for the authenticated caller.
func currentUser(c *gin.Context) (*models.User, bool) {
	id, ok := getUserId(c)
	if !ok {
		return nil, false
	}
	return &models.User{
		UserId: id,
		Name:   c.GetString(UserNameKey),
		Email:  c.GetString(UserEmailKey),
	}, true
}

// sameUser checks a userId echoed in the request body against the authenticated caller.
// An empty body value means the caller omitted it.
func sameUser(c *gin.Context, claimed string) bool {
	if claimed == "" {
		return true
	}
	id, ok := getUserId(c)
	return ok && id.Hex() == claimed
}

func pathObjectID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	return id, err == nil
}

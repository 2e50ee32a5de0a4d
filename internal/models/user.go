package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// SystemUser represents an operator for actions performed by the service itself
// (webhooks, recovery worker, queue consumers).
var SystemUser = &User{
	UserId: primitive.NilObjectID,
	Name:   "System",
	Email:  "system@healthypaws.local",
}

type User struct {
	UserId primitive.ObjectID `json:"user_id" bson:"user_id"`
	Name   string             `json:"name,omitempty" bson:"name,omitempty"`
	Email  string             `json:"email,omitempty" bson:"email,omitempty"`
}

// NewUser builds an operator reference from an authenticated id.
func NewUser(id primitive.ObjectID) *User {
	return &User{UserId: id}
}

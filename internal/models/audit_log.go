package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditLog records one state change of an invoice, payment or coupon and who made it.
// Before and After hold only the fields the change touched.
type AuditLog struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	OperatorID   primitive.ObjectID `bson:"operator_id"`
	OperatorName string             `bson:"operator_name,omitempty"`
	Action       string             `bson:"action"`
	EntityType   string             `bson:"entity_type"`
	EntityID     primitive.ObjectID `bson:"entity_id"`
	Before       any                `bson:"before,omitempty"`
	After        any                `bson:"after,omitempty"`
	Reason       string             `bson:"reason,omitempty"`
	Details      map[string]any     `bson:"details,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
}

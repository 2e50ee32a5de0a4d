package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Outbox row lifecycle: PENDING -> PROCESSING -> PROCESSED, or back to PENDING with retries
// incremented until DEAD_LETTER.
const (
	OutboxStatusPending    = "PENDING"
	OutboxStatusProcessing = "PROCESSING"
	OutboxStatusProcessed  = "PROCESSED"
	OutboxStatusDeadLetter = "DEAD_LETTER"
)

// OutboxMessage is a payment event written in the same transaction as the change it
// announces. AggregateID is the payment the event is about.
type OutboxMessage struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Topic         string             `bson:"topic"`
	EventType     string             `bson:"event_type"`
	AggregateID   primitive.ObjectID `bson:"aggregate_id"`
	Payload       string             `bson:"payload"`
	CorrelationID string             `bson:"correlation_id"`
	Status        string             `bson:"status"`
	Retries       int                `bson:"retries"`
	ClaimID       primitive.ObjectID `bson:"claim_id,omitempty"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     *time.Time         `bson:"updated_at,omitempty"`
	ProcessedAt   *time.Time         `bson:"processed_at,omitempty"`
	Error         string             `bson:"error,omitempty"`
}

package mongodb

import (
	"context"
	"time"

	"petcare_settlement/internal/dao/fields"
	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// claimTimeout is how long a claimed batch may stay PROCESSING before another worker may
// take it over.
const claimTimeout = 5 * time.Minute

func NewOutboxDAO(db *mongo.Database, logger *zap.Logger) *OutboxDAO {
	return &OutboxDAO{
		outboxCollection: db.Collection(CollectionOutbox),
		logger:           logger.Named("OutboxDAO"),
	}
}

type OutboxDAO struct {
	outboxCollection *mongo.Collection
	logger           *zap.Logger
}

func (d *OutboxDAO) Create(ctx context.Context, message *models.OutboxMessage) error {
	_, err := d.outboxCollection.InsertOne(ctx, message)
	if err != nil {
		d.logger.Error("Create: InsertOne failed", zap.Error(err), zap.String("topic", message.Topic))
		return err
	}
	return nil
}

// claimableFilter matches pending messages and batches whose claimer went away.
func claimableFilter(now time.Time) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{fields.FieldStatus: models.OutboxStatusPending},
		bson.M{
			fields.FieldStatus:    models.OutboxStatusProcessing,
			fields.FieldUpdatedAt: bson.M{"$lt": now.Add(-claimTimeout)},
		},
	}}
}

// ClaimAndFetchEvents claims a batch in three phases: find candidate ids, flip them to
// PROCESSING under a fresh claim id (the status filter acts as the optimistic lock against
// other workers), then read back exactly what this claim won.
func (d *OutboxDAO) ClaimAndFetchEvents(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	now := time.Now()

	// Phase 1: candidate ids only.
	findOptions := options.Find().
		SetSort(bson.D{{Key: fields.FieldCreatedAt, Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{fields.FieldObjectId: 1})

	cursor, err := d.outboxCollection.Find(ctx, claimableFilter(now), findOptions)
	if err != nil {
		d.logger.Error("ClaimAndFetchEvents: phase 1 Find failed", zap.Error(err))
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		d.logger.Error("ClaimAndFetchEvents: phase 1 decode failed", zap.Error(err))
		return nil, err
	}
	if len(results) == 0 {
		return []*models.OutboxMessage{}, nil
	}

	ids := make([]primitive.ObjectID, len(results))
	for i, res := range results {
		ids[i] = res.ID
	}

	// Phase 2: claim.
	claimID := primitive.NewObjectID()
	updateFilter := claimableFilter(now)
	updateFilter[fields.FieldObjectId] = bson.M{"$in": ids}
	update := bson.M{
		"$set": bson.M{
			fields.FieldStatus:        models.OutboxStatusProcessing,
			fields.FieldOutboxClaimID: claimID,
			fields.FieldUpdatedAt:     now,
		},
	}
	updateResult, err := d.outboxCollection.UpdateMany(ctx, updateFilter, update)
	if err != nil {
		d.logger.Error("ClaimAndFetchEvents: phase 2 UpdateMany failed", zap.Error(err))
		return nil, err
	}
	// Another worker won the race for all of them.
	if updateResult.ModifiedCount == 0 {
		return []*models.OutboxMessage{}, nil
	}

	// Phase 3: fetch what we claimed.
	claimedCursor, err := d.outboxCollection.Find(ctx, bson.M{fields.FieldOutboxClaimID: claimID},
		options.Find().SetSort(bson.D{{Key: fields.FieldCreatedAt, Value: 1}}))
	if err != nil {
		d.logger.Error("ClaimAndFetchEvents: phase 3 Find failed", zap.Error(err))
		return nil, err
	}

	var claimedMessages []*models.OutboxMessage
	if err = claimedCursor.All(ctx, &claimedMessages); err != nil {
		d.logger.Error("ClaimAndFetchEvents: phase 3 decode failed", zap.Error(err))
		return nil, err
	}
	return claimedMessages, nil
}

func (d *OutboxDAO) MarkAsProcessed(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			fields.FieldStatus:            models.OutboxStatusProcessed,
			fields.FieldOutboxProcessedAt: now,
			fields.FieldUpdatedAt:         now,
		},
	}
	_, err := d.outboxCollection.UpdateOne(ctx, bson.M{fields.FieldObjectId: id}, update)
	return err
}

// IncrementRetry returns the message to PENDING, or parks it as DEAD_LETTER once it has
// failed maxRetries times.
func (d *OutboxDAO) IncrementRetry(ctx context.Context, id primitive.ObjectID, errorMessage string, maxRetries int) error {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			fields.FieldOutboxRetries: bson.M{"$add": bson.A{"$" + fields.FieldOutboxRetries, 1}},
			fields.FieldOutboxError:   errorMessage,
			fields.FieldUpdatedAt:     time.Now(),
		}}},
		{{Key: "$set", Value: bson.M{
			fields.FieldStatus: bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$" + fields.FieldOutboxRetries, maxRetries}},
				models.OutboxStatusDeadLetter,
				models.OutboxStatusPending,
			}},
		}}},
	}
	_, err := d.outboxCollection.UpdateOne(ctx, bson.M{fields.FieldObjectId: id}, update)
	return err
}

var _ repository.OutboxRepository = (*OutboxDAO)(nil)

package mongodb

import (
	"context"
	"errors"
	"time"

	"petcare_settlement/internal/constants"
	"petcare_settlement/internal/dao/fields"
	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func NewFinalizationDAO(db *mongo.Database, logger *zap.Logger) *FinalizationDAO {
	return &FinalizationDAO{
		collection: db.Collection(CollectionFinalizations),
		logger:     logger.Named("FinalizationDAO"),
	}
}

// FinalizationDAO stores the pending-finalization journal used to recover online payments
// whose gateway outcome was never applied locally.
type FinalizationDAO struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

func (d *FinalizationDAO) Create(ctx context.Context, record *models.PendingFinalization) error {
	if _, err := d.collection.InsertOne(ctx, record); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		d.logger.Error("Create: InsertOne failed", zap.Error(err), zap.Stringer("paymentID", record.PaymentID))
		return err
	}
	return nil
}

func (d *FinalizationDAO) GetByPaymentID(ctx context.Context, paymentID primitive.ObjectID) (*models.PendingFinalization, error) {
	var record models.PendingFinalization
	err := d.collection.FindOne(ctx, bson.M{fields.FieldFinalizationPaymentID: paymentID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		d.logger.Error("GetByPaymentID: FindOne failed", zap.Error(err), zap.Stringer("paymentID", paymentID))
		return nil, err
	}
	return &record, nil
}

func (d *FinalizationDAO) SetIntentID(ctx context.Context, paymentID primitive.ObjectID, intentID string) error {
	return d.update(ctx, paymentID, bson.M{"$set": bson.M{
		fields.FieldFinalizationIntentID: intentID,
		fields.FieldUpdatedAt:            time.Now(),
	}})
}

// MarkCompleted closes a pending record. Records already closed are left untouched.
func (d *FinalizationDAO) MarkCompleted(ctx context.Context, paymentID primitive.ObjectID) error {
	return d.close(ctx, paymentID, constants.FinalizationStatusCompleted, "")
}

func (d *FinalizationDAO) MarkAbandoned(ctx context.Context, paymentID primitive.ObjectID, reason string) error {
	return d.close(ctx, paymentID, constants.FinalizationStatusAbandoned, reason)
}

func (d *FinalizationDAO) close(ctx context.Context, paymentID primitive.ObjectID, status, reason string) error {
	set := bson.M{
		fields.FieldStatus:    status,
		fields.FieldUpdatedAt: time.Now(),
	}
	if reason != "" {
		set[fields.FieldFinalizationLastError] = reason
	}
	filter := bson.M{
		fields.FieldFinalizationPaymentID: paymentID,
		fields.FieldStatus:                constants.FinalizationStatusPending,
	}
	if _, err := d.collection.UpdateOne(ctx, filter, bson.M{"$set": set}); err != nil {
		d.logger.Error("close: UpdateOne failed", zap.Error(err), zap.Stringer("paymentID", paymentID), zap.String("status", status))
		return err
	}
	return nil
}

// RecordAttempt bumps the attempt counter after a replay that could not complete.
func (d *FinalizationDAO) RecordAttempt(ctx context.Context, paymentID primitive.ObjectID, errorMessage string) error {
	return d.update(ctx, paymentID, bson.M{
		"$set": bson.M{
			fields.FieldFinalizationLastError: errorMessage,
			fields.FieldUpdatedAt:             time.Now(),
		},
		"$inc": bson.M{fields.FieldFinalizationAttempts: 1},
	})
}

func (d *FinalizationDAO) update(ctx context.Context, paymentID primitive.ObjectID, update bson.M) error {
	res, err := d.collection.UpdateOne(ctx, bson.M{fields.FieldFinalizationPaymentID: paymentID}, update)
	if err != nil {
		d.logger.Error("update: UpdateOne failed", zap.Error(err), zap.Stringer("paymentID", paymentID))
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindStale returns pending records not touched since olderThan, oldest first.
func (d *FinalizationDAO) FindStale(ctx context.Context, olderThan time.Time, limit int) ([]*models.PendingFinalization, error) {
	filter := bson.M{
		fields.FieldStatus:    constants.FinalizationStatusPending,
		fields.FieldUpdatedAt: bson.M{"$lte": olderThan},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: fields.FieldUpdatedAt, Value: 1}}).SetLimit(int64(limit))

	cursor, err := d.collection.Find(ctx, filter, findOptions)
	if err != nil {
		d.logger.Error("FindStale: Find failed", zap.Error(err))
		return nil, err
	}
	records := make([]*models.PendingFinalization, 0)
	if err := cursor.All(ctx, &records); err != nil {
		d.logger.Error("FindStale: cursor.All failed", zap.Error(err))
		return nil, err
	}
	return records, nil
}

var _ repository.FinalizationRepository = (*FinalizationDAO)(nil)

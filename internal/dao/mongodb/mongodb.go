package mongodb

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"petcare_settlement/internal/conf"
	"petcare_settlement/internal/dao/fields"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// NewMongoDB connects to MongoDB and returns the client with a cleanup function that
// disconnects it.
func NewMongoDB(cfg *conf.MongodbConfig, logger *zap.Logger) (*mongo.Client, func(), error) {
	log := logger.Named("MongoDB")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(buildURI(cfg)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	log.Info("Connected to MongoDB", zap.String("host", cfg.Host), zap.Int("port", cfg.Port), zap.String("db", cfg.DB))

	cleanup := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error("Failed to disconnect from MongoDB", zap.Error(err))
		}
	}
	return client, cleanup, nil
}

func buildURI(cfg *conf.MongodbConfig) string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/",
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	q := url.Values{}
	if cfg.ReplicaSet != "" {
		q.Set("replicaSet", cfg.ReplicaSet)
	}
	if cfg.AuthSource != "" {
		q.Set("authSource", cfg.AuthSource)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// EnsureIndexes creates the indexes the settlement invariants rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		CollectionInvoices: {
			{Keys: bson.D{{Key: fields.FieldUserID, Value: 1}, {Key: fields.FieldCreatedAt, Value: -1}, {Key: fields.FieldObjectId, Value: -1}}},
			{
				Keys:    bson.D{{Key: fields.FieldInvoiceSource, Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{fields.FieldInvoiceSource: bson.M{"$type": "string"}}),
			},
		},
		CollectionCoupons: {
			{
				Keys:    bson.D{{Key: fields.FieldCouponCode, Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{fields.FieldCouponKind: "public"}),
			},
			{Keys: bson.D{{Key: fields.FieldCouponOwnerID, Value: 1}, {Key: fields.FieldStatus, Value: 1}, {Key: fields.FieldCouponExpiryDate, Value: 1}}},
		},
		CollectionCouponRedemptions: {
			{
				Keys:    bson.D{{Key: fields.FieldRedemptionCouponID, Value: 1}, {Key: fields.FieldRedemptionPaymentID, Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: fields.FieldRedemptionCouponID, Value: 1}, {Key: fields.FieldUserID, Value: 1}}},
		},
		CollectionPayments: {
			{
				// At most one succeeded payment per invoice.
				Keys:    bson.D{{Key: fields.FieldPaymentInvoiceID, Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{fields.FieldStatus: "succeeded"}).SetName("one_succeeded_per_invoice"),
			},
			{
				Keys:    bson.D{{Key: fields.FieldPaymentGatewayIntentID, Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{fields.FieldPaymentGatewayIntentID: bson.M{"$type": "string"}}),
			},
			{Keys: bson.D{{Key: fields.FieldStatus, Value: 1}, {Key: fields.FieldCreatedAt, Value: -1}}},
		},
		CollectionFinalizations: {
			{Keys: bson.D{{Key: fields.FieldFinalizationPaymentID, Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: fields.FieldStatus, Value: 1}, {Key: fields.FieldUpdatedAt, Value: 1}}},
		},
		CollectionAuditLogs: {
			{Keys: bson.D{{Key: fields.FieldAuditEntityType, Value: 1}, {Key: fields.FieldAuditEntityID, Value: 1}, {Key: fields.FieldCreatedAt, Value: 1}}},
		},
		CollectionOutbox: {
			{Keys: bson.D{{Key: fields.FieldStatus, Value: 1}, {Key: fields.FieldCreatedAt, Value: 1}}},
			{Keys: bson.D{{Key: fields.FieldOutboxClaimID, Value: 1}}},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func isDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

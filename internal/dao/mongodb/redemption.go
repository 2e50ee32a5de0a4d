package mongodb

import (
	"context"
	"errors"

	"petcare_settlement/internal/dao/fields"
	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func NewRedemptionDAO(db *mongo.Database, logger *zap.Logger) *RedemptionDAO {
	return &RedemptionDAO{
		collection: db.Collection(CollectionCouponRedemptions),
		logger:     logger.Named("RedemptionDAO"),
	}
}

type RedemptionDAO struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// CreateRedemption returns ErrDuplicate when the payment already redeemed this coupon.
func (d *RedemptionDAO) CreateRedemption(ctx context.Context, redemption *models.CouponRedemption) error {
	if _, err := d.collection.InsertOne(ctx, redemption); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		d.logger.Error("CreateRedemption: InsertOne failed", zap.Error(err), zap.Stringer("couponID", redemption.CouponID))
		return err
	}
	return nil
}

func (d *RedemptionDAO) GetRedemptionByPayment(ctx context.Context, couponID, paymentID primitive.ObjectID) (*models.CouponRedemption, error) {
	var redemption models.CouponRedemption
	filter := bson.M{
		fields.FieldRedemptionCouponID:  couponID,
		fields.FieldRedemptionPaymentID: paymentID,
	}
	if err := d.collection.FindOne(ctx, filter).Decode(&redemption); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		d.logger.Error("GetRedemptionByPayment: FindOne failed", zap.Error(err), zap.Stringer("couponID", couponID))
		return nil, err
	}
	return &redemption, nil
}

func (d *RedemptionDAO) CountRedemptionsByUser(ctx context.Context, couponID, userID primitive.ObjectID) (int64, error) {
	n, err := d.collection.CountDocuments(ctx, bson.M{
		fields.FieldRedemptionCouponID: couponID,
		fields.FieldUserID:             userID,
	})
	if err != nil {
		d.logger.Error("CountRedemptionsByUser: CountDocuments failed", zap.Error(err), zap.Stringer("couponID", couponID))
		return 0, err
	}
	return n, nil
}

var _ repository.RedemptionRepository = (*RedemptionDAO)(nil)

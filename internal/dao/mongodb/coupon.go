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

func NewCouponDAO(db *mongo.Database, logger *zap.Logger) *CouponDAO {
	return &CouponDAO{
		couponsCollection: db.Collection(CollectionCoupons),
		logger:            logger.Named("CouponDAO"),
	}
}

type CouponDAO struct {
	couponsCollection *mongo.Collection
	logger            *zap.Logger
}

func (d *CouponDAO) CreateCoupon(ctx context.Context, coupon *models.Coupon) (primitive.ObjectID, error) {
	res, err := d.couponsCollection.InsertOne(ctx, coupon)
	if err != nil {
		if isDuplicateKey(err) {
			return primitive.NilObjectID, ErrDuplicate
		}
		d.logger.Error("CreateCoupon: InsertOne failed", zap.Error(err), zap.String("code", coupon.Code))
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (d *CouponDAO) GetCouponByID(ctx context.Context, id primitive.ObjectID) (*models.Coupon, error) {
	return d.findOne(ctx, bson.M{fields.FieldObjectId: id})
}

// GetCouponByCode only matches public coupons; issued grants are never redeemable by code.
func (d *CouponDAO) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return d.findOne(ctx, bson.M{
		fields.FieldCouponCode: code,
		fields.FieldCouponKind: constants.CouponKindPublic,
	})
}

func (d *CouponDAO) findOne(ctx context.Context, filter bson.M) (*models.Coupon, error) {
	var coupon models.Coupon
	err := d.couponsCollection.FindOne(ctx, filter).Decode(&coupon)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		d.logger.Error("findOne: FindOne failed", zap.Error(err), zap.Any("filter", filter))
		return nil, err
	}
	return &coupon, nil
}

// GetAvailableIssuedCoupons lists the owner's unexpired, unconsumed grants whose minimum is
// satisfied by the invoice total, soonest expiry first.
func (d *CouponDAO) GetAvailableIssuedCoupons(ctx context.Context, params *repository.GetAvailableCouponsParams) ([]*models.Coupon, error) {
	filter := bson.M{
		fields.FieldCouponKind:    constants.CouponKindIssued,
		fields.FieldCouponOwnerID: params.OwnerID,
		fields.FieldStatus:        constants.CouponStatusAvailable.String(),
		fields.FieldCouponExpiryDate: bson.M{
			"$gt": params.Now,
		},
		fields.FieldCouponMinInvoice: bson.M{"$lte": params.InvoiceTotal},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: fields.FieldCouponExpiryDate, Value: 1}})

	cursor, err := d.couponsCollection.Find(ctx, filter, findOptions)
	if err != nil {
		d.logger.Error("GetAvailableIssuedCoupons: Find failed", zap.Error(err), zap.Stringer("ownerID", params.OwnerID))
		return nil, err
	}
	coupons := make([]*models.Coupon, 0)
	if err := cursor.All(ctx, &coupons); err != nil {
		d.logger.Error("GetAvailableIssuedCoupons: cursor.All failed", zap.Error(err))
		return nil, err
	}
	return coupons, nil
}

// ConsumeCoupon atomically records one use of the coupon. The filter re-checks availability,
// expiry and the global usage limit, so two racing consumers cannot both succeed on the last
// use. Issued coupons, and public coupons reaching their limit, flip to consumed.
func (d *CouponDAO) ConsumeCoupon(ctx context.Context, params *repository.ConsumeCouponParams) (*models.Coupon, error) {
	filter := bson.M{
		fields.FieldObjectId:         params.CouponID,
		fields.FieldStatus:           constants.CouponStatusAvailable.String(),
		fields.FieldCouponExpiryDate: bson.M{"$gt": params.Now},
		"$or": bson.A{
			bson.M{fields.FieldCouponKind: constants.CouponKindIssued},
			bson.M{fields.FieldCouponUsageLimit: 0},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$" + fields.FieldCouponUsedCount, "$" + fields.FieldCouponUsageLimit}}},
		},
	}

	exhausted := bson.M{"$or": bson.A{
		bson.M{"$eq": bson.A{"$" + fields.FieldCouponKind, constants.CouponKindIssued}},
		bson.M{"$and": bson.A{
			bson.M{"$gt": bson.A{"$" + fields.FieldCouponUsageLimit, 0}},
			bson.M{"$gte": bson.A{"$" + fields.FieldCouponUsedCount, "$" + fields.FieldCouponUsageLimit}},
		}},
	}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			fields.FieldCouponUsedCount: bson.M{"$add": bson.A{"$" + fields.FieldCouponUsedCount, 1}},
			fields.FieldUpdatedAt:       params.Now,
		}}},
		{{Key: "$set", Value: bson.M{
			fields.FieldStatus: bson.M{"$cond": bson.A{exhausted, constants.CouponStatusConsumed.String(), "$" + fields.FieldStatus}},
			fields.FieldCouponConsumedAt: bson.M{"$cond": bson.A{exhausted, params.Now, "$" + fields.FieldCouponConsumedAt}},
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var coupon models.Coupon
	err := d.couponsCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&coupon)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			n, cErr := d.couponsCollection.CountDocuments(ctx, bson.M{fields.FieldObjectId: params.CouponID})
			if cErr != nil {
				return nil, cErr
			}
			if n == 0 {
				return nil, ErrNotFound
			}
			return nil, ErrStatusMismatch
		}
		d.logger.Error("ConsumeCoupon: FindOneAndUpdate failed", zap.Error(err), zap.Stringer("couponID", params.CouponID))
		return nil, err
	}
	return &coupon, nil
}

// ExpireCoupons marks every available coupon past its expiry date as expired.
func (d *CouponDAO) ExpireCoupons(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		fields.FieldStatus:           constants.CouponStatusAvailable.String(),
		fields.FieldCouponExpiryDate: bson.M{"$lte": now},
	}
	update := repository.Apply(repository.WithStatus(constants.CouponStatusExpired.String())).Document(now)
	res, err := d.couponsCollection.UpdateMany(ctx, filter, update)
	if err != nil {
		d.logger.Error("ExpireCoupons: UpdateMany failed", zap.Error(err))
		return 0, err
	}
	return res.ModifiedCount, nil
}

var _ repository.CouponRepository = (*CouponDAO)(nil)

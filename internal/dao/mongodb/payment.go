package mongodb

import (
	"context"
	"errors"
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

func NewPaymentDAO(db *mongo.Database, logger *zap.Logger) *PaymentDAO {
	return &PaymentDAO{
		paymentsCollection: db.Collection(CollectionPayments),
		logger:             logger.Named("PaymentDAO"),
	}
}

type PaymentDAO struct {
	paymentsCollection *mongo.Collection
	logger             *zap.Logger
}

func (d *PaymentDAO) CreatePayment(ctx context.Context, payment *models.Payment) (primitive.ObjectID, error) {
	res, err := d.paymentsCollection.InsertOne(ctx, payment)
	if err != nil {
		if isDuplicateKey(err) {
			return primitive.NilObjectID, ErrDuplicate
		}
		d.logger.Error("CreatePayment: InsertOne failed", zap.Error(err), zap.Stringer("invoiceID", payment.InvoiceID))
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (d *PaymentDAO) GetPaymentByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	return d.findOne(ctx, bson.M{fields.FieldObjectId: id})
}

func (d *PaymentDAO) GetPaymentByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	return d.findOne(ctx, bson.M{fields.FieldPaymentGatewayIntentID: intentID})
}

func (d *PaymentDAO) findOne(ctx context.Context, filter bson.M) (*models.Payment, error) {
	var payment models.Payment
	if err := d.paymentsCollection.FindOne(ctx, filter).Decode(&payment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		d.logger.Error("findOne: FindOne failed", zap.Error(err), zap.Any("filter", filter))
		return nil, err
	}
	return &payment, nil
}

// ListPayments returns one page of payments, newest first, and the total number matching.
func (d *PaymentDAO) ListPayments(ctx context.Context, params *repository.ListPaymentsParams) ([]*models.Payment, int64, error) {
	filter := bson.M{}
	if params.Status != "" {
		filter[fields.FieldStatus] = params.Status
	}
	if params.InvoiceID != nil {
		filter[fields.FieldPaymentInvoiceID] = *params.InvoiceID
	}

	total, err := d.paymentsCollection.CountDocuments(ctx, filter)
	if err != nil {
		d.logger.Error("ListPayments: CountDocuments failed", zap.Error(err))
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: fields.FieldCreatedAt, Value: -1}}).
		SetSkip(params.Skip).
		SetLimit(params.Limit)
	cursor, err := d.paymentsCollection.Find(ctx, filter, findOptions)
	if err != nil {
		d.logger.Error("ListPayments: Find failed", zap.Error(err))
		return nil, 0, err
	}
	payments := make([]*models.Payment, 0)
	if err := cursor.All(ctx, &payments); err != nil {
		d.logger.Error("ListPayments: cursor.All failed", zap.Error(err))
		return nil, 0, err
	}
	return payments, total, nil
}

// TransitionPayment changes the status only while the payment is still in params.From.
func (d *PaymentDAO) TransitionPayment(ctx context.Context, params *repository.TransitionPaymentParams, opts ...repository.UpdateOption) error {
	filter := bson.M{
		fields.FieldObjectId: params.PaymentID,
		fields.FieldStatus:   params.From.String(),
	}
	update := repository.Apply(append(opts, repository.WithStatus(params.To.String()))...).Document(time.Now())

	res, err := d.paymentsCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		if isDuplicateKey(err) {
			// one_succeeded_per_invoice rejected a second succeeded payment
			return ErrStatusMismatch
		}
		d.logger.Error("TransitionPayment: UpdateOne failed", zap.Error(err), zap.Stringer("id", params.PaymentID))
		return err
	}
	if res.MatchedCount == 0 {
		n, err := d.paymentsCollection.CountDocuments(ctx, bson.M{fields.FieldObjectId: params.PaymentID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrStatusMismatch
	}
	return nil
}

// UpdatePayment applies field updates without a status precondition.
func (d *PaymentDAO) UpdatePayment(ctx context.Context, id primitive.ObjectID, opts ...repository.UpdateOption) error {
	updateData := repository.Apply(opts...)
	if len(updateData.SetFields) == 0 && len(updateData.IncFields) == 0 {
		return nil
	}

	res, err := d.paymentsCollection.UpdateOne(ctx, bson.M{fields.FieldObjectId: id}, updateData.Document(time.Now()))
	if err != nil {
		d.logger.Error("UpdatePayment: UpdateOne failed", zap.Error(err), zap.Stringer("id", id))
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

var _ repository.PaymentRepository = (*PaymentDAO)(nil)

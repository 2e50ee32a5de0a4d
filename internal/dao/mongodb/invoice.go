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

func NewInvoiceDAO(db *mongo.Database, logger *zap.Logger) *InvoiceDAO {
	return &InvoiceDAO{
		invoicesCollection: db.Collection(CollectionInvoices),
		logger:             logger.Named("InvoiceDAO"),
	}
}

type InvoiceDAO struct {
	invoicesCollection *mongo.Collection
	logger             *zap.Logger
}

func (d *InvoiceDAO) CreateInvoice(ctx context.Context, invoice *models.Invoice) (primitive.ObjectID, error) {
	res, err := d.invoicesCollection.InsertOne(ctx, invoice)
	if err != nil {
		if isDuplicateKey(err) {
			return primitive.NilObjectID, ErrDuplicate
		}
		d.logger.Error("CreateInvoice: InsertOne failed", zap.Error(err), zap.String("source", invoice.Source))
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (d *InvoiceDAO) GetInvoiceByID(ctx context.Context, id primitive.ObjectID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := d.invoicesCollection.FindOne(ctx, bson.M{fields.FieldObjectId: id}).Decode(&invoice)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		d.logger.Error("GetInvoiceByID: FindOne failed", zap.Error(err), zap.Stringer("id", id))
		return nil, err
	}
	return &invoice, nil
}

// GetInvoiceBySource looks an invoice up by the booking reference that created it.
func (d *InvoiceDAO) GetInvoiceBySource(ctx context.Context, source string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := d.invoicesCollection.FindOne(ctx, bson.M{fields.FieldInvoiceSource: source}).Decode(&invoice)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		d.logger.Error("GetInvoiceBySource: FindOne failed", zap.Error(err), zap.String("source", source))
		return nil, err
	}
	return &invoice, nil
}

// GetInvoicesByUser returns a page of the user's invoices, newest first, continuing after the
// (created_at, _id) cursor when one is given.
func (d *InvoiceDAO) GetInvoicesByUser(ctx context.Context, params *repository.GetInvoicesByUserParams) ([]*models.Invoice, error) {
	filter := bson.M{fields.FieldUserID: params.UserID}
	if !params.CursorID.IsZero() {
		filter["$or"] = bson.A{
			bson.M{fields.FieldCreatedAt: bson.M{"$lt": params.CursorCreatedAt}},
			bson.M{fields.FieldCreatedAt: params.CursorCreatedAt, fields.FieldObjectId: bson.M{"$lt": params.CursorID}},
		}
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: fields.FieldCreatedAt, Value: -1}, {Key: fields.FieldObjectId, Value: -1}}).
		SetLimit(params.Limit)

	cursor, err := d.invoicesCollection.Find(ctx, filter, findOptions)
	if err != nil {
		d.logger.Error("GetInvoicesByUser: Find failed", zap.Error(err), zap.Stringer("userID", params.UserID))
		return nil, err
	}
	invoices := make([]*models.Invoice, 0)
	if err := cursor.All(ctx, &invoices); err != nil {
		d.logger.Error("GetInvoicesByUser: cursor.All failed", zap.Error(err), zap.Stringer("userID", params.UserID))
		return nil, err
	}
	return invoices, nil
}

// TransitionInvoice moves an invoice from one status to another. It matches on the current
// status (and optionally the active payment) so a concurrent writer that got there first makes
// this call return ErrStatusMismatch instead of silently overwriting.
func (d *InvoiceDAO) TransitionInvoice(ctx context.Context, params *repository.TransitionInvoiceParams, opts ...repository.UpdateOption) error {
	filter := bson.M{
		fields.FieldObjectId: params.InvoiceID,
		fields.FieldStatus:   params.From.String(),
	}
	if params.CheckActivePayment {
		filter[fields.FieldInvoiceActivePayment] = params.ActivePayment
	}

	updateData := repository.Apply(append(opts, repository.WithStatus(params.To.String()))...)
	res, err := d.invoicesCollection.UpdateOne(ctx, filter, updateData.Document(time.Now()))
	if err != nil {
		d.logger.Error("TransitionInvoice: UpdateOne failed", zap.Error(err), zap.Stringer("id", params.InvoiceID))
		return err
	}
	if res.MatchedCount == 0 {
		return d.mismatchOrMissing(ctx, params.InvoiceID)
	}
	return nil
}

// SwapActivePayment replaces the active payment of a pending invoice, provided it is still
// the expected one.
func (d *InvoiceDAO) SwapActivePayment(ctx context.Context, params *repository.SwapActivePaymentParams) error {
	filter := bson.M{
		fields.FieldObjectId:             params.InvoiceID,
		fields.FieldStatus:               constants.InvoiceStatusPending.String(),
		fields.FieldInvoiceActivePayment: params.Expected,
	}
	update := repository.Apply(repository.WithActivePayment(params.Next)).Document(time.Now())

	res, err := d.invoicesCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		d.logger.Error("SwapActivePayment: UpdateOne failed", zap.Error(err), zap.Stringer("id", params.InvoiceID))
		return err
	}
	if res.MatchedCount == 0 {
		return d.mismatchOrMissing(ctx, params.InvoiceID)
	}
	return nil
}

func (d *InvoiceDAO) mismatchOrMissing(ctx context.Context, id primitive.ObjectID) error {
	n, err := d.invoicesCollection.CountDocuments(ctx, bson.M{fields.FieldObjectId: id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStatusMismatch
}

var _ repository.InvoiceRepository = (*InvoiceDAO)(nil)

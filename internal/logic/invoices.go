package logic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"petcare_settlement/internal/constants"
	"petcare_settlement/internal/dao/mongodb"
	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/dto"
	"petcare_settlement/internal/helper"
	"petcare_settlement/internal/models"
	"petcare_settlement/pkg/pagination"
	"petcare_settlement/pkg/snowflake"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const invoicePageSize = 20

var totalsTolerance = decimal.New(1, -2)

// InvoiceLogic defines the invoice store operations that do not move money.
type InvoiceLogic interface {
	GetInvoice(ctx context.Context, id primitive.ObjectID) (*dto.InvoiceView, error)
	GetUserInvoice(ctx context.Context, id, userID primitive.ObjectID) (*dto.InvoiceView, error)
	ListInvoices(ctx context.Context, userID primitive.ObjectID, token pagination.PageToken) ([]*dto.InvoiceView, pagination.PageToken, error)
	CreateInvoice(ctx context.Context, d *dto.CreateInvoiceRequest) (*models.Invoice, error)
	IssueInvoice(ctx context.Context, d *dto.InvoiceActionRequest) error
}

var _ InvoiceLogic = (*invoiceLogic)(nil)

// InvoicePolicy holds the defaults applied to new invoices.
type InvoicePolicy struct {
	TaxRate  decimal.Decimal
	Currency string
	DueIn    time.Duration
}

type invoiceLogic struct {
	invoiceRepo  repository.InvoiceRepository
	auditLogRepo repository.AuditLogRepository
	idGenerator  *snowflake.Generator
	policy       InvoicePolicy
	logger       *zap.Logger
}

func NewInvoiceLogic(invoiceRepo repository.InvoiceRepository, auditLogRepo repository.AuditLogRepository, idGenerator *snowflake.Generator, policy InvoicePolicy, logger *zap.Logger) *invoiceLogic {
	return &invoiceLogic{
		invoiceRepo:  invoiceRepo,
		auditLogRepo: auditLogRepo,
		idGenerator:  idGenerator,
		policy:       policy,
		logger:       logger.Named("InvoiceLogic"),
	}
}

// invoiceTotals recomputes the totals of a stored invoice with the tax rate it was created
// with.
func invoiceTotals(inv *models.Invoice) (Totals, error) {
	rate, err := helper.ToDecimal(inv.TaxRate)
	if err != nil {
		return Totals{}, fmt.Errorf("invalid tax rate on invoice %s: %w", inv.ID.Hex(), err)
	}
	return ComputeTotals(inv.LineItems, inv.SubtotalOverride, rate)
}

func (l *invoiceLogic) view(inv *models.Invoice) (*dto.InvoiceView, error) {
	totals, err := invoiceTotals(inv)
	if err != nil {
		return nil, err
	}
	if stored, err := helper.ToDecimal(inv.Total); err == nil && stored.Sub(totals.Total).Abs().GreaterThan(totalsTolerance) {
		l.logger.Warn("stored invoice total diverges from line items",
			zap.Stringer("invoiceID", inv.ID),
			zap.String("stored", stored.StringFixed(2)),
			zap.String("computed", totals.Total.StringFixed(2)))
	}
	return &dto.InvoiceView{
		Invoice:  inv,
		Subtotal: totals.Subtotal.StringFixed(2),
		Tax:      totals.Tax.StringFixed(2),
		Total:    totals.Total.StringFixed(2),
	}, nil
}

func (l *invoiceLogic) GetInvoice(ctx context.Context, id primitive.ObjectID) (*dto.InvoiceView, error) {
	inv, err := l.invoiceRepo.GetInvoiceByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongodb.ErrNotFound) {
			return nil, fmt.Errorf("invoice %s: %w", id.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return l.view(inv)
}

// GetUserInvoice is GetInvoice for a customer; other users' invoices are Forbidden.
func (l *invoiceLogic) GetUserInvoice(ctx context.Context, id, userID primitive.ObjectID) (*dto.InvoiceView, error) {
	v, err := l.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Invoice.UserID != userID {
		return nil, fmt.Errorf("invoice %s: %w", id.Hex(), ErrForbidden)
	}
	return v, nil
}

func (l *invoiceLogic) ListInvoices(ctx context.Context, userID primitive.ObjectID, token pagination.PageToken) ([]*dto.InvoiceView, pagination.PageToken, error) {
	params := &repository.GetInvoicesByUserParams{
		UserID: userID,
		Limit:  invoicePageSize + 1,
	}
	cursor, err := token.Decode()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if cursor != nil {
		params.CursorID, params.CursorCreatedAt = cursor.Position()
	}

	invoices, err := l.invoiceRepo.GetInvoicesByUser(ctx, params)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list invoices: %w", err)
	}

	var next pagination.PageToken
	if len(invoices) > invoicePageSize {
		invoices = invoices[:invoicePageSize]
		last := invoices[len(invoices)-1]
		if next, err = pagination.NewCursor(last.ID, last.CreatedAt).Token(); err != nil {
			return nil, "", fmt.Errorf("failed to generate page token: %w", err)
		}
	}

	views := make([]*dto.InvoiceView, 0, len(invoices))
	for _, inv := range invoices {
		v, err := l.view(inv)
		if err != nil {
			return nil, "", err
		}
		views = append(views, v)
	}
	return views, next, nil
}

// CreateInvoice stores a new invoice for a booking. A second call with the same source
// returns the invoice created by the first.
func (l *invoiceLogic) CreateInvoice(ctx context.Context, d *dto.CreateInvoiceRequest) (*models.Invoice, error) {
	if d.GetUserID().IsZero() {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if len(d.GetLineItems()) == 0 && d.GetSubtotalOverride() == nil {
		return nil, fmt.Errorf("%w: an invoice needs line items or a subtotal", ErrValidation)
	}

	source := strings.TrimSpace(d.GetSource())
	if source != "" {
		existing, err := l.invoiceRepo.GetInvoiceBySource(ctx, source)
		if err == nil {
			if existing.UserID != d.GetUserID() {
				return nil, fmt.Errorf("source %q belongs to another user: %w", source, ErrConflict)
			}
			return existing, nil
		}
		if !errors.Is(err, mongodb.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up invoice by source: %w", err)
		}
	}

	items := make([]models.LineItem, 0, len(d.GetLineItems()))
	for i, item := range d.GetLineItems() {
		if item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: negative unit price on line %d", ErrValidation, i)
		}
		if strings.TrimSpace(item.Description) == "" {
			return nil, fmt.Errorf("%w: line %d has no description", ErrValidation, i)
		}
		items = append(items, models.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   helper.MustMoney128(item.UnitPrice),
			LineTotal:   helper.MustMoney128(lineTotal(item.Quantity, item.UnitPrice)),
		})
	}

	var override *primitive.Decimal128
	if o := d.GetSubtotalOverride(); o != nil {
		if o.IsNegative() {
			return nil, fmt.Errorf("%w: negative subtotal", ErrValidation)
		}
		override = lo.ToPtr(helper.MustMoney128(*o))
	}

	rate, err := helper.ToDecimal128(l.policy.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("invalid tax rate: %w", err)
	}
	totals, err := ComputeTotals(items, override, l.policy.TaxRate)
	if err != nil {
		return nil, err
	}

	serial, err := l.idGenerator.GetID()
	if err != nil {
		l.logger.Error("failed to generate snowflake id", zap.Error(err))
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now()
	status := constants.InvoiceStatusPending
	if !d.GetIssue() {
		status = constants.InvoiceStatusDraft
	}
	dueDate := d.GetDueDate()
	if dueDate.IsZero() {
		dueDate = now.Add(l.policy.DueIn)
	}
	currency := strings.ToLower(d.GetCurrency())
	if currency == "" {
		currency = l.policy.Currency
	}

	invoice := &models.Invoice{
		ID:               primitive.NewObjectID(),
		Serial:           serial,
		UserID:           d.GetUserID(),
		Source:           source,
		Currency:         currency,
		LineItems:        items,
		SubtotalOverride: override,
		Subtotal:         helper.MustMoney128(totals.Subtotal),
		TaxRate:          rate,
		Tax:              helper.MustMoney128(totals.Tax),
		Total:            helper.MustMoney128(totals.Total),
		Status:           status.String(),
		DueDate:          dueDate,
		CreatedAt:        now,
		UpdatedAt:        now,
		UpdatedBy:        d.GetOperator(),
	}

	if _, err := l.invoiceRepo.CreateInvoice(ctx, invoice); err != nil {
		if errors.Is(err, mongodb.ErrDuplicate) && source != "" {
			// Lost a race with another delivery of the same booking.
			return l.invoiceRepo.GetInvoiceBySource(ctx, source)
		}
		return nil, fmt.Errorf("failed to create invoice in repository: %w", err)
	}

	if err := l.auditLogRepo.Create(ctx, buildCreateInvoiceAuditLog(d.GetOperator(), invoice)); err != nil {
		l.logger.Error("CreateInvoice: Failed to create audit log", zap.Error(err))
	}
	return invoice, nil
}

// IssueInvoice moves a draft invoice to pending so it can be paid.
func (l *invoiceLogic) IssueInvoice(ctx context.Context, d *dto.InvoiceActionRequest) error {
	err := l.invoiceRepo.TransitionInvoice(ctx, &repository.TransitionInvoiceParams{
		InvoiceID: d.GetInvoiceID(),
		From:      constants.InvoiceStatusDraft,
		To:        constants.InvoiceStatusPending,
	}, repository.WithUpdatedBy(d.GetOperator()))
	if err != nil {
		return mapInvoiceTransitionError(d.GetInvoiceID(), err)
	}

	log := buildInvoiceStatusAuditLog(d.GetOperator(), constants.AuditActionIssueInvoice, d.GetInvoiceID(),
		constants.InvoiceStatusDraft, constants.InvoiceStatusPending, d.GetReason())
	if err := l.auditLogRepo.Create(ctx, log); err != nil {
		l.logger.Error("IssueInvoice: Failed to create audit log", zap.Error(err))
	}
	return nil
}

func mapInvoiceTransitionError(id primitive.ObjectID, err error) error {
	switch {
	case errors.Is(err, mongodb.ErrNotFound):
		return fmt.Errorf("invoice %s: %w", id.Hex(), ErrNotFound)
	case errors.Is(err, mongodb.ErrStatusMismatch):
		return fmt.Errorf("invoice %s: %w", id.Hex(), ErrInvalidState)
	default:
		return fmt.Errorf("failed to update invoice %s: %w", id.Hex(), err)
	}
}

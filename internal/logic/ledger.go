package logic

import (
	"context"
	"errors"
	"fmt"

	"petcare_settlement/internal/constants"
	"petcare_settlement/internal/dao/mongodb"
	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/models"
	"petcare_settlement/pkg/pagination"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// LedgerLogic reads the payment ledger. Payments are only written by SettlementLogic.
type LedgerLogic interface {
	GetPayment(ctx context.Context, id primitive.ObjectID) (*models.Payment, error)
	GetPaymentByIntent(ctx context.Context, intentID string) (*models.Payment, error)
	ListPayments(ctx context.Context, status string, invoiceID *primitive.ObjectID, page pagination.PageRequest) (*pagination.Page[*models.Payment], error)
}

var _ LedgerLogic = (*ledgerLogic)(nil)

type ledgerLogic struct {
	paymentRepo repository.PaymentRepository
	logger      *zap.Logger
}

func NewLedgerLogic(paymentRepo repository.PaymentRepository, logger *zap.Logger) *ledgerLogic {
	return &ledgerLogic{
		paymentRepo: paymentRepo,
		logger:      logger.Named("LedgerLogic"),
	}
}

func (l *ledgerLogic) GetPayment(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	p, err := l.paymentRepo.GetPaymentByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongodb.ErrNotFound) {
			return nil, fmt.Errorf("payment %s: %w", id.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (l *ledgerLogic) GetPaymentByIntent(ctx context.Context, intentID string) (*models.Payment, error) {
	p, err := l.paymentRepo.GetPaymentByIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, mongodb.ErrNotFound) {
			return nil, fmt.Errorf("intent %s: %w", intentID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment by intent: %w", err)
	}
	return p, nil
}

// ListPayments returns payments newest first. status and invoiceID are optional filters.
func (l *ledgerLogic) ListPayments(ctx context.Context, status string, invoiceID *primitive.ObjectID, page pagination.PageRequest) (*pagination.Page[*models.Payment], error) {
	if status != "" && constants.ParsePaymentStatus(status) == constants.PaymentStatusUnknown {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidation, status)
	}
	payments, total, err := l.paymentRepo.ListPayments(ctx, &repository.ListPaymentsParams{
		Status:    status,
		InvoiceID: invoiceID,
		Skip:      page.Skip(),
		Limit:     page.Limit(),
	})
	if err != nil {
		l.logger.Error("ListPayments: repository failed", zap.Error(err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return pagination.NewPage(payments, total, page), nil
}

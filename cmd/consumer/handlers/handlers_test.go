package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"petcare_settlement/internal/conf"
	"petcare_settlement/internal/dto"
	"petcare_settlement/internal/logic"
	"petcare_settlement/internal/models"
	"petcare_settlement/internal/mq/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type mockInvoiceLogic struct {
	logic.InvoiceLogic
	mock.Mock
}

func (m *mockInvoiceLogic) CreateInvoice(ctx context.Context, d *dto.CreateInvoiceRequest) (*models.Invoice, error) {
	args := m.Called(ctx, d)
	if v := args.Get(0); v != nil {
		return v.(*models.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSettlementLogic struct {
	logic.SettlementLogic
	mock.Mock
}

func (m *mockSettlementLogic) MarkOfflinePaid(ctx context.Context, paymentID primitive.ObjectID, operator *models.User) (*models.Payment, error) {
	args := m.Called(ctx, paymentID, operator)
	if v := args.Get(0); v != nil {
		return v.(*models.Payment), args.Error(1)
	}
	return nil, args.Error(1)
}

var rmq = &conf.RabbitMQConfig{
	BookingCreatedQueue:    "settlement.booking_created",
	CounterReconciledQueue: "settlement.counter_reconciled",
}

func delivery(body string) amqp.Delivery {
	return amqp.Delivery{Body: []byte(body)}
}

func TestInvoiceBookingHandler(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()

	t.Run("OpensInvoice", func(t *testing.T) {
		invoices := new(mockInvoiceLogic)
		h := NewInvoiceBookingHandler(invoices, rmq, zap.NewNop())
		assert.Equal(t, "settlement.booking_created", h.QueueName())

		body := fmt.Sprintf(`{"bookingId":"bk-100","userId":"%s","items":[{"description":"Grooming","quantity":2,"unitPrice":"35.50"}]}`, userID.Hex())
		invoices.On("CreateInvoice", ctx, mock.MatchedBy(func(d *dto.CreateInvoiceRequest) bool {
			items := d.GetLineItems()
			return d.GetUserID() == userID &&
				d.GetSource() == "bk-100" &&
				d.GetIssue() &&
				d.GetOperator() == models.SystemUser &&
				len(items) == 1 &&
				items[0].UnitPrice.Equal(decimal.RequireFromString("35.50"))
		})).Return(&models.Invoice{ID: primitive.NewObjectID(), Status: "pending"}, nil).Once()

		require.NoError(t, h.Handle(ctx, delivery(body)))
		invoices.AssertExpectations(t)
	})

	t.Run("DiscardsMalformed", func(t *testing.T) {
		invoices := new(mockInvoiceLogic)
		h := NewInvoiceBookingHandler(invoices, rmq, zap.NewNop())

		for _, body := range []string{
			`not json`,
			`{"bookingId":"bk-1","userId":"nope","items":[{"description":"x","quantity":1,"unitPrice":"1"}]}`,
			fmt.Sprintf(`{"bookingId":"bk-1","userId":"%s","items":[]}`, userID.Hex()),
			fmt.Sprintf(`{"bookingId":"bk-1","userId":"%s","items":[{"description":"x","quantity":1,"unitPrice":"1.005"}]}`, userID.Hex()),
		} {
			err := h.Handle(ctx, delivery(body))
			assert.True(t, rabbitmq.IsDiscard(err), body)
		}
		invoices.AssertNotCalled(t, "CreateInvoice", mock.Anything, mock.Anything)
	})

	t.Run("RequeuesStorageErrors", func(t *testing.T) {
		invoices := new(mockInvoiceLogic)
		h := NewInvoiceBookingHandler(invoices, rmq, zap.NewNop())
		body := fmt.Sprintf(`{"bookingId":"bk-2","userId":"%s","items":[{"description":"Checkup","quantity":1,"unitPrice":"60"}]}`, userID.Hex())
		invoices.On("CreateInvoice", ctx, mock.Anything).Return(nil, errors.New("server selection timeout")).Once()

		err := h.Handle(ctx, delivery(body))
		require.Error(t, err)
		assert.False(t, rabbitmq.IsDiscard(err))
	})

	t.Run("DiscardsForeignBooking", func(t *testing.T) {
		invoices := new(mockInvoiceLogic)
		h := NewInvoiceBookingHandler(invoices, rmq, zap.NewNop())
		body := fmt.Sprintf(`{"bookingId":"bk-3","userId":"%s","items":[{"description":"Checkup","quantity":1,"unitPrice":"60"}]}`, userID.Hex())
		invoices.On("CreateInvoice", ctx, mock.Anything).Return(nil, fmt.Errorf("source taken: %w", logic.ErrConflict)).Once()

		assert.True(t, rabbitmq.IsDiscard(h.Handle(ctx, delivery(body))))
	})
}

func TestCounterReconciliationHandler(t *testing.T) {
	ctx := context.Background()
	paymentID := primitive.NewObjectID()
	operatorID := primitive.NewObjectID()
	body := fmt.Sprintf(`{"paymentId":"%s","operatorId":"%s","operatorName":"Front desk"}`, paymentID.Hex(), operatorID.Hex())

	t.Run("MarksPaid", func(t *testing.T) {
		settlement := new(mockSettlementLogic)
		h := NewCounterReconciliationHandler(settlement, rmq, zap.NewNop())
		assert.Equal(t, "settlement.counter_reconciled", h.QueueName())

		settlement.On("MarkOfflinePaid", ctx, paymentID, mock.MatchedBy(func(u *models.User) bool {
			return u.UserId == operatorID && u.Name == "Front desk"
		})).Return(&models.Payment{ID: paymentID, InvoiceID: primitive.NewObjectID()}, nil).Once()

		require.NoError(t, h.Handle(ctx, delivery(body)))
		settlement.AssertExpectations(t)
	})

	t.Run("DiscardsUnknownPayment", func(t *testing.T) {
		settlement := new(mockSettlementLogic)
		h := NewCounterReconciliationHandler(settlement, rmq, zap.NewNop())
		settlement.On("MarkOfflinePaid", ctx, paymentID, mock.Anything).Return(nil, fmt.Errorf("payment: %w", logic.ErrNotFound)).Once()

		assert.True(t, rabbitmq.IsDiscard(h.Handle(ctx, delivery(body))))
	})

	t.Run("RequeuesLockContention", func(t *testing.T) {
		settlement := new(mockSettlementLogic)
		h := NewCounterReconciliationHandler(settlement, rmq, zap.NewNop())
		settlement.On("MarkOfflinePaid", ctx, paymentID, mock.Anything).Return(nil, fmt.Errorf("%w: invoice busy", logic.ErrConflict)).Once()

		err := h.Handle(ctx, delivery(body))
		require.Error(t, err)
		assert.False(t, rabbitmq.IsDiscard(err))
	})

	t.Run("DiscardsMissingOperator", func(t *testing.T) {
		settlement := new(mockSettlementLogic)
		h := NewCounterReconciliationHandler(settlement, rmq, zap.NewNop())

		err := h.Handle(ctx, delivery(fmt.Sprintf(`{"paymentId":"%s"}`, paymentID.Hex())))
		assert.True(t, rabbitmq.IsDiscard(err))
		settlement.AssertNotCalled(t, "MarkOfflinePaid", mock.Anything, mock.Anything, mock.Anything)
	})
}

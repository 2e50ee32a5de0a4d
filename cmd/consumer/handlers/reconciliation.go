package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"petcare_settlement/internal/conf"
	"petcare_settlement/internal/logic"
	"petcare_settlement/internal/models"
	"petcare_settlement/internal/mq/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type counterReconciled struct {
	PaymentID    string `json:"paymentId" validate:"required,mongodb"`
	OperatorID   string `json:"operatorId" validate:"required,mongodb"`
	OperatorName string `json:"operatorName"`
}

// CounterReconciliationHandler settles offline payments the front desk confirmed at the
// till. Reconciling an already settled payment is a no-op.
type CounterReconciliationHandler struct {
	settlement logic.SettlementLogic
	queue      string
	logger     *zap.Logger
}

func NewCounterReconciliationHandler(settlement logic.SettlementLogic, cfg *conf.RabbitMQConfig, logger *zap.Logger) *CounterReconciliationHandler {
	return &CounterReconciliationHandler{
		settlement: settlement,
		queue:      cfg.CounterReconciledQueue,
		logger:     logger.Named("CounterReconciliationHandler"),
	}
}

func (h *CounterReconciliationHandler) QueueName() string {
	return h.queue
}

func (h *CounterReconciliationHandler) Handle(ctx context.Context, d amqp.Delivery) error {
	var msg counterReconciled
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return rabbitmq.Discard(fmt.Errorf("failed to unmarshal reconciliation: %w", err))
	}
	if err := validate.Struct(&msg); err != nil {
		return rabbitmq.Discard(fmt.Errorf("invalid reconciliation: %w", err))
	}

	paymentID, _ := primitive.ObjectIDFromHex(msg.PaymentID)
	operatorID, _ := primitive.ObjectIDFromHex(msg.OperatorID)
	operator := &models.User{UserId: operatorID, Name: msg.OperatorName}

	payment, err := h.settlement.MarkOfflinePaid(ctx, paymentID, operator)
	if err != nil {
		h.logger.Warn("Reconciliation failed", zap.String("paymentID", msg.PaymentID), zap.Error(err))
		return settle(err)
	}

	h.logger.Info("Offline payment reconciled",
		zap.Stringer("paymentID", payment.ID),
		zap.Stringer("invoiceID", payment.InvoiceID),
		zap.String("operatorID", msg.OperatorID))
	return nil
}

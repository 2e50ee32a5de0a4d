package logic

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"petcare_settlement/internal/constants"
	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentEventPublisher turns payment lifecycle changes into outbox messages.
type PaymentEventPublisher struct {
	outboxRepo        repository.OutboxRepository
	paymentEventTopic PaymentEventTopic
}

func NewPaymentEventPublisher(outboxRepo repository.OutboxRepository, paymentEventTopic PaymentEventTopic) *PaymentEventPublisher {
	return &PaymentEventPublisher{
		outboxRepo:        outboxRepo,
		paymentEventTopic: paymentEventTopic,
	}
}

// PaymentEvent is the message body consumers (receipts, booking) receive.
type PaymentEvent struct {
	Action     string `json:"action"`
	PaymentID  string `json:"payment_id"`
	InvoiceID  string `json:"invoice_id"`
	UserID     string `json:"user_id"`
	Channel    string `json:"channel"`
	Method     string `json:"method"`
	Amount     string `json:"amount"`
	Discount   string `json:"discount"`
	Currency   string `json:"currency"`
	CouponID   string `json:"coupon_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// PublishPaymentEvent writes an outbox message for the action. It must run in the same
// transaction as the state change it announces.
func (p *PaymentEventPublisher) PublishPaymentEvent(ctx context.Context, action constants.PaymentAction, payment *models.Payment, reason string) error {
	now := time.Now()
	event := PaymentEvent{
		Action:     action.String(),
		PaymentID:  payment.ID.Hex(),
		InvoiceID:  payment.InvoiceID.Hex(),
		UserID:     payment.UserID.Hex(),
		Channel:    payment.Channel,
		Method:     payment.Method,
		Amount:     payment.Amount.String(),
		Discount:   payment.Discount.String(),
		Currency:   payment.Currency,
		Reason:     reason,
		OccurredAt: now.UTC().Format(time.RFC3339),
	}
	if payment.CouponID != nil {
		event.CouponID = payment.CouponID.Hex()
	}
	payloadBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payment event payload: %w", err)
	}

	outboxMsg := &models.OutboxMessage{
		ID:            primitive.NewObjectID(),
		Topic:         string(p.paymentEventTopic),
		EventType:     "payment." + action.String(),
		AggregateID:   payment.ID,
		Payload:       string(payloadBytes),
		CorrelationID: uuid.NewString(),
		Status:        models.OutboxStatusPending,
		CreatedAt:     now,
	}

	if err := p.outboxRepo.Create(ctx, outboxMsg); err != nil {
		return fmt.Errorf("failed to create payment event outbox message: %w", err)
	}
	return nil
}

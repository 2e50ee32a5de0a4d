package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"petcare_settlement/internal/conf"
	"petcare_settlement/internal/dto"
	"petcare_settlement/internal/helper"
	"petcare_settlement/internal/logic"
	"petcare_settlement/internal/models"
	"petcare_settlement/internal/mq/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type bookingItem struct {
	Description string `json:"description" validate:"required"`
	Quantity    uint32 `json:"quantity" validate:"gte=1"`
	UnitPrice   string `json:"unitPrice" validate:"required"`
}

type bookingCreated struct {
	BookingID string        `json:"bookingId" validate:"required"`
	UserID    string        `json:"userId" validate:"required,mongodb"`
	Currency  string        `json:"currency" validate:"omitempty,len=3"`
	Items     []bookingItem `json:"items" validate:"required,min=1,dive"`
	DueDate   *time.Time    `json:"dueDate"`
	Draft     bool          `json:"draft"`
}

// InvoiceBookingHandler opens an invoice for every confirmed booking. The booking id is the
// invoice source, so redelivered messages return the invoice created the first time.
type InvoiceBookingHandler struct {
	invoices logic.InvoiceLogic
	queue    string
	logger   *zap.Logger
}

func NewInvoiceBookingHandler(invoices logic.InvoiceLogic, cfg *conf.RabbitMQConfig, logger *zap.Logger) *InvoiceBookingHandler {
	return &InvoiceBookingHandler{
		invoices: invoices,
		queue:    cfg.BookingCreatedQueue,
		logger:   logger.Named("InvoiceBookingHandler"),
	}
}

func (h *InvoiceBookingHandler) QueueName() string {
	return h.queue
}

func (h *InvoiceBookingHandler) Handle(ctx context.Context, d amqp.Delivery) error {
	var msg bookingCreated
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return rabbitmq.Discard(fmt.Errorf("failed to unmarshal booking: %w", err))
	}
	if err := validate.Struct(&msg); err != nil {
		return rabbitmq.Discard(fmt.Errorf("invalid booking %q: %w", msg.BookingID, err))
	}

	req, err := msg.toRequest()
	if err != nil {
		return rabbitmq.Discard(err)
	}

	inv, err := h.invoices.CreateInvoice(ctx, req)
	if err != nil {
		if errors.Is(err, logic.ErrConflict) {
			// Another user already owns this booking reference.
			return rabbitmq.Discard(err)
		}
		return settle(err)
	}

	h.logger.Info("Invoice opened for booking",
		zap.String("bookingID", msg.BookingID),
		zap.Stringer("invoiceID", inv.ID),
		zap.String("status", inv.Status))
	return nil
}

func (m *bookingCreated) toRequest() (*dto.CreateInvoiceRequest, error) {
	uid, err := primitive.ObjectIDFromHex(m.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", m.UserID, err)
	}

	items := make([]dto.LineItem, 0, len(m.Items))
	for i, it := range m.Items {
		price, err := helper.ParseMoney(it.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		items = append(items, dto.LineItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   price,
		})
	}

	var due time.Time
	if m.DueDate != nil {
		due = *m.DueDate
	}
	return dto.NewCreateInvoiceRequest(uid, m.BookingID, m.Currency, items, nil, due, !m.Draft, models.SystemUser), nil
}

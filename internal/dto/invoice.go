package dto

import (
	"time"

	"petcare_settlement/internal/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LineItem struct {
	Description string
	Quantity    uint32
	UnitPrice   decimal.Decimal
}

// --- CreateInvoice DTOs ---

type CreateInvoiceRequest struct {
	userID           primitive.ObjectID
	source           string
	currency         string
	lineItems        []LineItem
	subtotalOverride *decimal.Decimal
	dueDate          time.Time
	issue            bool
	operator         *models.User
}

func NewCreateInvoiceRequest(userID primitive.ObjectID, source, currency string, items []LineItem, subtotalOverride *decimal.Decimal, dueDate time.Time, issue bool, operator *models.User) *CreateInvoiceRequest {
	return &CreateInvoiceRequest{
		userID:           userID,
		source:           source,
		currency:         currency,
		lineItems:        items,
		subtotalOverride: subtotalOverride,
		dueDate:          dueDate,
		issue:            issue,
		operator:         operator,
	}
}

func (r *CreateInvoiceRequest) GetUserID() primitive.ObjectID        { return r.userID }
func (r *CreateInvoiceRequest) GetSource() string                    { return r.source }
func (r *CreateInvoiceRequest) GetCurrency() string                  { return r.currency }
func (r *CreateInvoiceRequest) GetLineItems() []LineItem             { return r.lineItems }
func (r *CreateInvoiceRequest) GetSubtotalOverride() *decimal.Decimal { return r.subtotalOverride }
func (r *CreateInvoiceRequest) GetDueDate() time.Time                { return r.dueDate }
func (r *CreateInvoiceRequest) GetIssue() bool                       { return r.issue }
func (r *CreateInvoiceRequest) GetOperator() *models.User            { return r.operator }

// --- Cancel/Refund DTOs ---

type InvoiceActionRequest struct {
	invoiceID primitive.ObjectID
	operator  *models.User
	reason    string
}

func NewInvoiceActionRequest(invoiceID primitive.ObjectID, operator *models.User, reason string) *InvoiceActionRequest {
	return &InvoiceActionRequest{
		invoiceID: invoiceID,
		operator:  operator,
		reason:    reason,
	}
}

func (r *InvoiceActionRequest) GetInvoiceID() primitive.ObjectID {
	return r.invoiceID
}

func (r *InvoiceActionRequest) GetOperator() *models.User {
	return r.operator
}

func (r *InvoiceActionRequest) GetReason() string {
	return r.reason
}

// InvoiceView is an invoice with its totals recomputed from the line items.
type InvoiceView struct {
	Invoice  *models.Invoice `json:"invoice"`
	Subtotal string          `json:"subtotal"`
	Tax      string          `json:"tax"`
	Total    string          `json:"total"`
}

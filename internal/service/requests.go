package service

import "time"

// --- frontend ---

type ListInvoicesQuery struct {
	PageToken string `form:"page_token"`
}

type ValidatePublicCouponRequest struct {
	Code         string `json:"code" binding:"required,max=64"`
	InvoiceTotal string `json:"invoiceTotal" binding:"required,money"`
	UserID       string `json:"userId" binding:"omitempty,mongodb"`
}

type ValidateIssuedCouponRequest struct {
	CouponID     string `json:"couponId" binding:"required,mongodb"`
	InvoiceTotal string `json:"invoiceTotal" binding:"required,money"`
	UserID       string `json:"userId" binding:"omitempty,mongodb"`
}

type AvailableCouponsQuery struct {
	UserID       string `form:"userId" binding:"omitempty,mongodb"`
	InvoiceTotal string `form:"invoiceTotal" binding:"required,money"`
}

type CreateIntentRequest struct {
	InvoiceID  string `json:"invoiceID" binding:"required,mongodb"`
	UserID     string `json:"userID" binding:"omitempty,mongodb"`
	CouponID   string `json:"couponId" binding:"omitempty,mongodb"`
	CouponCode string `json:"couponCode" binding:"omitempty,max=64"`
}

type ConfirmIntentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
}

type OfflinePaymentRequest struct {
	InvoiceID  string `json:"invoiceID" binding:"required,mongodb"`
	UserID     string `json:"userID" binding:"omitempty,mongodb"`
	Method     string `json:"method" binding:"required,oneof=cash card_terminal bank_transfer"`
	CouponID   string `json:"couponId" binding:"omitempty,mongodb"`
	CouponCode string `json:"couponCode" binding:"omitempty,max=64"`
}

// --- console ---

type LineItemRequest struct {
	Description string `json:"description" binding:"required"`
	Quantity    uint32 `json:"quantity"`
	UnitPrice   string `json:"unitPrice" binding:"required,money"`
}

type CreateInvoiceRequest struct {
	UserID           string            `json:"userId" binding:"required,mongodb"`
	Source           string            `json:"source" binding:"omitempty,max=128"`
	Currency         string            `json:"currency" binding:"omitempty,len=3"`
	LineItems        []LineItemRequest `json:"lineItems" binding:"dive"`
	SubtotalOverride *string           `json:"subtotalOverride" binding:"omitempty,money"`
	DueDate          *time.Time        `json:"dueDate"`
	// Issue defaults to true; false keeps the invoice as a draft.
	Issue *bool `json:"issue"`
}

type InvoiceActionBody struct {
	Reason string `json:"reason" binding:"max=512"`
}

type RedeemVoucherRequest struct {
	Voucher string `json:"voucher" binding:"required"`
}

type ListPaymentsQuery struct {
	Status    string `form:"status" binding:"omitempty,oneof=pending succeeded failed"`
	InvoiceID string `form:"invoiceId" binding:"omitempty,mongodb"`
	Page      int    `form:"page" binding:"gte=0"`
	PageSize  int    `form:"page_size" binding:"gte=0"`
}

type CreateCouponRequest struct {
	Kind             string    `json:"kind" binding:"required,oneof=public issued"`
	Code             string    `json:"code" binding:"max=64"`
	OwnerID          string    `json:"ownerId" binding:"omitempty,mongodb"`
	DiscountType     string    `json:"discountType" binding:"required,oneof=flat percent"`
	DiscountValue    string    `json:"discountValue" binding:"required,money"`
	MinInvoiceAmount string    `json:"minInvoiceAmount" binding:"omitempty,money"`
	ExpiryDate       time.Time `json:"expiryDate" binding:"required"`
	UsageLimit       int       `json:"usageLimit" binding:"gte=0"`
	PerUserLimit     int       `json:"perUserLimit" binding:"gte=0"`
}

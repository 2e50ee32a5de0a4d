package service

import (
	"io"
	"net/http"
	"time"

	"petcare_settlement/internal/dto"
	"petcare_settlement/internal/helper"
	"petcare_settlement/internal/logic"
	"petcare_settlement/pkg/pagination"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxWebhookBody caps the webhook payload read into memory.
const maxWebhookBody = 64 << 10

// SettlementService serves the customer facing routes.
type SettlementService struct {
	invoices   logic.InvoiceLogic
	coupons    logic.CouponLogic
	settlement logic.SettlementLogic
	ledger     logic.LedgerLogic
	logger     *zap.Logger
}

func NewSettlementService(invoices logic.InvoiceLogic, coupons logic.CouponLogic, settlement logic.SettlementLogic, ledger logic.LedgerLogic, logger *zap.Logger) *SettlementService {
	return &SettlementService{
		invoices:   invoices,
		coupons:    coupons,
		settlement: settlement,
		ledger:     ledger,
		logger:     logger.Named("SettlementService"),
	}
}

// authenticate returns the caller and checks an echoed body userId against it.
func (s *SettlementService) authenticate(c *gin.Context, claimed string) (primitive.ObjectID, bool) {
	uid, ok := getUserId(c)
	if !ok {
		ResponseError(c, http.StatusUnauthorized, "Unauthorized")
		return primitive.NilObjectID, false
	}
	if !sameUser(c, claimed) {
		s.logger.Warn("userId in request does not match caller",
			zap.Stringer("user_id", uid), zap.String("claimed", claimed))
		ResponseError(c, http.StatusForbidden, "permission denied")
		return primitive.NilObjectID, false
	}
	return uid, true
}

func (s *SettlementService) GetInvoice(c *gin.Context) {
	uid, ok := s.authenticate(c, "")
	if !ok {
		return
	}
	id, ok := pathObjectID(c, "id")
	if !ok {
		ResponseError(c, http.StatusBadRequest, "invalid invoice id")
		return
	}

	v, err := s.invoices.GetUserInvoice(c.Request.Context(), id, uid)
	if err != nil {
		handleError(c, s.logger, "GetInvoice", err)
		return
	}
	ResponseSuccess(c, v)
}

func (s *SettlementService) ListInvoices(c *gin.Context) {
	uid, ok := s.authenticate(c, "")
	if !ok {
		return
	}
	var q ListInvoicesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ResponseError(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}

	views, next, err := s.invoices.ListInvoices(c.Request.Context(), uid, pagination.PageToken(q.PageToken))
	if err != nil {
		handleError(c, s.logger, "ListInvoices", err)
		return
	}
	ResponseSuccess(c, gin.H{"invoices": views, "nextPageToken": string(next)})
}

func (s *SettlementService) ValidatePublicCoupon(c *gin.Context) {
	var req ValidatePublicCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ResponseError(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}
	uid, ok := s.authenticate(c, req.UserID)
	if !ok {
		return
	}
	total := decimal.RequireFromString(req.InvoiceTotal)

	q, err := s.coupons.ValidatePublicCoupon(c.Request.Context(), req.Code, uid, total)
	if err != nil {
		handleError(c, s.logger, "ValidatePublicCoupon", err)
		return
	}
	ResponseSuccess(c, couponPreview(q, total))
}

func (s *SettlementService) ValidateIssuedCoupon(c *gin.Context) {
	var req ValidateIssuedCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ResponseError(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}
	uid, ok := s.authenticate(c, req.UserID)
	if !ok {
		return
	}
	total := decimal.RequireFromString(req.InvoiceTotal)
	couponID, _ := primitive.ObjectIDFromHex(req.CouponID)

	q, err := s.coupons.ValidateIssuedCoupon(c.Request.Context(), couponID, uid, total)
	if err != nil {
		handleError(c, s.logger, "ValidateIssuedCoupon", err)
		return
	}
	ResponseSuccess(c, couponPreview(q, total))
}

func (s *SettlementService) ListAvailableCoupons(c *gin.Context) {
	var q AvailableCouponsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ResponseError(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}
	uid, ok := s.authenticate(c, q.UserID)
	if !ok {
		return
	}
	total := decimal.RequireFromString(q.InvoiceTotal)

	quotes, err := s.coupons.ListAvailableForUser(c.Request.Context(), uid, total)
	if err != nil {
		handleError(c, s.logger, "ListAvailableCoupons", err)
		return
	}
	ResponseSuccess(c, lo.Map(quotes, func(q *logic.CouponQuote, _ int) *dto.CouponPreview {
		return couponPreview(q, total)
	}))
}

func (s *SettlementService) CreateIntent(c *gin.Context) {
	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ResponseError(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}
	if _, ok := s.authenticate(c, req.UserID); !ok {
		return
	}
	pr, err := s.paymentRequest(c, req.InvoiceID, req.CouponID, req.CouponCode, "")
	if err != nil {
		handleError(c, s.logger, "CreateIntent", err)
		return
	}

	resp, err := s.settlement.CreateIntent(c.Request.Context(), pr)
	if err != nil {
		handleError(c, s.logger, "CreateIntent", err)
		return
	}
	ResponseSuccess(c, resp)
}

func (s *SettlementService) ConfirmIntent(c *gin.Context) {
	var req ConfirmIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ResponseError(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}
	uid, ok := s.authenticate(c, "")
	if !ok {
		return
	}

	owned, err := s.ledger.GetPaymentByIntent(c.Request.Context(), req.PaymentIntentID)
	if err != nil {
		handleError(c, s.logger, "ConfirmIntent", err)
		return
	}
	if owned.UserID != uid {
		s.logger.Warn("ConfirmIntent: Permission denied",
			zap.Stringer("user_id", uid),
			zap.Stringer("payment_id", owned.ID),
			zap.Stringer("owner_id", owned.UserID))
		ResponseError(c, http.StatusForbidden, "permission denied")
		return
	}

	payment, err := s.settlement.ConfirmIntent(c.Request.Context(), req.PaymentIntentID)
	if err != nil {
		handleError(c, s.logger, "ConfirmIntent", err)
		return
	}
	ResponseSuccess(c, payment)
}

func (s *SettlementService) RecordOfflinePayment(c *gin.Context) {
	var req OfflinePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ResponseError(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}
	if _, ok := s.authenticate(c, req.UserID); !ok {
		return
	}
	pr, err := s.paymentRequest(c, req.InvoiceID, req.CouponID, req.CouponCode, req.Method)
	if err != nil {
		handleError(c, s.logger, "RecordOfflinePayment", err)
		return
	}

	resp, err := s.settlement.RecordOfflinePayment(c.Request.Context(), pr)
	if err != nil {
		handleError(c, s.logger, "RecordOfflinePayment", err)
		return
	}
	ResponseSuccess(c, resp)
}

// StripeWebhook is mounted without the auth middleware; the signature authenticates it.
func (s *SettlementService) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		ResponseError(c, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := s.settlement.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		handleError(c, s.logger, "StripeWebhook", err)
		return
	}
	ResponseSuccess(c, nil)
}

func (s *SettlementService) paymentRequest(c *gin.Context, invoiceID, couponID, couponCode, method string) (*logic.PaymentRequest, error) {
	user, _ := currentUser(c)
	ref, err := logic.ParseCouponReference(couponID, couponCode)
	if err != nil {
		return nil, err
	}
	iid, _ := primitive.ObjectIDFromHex(invoiceID)
	return &logic.PaymentRequest{
		InvoiceID: iid,
		User:      user,
		Method:    method,
		Coupon:    ref,
	}, nil
}

func couponPreview(q *logic.CouponQuote, total decimal.Decimal) *dto.CouponPreview {
	return &dto.CouponPreview{
		CouponID:     q.Coupon.ID.Hex(),
		Kind:         q.Coupon.Kind,
		Code:         q.Coupon.Code,
		DiscountType: q.Coupon.DiscountType,
		Discount:     q.Discount.StringFixed(helper.MoneyPlaces),
		AmountDue:    total.Sub(q.Discount).StringFixed(helper.MoneyPlaces),
		ExpiryDate:   q.Coupon.ExpiryDate.Format(time.RFC3339),
	}
}

package service

import (
	"net/http"
	"time"

	"petcare_settlement/internal/dto"
	"petcare_settlement/internal/logic"
	"petcare_settlement/pkg/pagination"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SettlementAdminService serves the staff console.
type SettlementAdminService struct {
	invoices   logic.InvoiceLogic
	coupons    logic.CouponLogic
	settlement logic.SettlementLogic
	ledger     logic.LedgerLogic
	logger     *zap.Logger
}

func NewSettlementAdminService(invoices logic.InvoiceLogic, coupons logic.CouponLogic, settlement logic.SettlementLogic, ledger logic.LedgerLogic, logger *zap.Logger) *SettlementAdminService {
	return &SettlementAdminService{
		invoices:   invoices,
		coupons:    coupons,
		settlement: settlement,
		ledger:     ledger,
		logger:     logger.Named("SettlementAdminService"),
	}
}

func (s *SettlementAdminService) operator(c *gin.Context) (*dto.InvoiceActionRequest, bool) {
	op, ok := currentUser(c)
	if !ok {
		ResponseError(c, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	id, ok := pathObjectID(c, "id")
	if !ok {
		ResponseError(c, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	var body InvoiceActionBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			ResponseError(c, http.StatusBadRequest, bindErrorMessage(err))
			return nil, false
		}
	}
	return dto.NewInvoiceActionRequest(id, op, body.Reason), true
}

func (s *SettlementAdminService) CreateInvoice(c *gin.Context) {
	op, ok := currentUser(c)
	if !ok {
		ResponseError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ResponseError(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}

	uid, _ := primitive.ObjectIDFromHex(req.UserID)
	items := lo.Map(req.LineItems, func(it LineItemRequest, _ int) dto.LineItem {
		return dto.LineItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   decimal.RequireFromString(it.UnitPrice),
		}
	})
	var override *decimal.Decimal
	if req.SubtotalOverride != nil {
		override = lo.ToPtr(decimal.RequireFromString(*req.SubtotalOverride))
	}
	var due time.Time
	if req.DueDate != nil {
		due = *req.DueDate
	}

	d := dto.NewCreateInvoiceRequest(uid, req.Source, req.Currency, items, override, due, lo.FromPtrOr(req.Issue, true), op)
	inv, err := s.invoices.CreateInvoice(c.Request.Context(), d)
	if err != nil {
		handleError(c, s.logger, "CreateInvoice", err)
		return
	}
	ResponseSuccess(c, inv)
}

func (s *SettlementAdminService) IssueInvoice(c *gin.Context) {
	d, ok := s.operator(c)
	if !ok {
		return
	}
	if err := s.invoices.IssueInvoice(c.Request.Context(), d); err != nil {
		handleError(c, s.logger, "IssueInvoice", err)
		return
	}
	ResponseSuccessWithMsg(c, nil, "invoice issued")
}

func (s *SettlementAdminService) CancelInvoice(c *gin.Context) {
	d, ok := s.operator(c)
	if !ok {
		return
	}
	if err := s.settlement.CancelInvoice(c.Request.Context(), d); err != nil {
		handleError(c, s.logger, "CancelInvoice", err)
		return
	}
	ResponseSuccessWithMsg(c, nil, "invoice cancelled")
}

func (s *SettlementAdminService) RefundInvoice(c *gin.Context) {
	d, ok := s.operator(c)
	if !ok {
		return
	}
	payment, err := s.settlement.RefundInvoice(c.Request.Context(), d)
	if err != nil {
		handleError(c, s.logger, "RefundInvoice", err)
		return
	}
	ResponseSuccess(c, payment)
}

func (s *SettlementAdminService) MarkOfflinePaid(c *gin.Context) {
	d, ok := s.operator(c)
	if !ok {
		return
	}
	payment, err := s.settlement.MarkOfflinePaid(c.Request.Context(), d.GetInvoiceID(), d.GetOperator())
	if err != nil {
		handleError(c, s.logger, "MarkOfflinePaid", err)
		return
	}
	ResponseSuccess(c, payment)
}

func (s *SettlementAdminService) RedeemVoucher(c *gin.Context) {
	op, ok := currentUser(c)
	if !ok {
		ResponseError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req RedeemVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ResponseError(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}

	payment, err := s.settlement.RedeemVoucher(c.Request.Context(), req.Voucher, op)
	if err != nil {
		handleError(c, s.logger, "RedeemVoucher", err)
		return
	}
	ResponseSuccess(c, payment)
}

func (s *SettlementAdminService) ListPayments(c *gin.Context) {
	var q ListPaymentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ResponseError(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}
	var invoiceID *primitive.ObjectID
	if q.InvoiceID != "" {
		id, _ := primitive.ObjectIDFromHex(q.InvoiceID)
		invoiceID = &id
	}

	res, err := s.ledger.ListPayments(c.Request.Context(), q.Status, invoiceID, pagination.NewPageRequest(q.Page, q.PageSize))
	if err != nil {
		handleError(c, s.logger, "ListPayments", err)
		return
	}
	ResponseSuccess(c, res)
}

func (s *SettlementAdminService) CreateCoupon(c *gin.Context) {
	op, ok := currentUser(c)
	if !ok {
		ResponseError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ResponseError(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}

	var owner *primitive.ObjectID
	if req.OwnerID != "" {
		id, _ := primitive.ObjectIDFromHex(req.OwnerID)
		owner = &id
	}
	minInvoice := decimal.Zero
	if req.MinInvoiceAmount != "" {
		minInvoice = decimal.RequireFromString(req.MinInvoiceAmount)
	}

	d := dto.NewCreateCouponRequest(req.Kind, req.Code, owner, req.DiscountType,
		decimal.RequireFromString(req.DiscountValue), minInvoice, req.ExpiryDate,
		req.UsageLimit, req.PerUserLimit, op)
	coupon, err := s.coupons.CreateCoupon(c.Request.Context(), d)
	if err != nil {
		handleError(c, s.logger, "CreateCoupon", err)
		return
	}
	ResponseSuccess(c, coupon)
}

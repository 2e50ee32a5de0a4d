package app

import (
	"petcare_settlement/internal/limiter"
	http_middleware "petcare_settlement/internal/middleware/http"
	"petcare_settlement/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteRegister mounts one application's routes on the engine.
type RouteRegister func(r *gin.Engine)

// NewFrontendRoutes mounts the customer routes. The webhook is authenticated by its
// signature, everything else by X-User-Id.
func NewFrontendRoutes(svc *service.SettlementService, auth http_middleware.AuthMiddleware, limiters *limiter.Manager, logger *zap.Logger) RouteRegister {
	return func(r *gin.Engine) {
		r.POST("/payment/stripe/webhook", svc.StripeWebhook)

		authed := r.Group("/", gin.HandlerFunc(auth))

		invoice := authed.Group("/invoice")
		invoice.GET("", svc.ListInvoices)
		invoice.GET("/:id", svc.GetInvoice)

		coupon := authed.Group("/coupon", http_middleware.NewRateLimitMiddleware(limiters, limiter.PolicyCouponValidate, logger))
		coupon.POST("/validate", svc.ValidatePublicCoupon)
		coupon.POST("/validate-user", svc.ValidateIssuedCoupon)
		coupon.GET("/user-available", svc.ListAvailableCoupons)

		payment := authed.Group("/payment", http_middleware.NewRateLimitMiddleware(limiters, limiter.PolicyPaymentCreate, logger))
		payment.POST("/stripe", svc.CreateIntent)
		payment.POST("/stripe/confirm", svc.ConfirmIntent)
		payment.POST("/offline", svc.RecordOfflinePayment)
	}
}

// NewConsoleRoutes mounts the staff routes.
func NewConsoleRoutes(svc *service.SettlementAdminService, auth http_middleware.AuthMiddleware) RouteRegister {
	return func(r *gin.Engine) {
		console := r.Group("/console", gin.HandlerFunc(auth))

		console.POST("/invoice", svc.CreateInvoice)
		console.POST("/invoice/:id/issue", svc.IssueInvoice)
		console.POST("/invoice/:id/cancel", svc.CancelInvoice)
		console.POST("/invoice/:id/refund", svc.RefundInvoice)

		console.POST("/payment/:id/reconcile", svc.MarkOfflinePaid)
		console.POST("/payment/voucher/redeem", svc.RedeemVoucher)
		console.GET("/payments", svc.ListPayments)

		console.POST("/coupon", svc.CreateCoupon)
	}
}

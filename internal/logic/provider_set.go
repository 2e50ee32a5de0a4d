package logic

import "github.com/google/wire"

var ProviderSet = wire.NewSet(
	NewPaymentEventPublisher,
	NewInvoiceLogic,
	wire.Bind(new(InvoiceLogic), new(*invoiceLogic)),
	NewCouponLogic,
	wire.Bind(new(CouponLogic), new(*couponLogic)),
	NewLedgerLogic,
	wire.Bind(new(LedgerLogic), new(*ledgerLogic)),
	NewSettlementLogic,
	wire.Bind(new(SettlementLogic), new(*settlementLogic)),
)

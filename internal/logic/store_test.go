package logic

import (
	"context"
	"sort"
	"sync"
	"time"

	"petcare_settlement/internal/constants"
	"petcare_settlement/internal/dao/mongodb"
	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/db"
	"petcare_settlement/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory stand-in for the Mongo DAOs with the same conditional-update
// semantics. It backs the settlement tests that exercise locking and races.
type memStore struct {
	mu            sync.Mutex
	txMu          sync.Mutex
	invoices      map[primitive.ObjectID]*models.Invoice
	payments      map[primitive.ObjectID]*models.Payment
	coupons       map[primitive.ObjectID]*models.Coupon
	redemptions   []*models.CouponRedemption
	finalizations map[primitive.ObjectID]*models.PendingFinalization
	outbox        []*models.OutboxMessage
	audits        []*models.AuditLog

	// auditErr, when set, fails every audit write.
	auditErr error
}

func newMemStore() *memStore {
	return &memStore{
		invoices:      make(map[primitive.ObjectID]*models.Invoice),
		payments:      make(map[primitive.ObjectID]*models.Payment),
		coupons:       make(map[primitive.ObjectID]*models.Coupon),
		finalizations: make(map[primitive.ObjectID]*models.PendingFinalization),
	}
}

// applySet writes the $set fields of opts onto doc through a BSON round trip.
func applySet(doc interface{}, opts ...repository.UpdateOption) {
	set := repository.Apply(opts...).Document(time.Now())["$set"].(bson.M)
	raw, err := bson.Marshal(doc)
	if err != nil {
		panic(err)
	}
	m := bson.M{}
	if err := bson.Unmarshal(raw, &m); err != nil {
		panic(err)
	}
	for k, v := range set {
		m[k] = v
	}
	raw, err = bson.Marshal(m)
	if err != nil {
		panic(err)
	}
	if err := bson.Unmarshal(raw, doc); err != nil {
		panic(err)
	}
}

func sameID(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// --- invoices ---

type memInvoices struct{ *memStore }

func (s memInvoices) CreateInvoice(_ context.Context, inv *models.Invoice) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.invoices {
		if inv.Source != "" && existing.Source == inv.Source {
			return primitive.NilObjectID, mongodb.ErrDuplicate
		}
	}
	if inv.ID.IsZero() {
		inv.ID = primitive.NewObjectID()
	}
	cp := *inv
	s.invoices[inv.ID] = &cp
	return inv.ID, nil
}

func (s memInvoices) GetInvoiceByID(_ context.Context, id primitive.ObjectID) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, mongodb.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s memInvoices) GetInvoiceBySource(_ context.Context, source string) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invoices {
		if inv.Source == source {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, mongodb.ErrNotFound
}

func (s memInvoices) GetInvoicesByUser(_ context.Context, params *repository.GetInvoicesByUserParams) ([]*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Invoice, 0)
	for _, inv := range s.invoices {
		if inv.UserID == params.UserID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if int64(len(out)) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (s memInvoices) TransitionInvoice(_ context.Context, params *repository.TransitionInvoiceParams, opts ...repository.UpdateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[params.InvoiceID]
	if !ok {
		return mongodb.ErrNotFound
	}
	if inv.Status != params.From.String() || (params.CheckActivePayment && !sameID(inv.ActivePayment, params.ActivePayment)) {
		return mongodb.ErrStatusMismatch
	}
	applySet(inv, append(opts, repository.WithStatus(params.To.String()))...)
	return nil
}

func (s memInvoices) SwapActivePayment(_ context.Context, params *repository.SwapActivePaymentParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[params.InvoiceID]
	if !ok {
		return mongodb.ErrNotFound
	}
	if inv.Status != constants.InvoiceStatusPending.String() || !sameID(inv.ActivePayment, params.Expected) {
		return mongodb.ErrStatusMismatch
	}
	if params.Next == nil {
		inv.ActivePayment = nil
	} else {
		next := *params.Next
		inv.ActivePayment = &next
	}
	inv.UpdatedAt = time.Now()
	return nil
}

// --- payments ---

type memPayments struct{ *memStore }

func (s memPayments) CreatePayment(_ context.Context, p *models.Payment) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ID]; ok {
		return primitive.NilObjectID, mongodb.ErrDuplicate
	}
	cp := *p
	s.payments[p.ID] = &cp
	return p.ID, nil
}

func (s memPayments) GetPaymentByID(_ context.Context, id primitive.ObjectID) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, mongodb.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s memPayments) GetPaymentByIntentID(_ context.Context, intentID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.GatewayIntentID == intentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, mongodb.ErrNotFound
}

func (s memPayments) ListPayments(_ context.Context, params *repository.ListPaymentsParams) ([]*models.Payment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Payment, 0)
	for _, p := range s.payments {
		if params.Status != "" && p.Status != params.Status {
			continue
		}
		if params.InvoiceID != nil && p.InvoiceID != *params.InvoiceID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (s memPayments) TransitionPayment(_ context.Context, params *repository.TransitionPaymentParams, opts ...repository.UpdateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[params.PaymentID]
	if !ok {
		return mongodb.ErrNotFound
	}
	if p.Status != params.From.String() {
		return mongodb.ErrStatusMismatch
	}
	applySet(p, append(opts, repository.WithStatus(params.To.String()))...)
	return nil
}

func (s memPayments) UpdatePayment(_ context.Context, id primitive.ObjectID, opts ...repository.UpdateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return mongodb.ErrNotFound
	}
	applySet(p, opts...)
	return nil
}

// --- coupons and redemptions ---

type memCoupons struct{ *memStore }

func (s memCoupons) CreateCoupon(_ context.Context, c *models.Coupon) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	cp := *c
	s.coupons[c.ID] = &cp
	return c.ID, nil
}

func (s memCoupons) GetCouponByID(_ context.Context, id primitive.ObjectID) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coupons[id]
	if !ok {
		return nil, mongodb.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s memCoupons) GetCouponByCode(_ context.Context, code string) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.coupons {
		if c.Kind == constants.CouponKindPublic && c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, mongodb.ErrNotFound
}

func (s memCoupons) GetAvailableIssuedCoupons(_ context.Context, params *repository.GetAvailableCouponsParams) ([]*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Coupon, 0)
	for _, c := range s.coupons {
		if c.Kind == constants.CouponKindIssued && c.OwnerID != nil && *c.OwnerID == params.OwnerID &&
			c.Status == constants.CouponStatusAvailable.String() && c.ExpiryDate.After(params.Now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s memCoupons) ConsumeCoupon(_ context.Context, params *repository.ConsumeCouponParams) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coupons[params.CouponID]
	if !ok {
		return nil, mongodb.ErrNotFound
	}
	limited := c.Kind == constants.CouponKindPublic && c.UsageLimit > 0
	if c.Status != constants.CouponStatusAvailable.String() || !c.ExpiryDate.After(params.Now) ||
		(limited && c.UsedCount >= c.UsageLimit) {
		return nil, mongodb.ErrStatusMismatch
	}
	c.UsedCount++
	if c.Kind == constants.CouponKindIssued || (limited && c.UsedCount >= c.UsageLimit) {
		c.Status = constants.CouponStatusConsumed.String()
		now := params.Now
		c.ConsumedAt = &now
	}
	cp := *c
	return &cp, nil
}

func (s memCoupons) ExpireCoupons(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.coupons {
		if c.Status == constants.CouponStatusAvailable.String() && !c.ExpiryDate.After(now) {
			c.Status = constants.CouponStatusExpired.String()
			n++
		}
	}
	return n, nil
}

type memRedemptions struct{ *memStore }

func (s memRedemptions) CreateRedemption(_ context.Context, r *models.CouponRedemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.redemptions {
		if existing.CouponID == r.CouponID && existing.PaymentID == r.PaymentID {
			return mongodb.ErrDuplicate
		}
	}
	cp := *r
	s.redemptions = append(s.redemptions, &cp)
	return nil
}

func (s memRedemptions) GetRedemptionByPayment(_ context.Context, couponID, paymentID primitive.ObjectID) (*models.CouponRedemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.redemptions {
		if r.CouponID == couponID && r.PaymentID == paymentID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, mongodb.ErrNotFound
}

func (s memRedemptions) CountRedemptionsByUser(_ context.Context, couponID, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.redemptions {
		if r.CouponID == couponID && r.UserID == userID {
			n++
		}
	}
	return n, nil
}

// --- finalizations, outbox, audit ---

type memFinalizations struct{ *memStore }

func (s memFinalizations) Create(_ context.Context, r *models.PendingFinalization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.finalizations[r.PaymentID]; ok {
		return mongodb.ErrDuplicate
	}
	cp := *r
	s.finalizations[r.PaymentID] = &cp
	return nil
}

func (s memFinalizations) GetByPaymentID(_ context.Context, paymentID primitive.ObjectID) (*models.PendingFinalization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.finalizations[paymentID]
	if !ok {
		return nil, mongodb.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s memFinalizations) SetIntentID(_ context.Context, paymentID primitive.ObjectID, intentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.finalizations[paymentID]
	if !ok {
		return mongodb.ErrNotFound
	}
	r.IntentID = intentID
	r.UpdatedAt = time.Now()
	return nil
}

func (s memFinalizations) MarkCompleted(_ context.Context, paymentID primitive.ObjectID) error {
	s.close(paymentID, constants.FinalizationStatusCompleted, "")
	return nil
}

func (s memFinalizations) MarkAbandoned(_ context.Context, paymentID primitive.ObjectID, reason string) error {
	s.close(paymentID, constants.FinalizationStatusAbandoned, reason)
	return nil
}

func (s memFinalizations) close(paymentID primitive.ObjectID, status, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.finalizations[paymentID]; ok && r.Status == constants.FinalizationStatusPending {
		r.Status = status
		if reason != "" {
			r.LastError = reason
		}
		r.UpdatedAt = time.Now()
	}
}

func (s memFinalizations) RecordAttempt(_ context.Context, paymentID primitive.ObjectID, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.finalizations[paymentID]
	if !ok {
		return mongodb.ErrNotFound
	}
	r.Attempts++
	r.LastError = errorMessage
	r.UpdatedAt = time.Now()
	return nil
}

func (s memFinalizations) FindStale(_ context.Context, olderThan time.Time, limit int) ([]*models.PendingFinalization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.PendingFinalization, 0)
	for _, r := range s.finalizations {
		if r.Status == constants.FinalizationStatusPending && !r.UpdatedAt.After(olderThan) {
			cp := *r
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memOutbox struct{ *memStore }

func (s memOutbox) Create(_ context.Context, m *models.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, m)
	return nil
}

func (s memOutbox) ClaimAndFetchEvents(context.Context, int) ([]*models.OutboxMessage, error) {
	return nil, nil
}

func (s memOutbox) MarkAsProcessed(context.Context, primitive.ObjectID) error { return nil }

func (s memOutbox) IncrementRetry(context.Context, primitive.ObjectID, string, int) error { return nil }

type memAudit struct{ *memStore }

func (s memAudit) Create(_ context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditErr != nil {
		return s.auditErr
	}
	s.audits = append(s.audits, log)
	return nil
}

func (s *memStore) failAudits(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditErr = err
}

// --- transactions ---

// memTransactions runs one transaction at a time and restores the store when fn fails,
// like a Mongo session on a replica set. Writes made outside a transaction while one is
// open are lost if it rolls back.
type memTransactions struct{ *memStore }

func (s memTransactions) InTransaction(ctx context.Context, fn db.TxFunc) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	invoices      map[primitive.ObjectID]models.Invoice
	payments      map[primitive.ObjectID]models.Payment
	coupons       map[primitive.ObjectID]models.Coupon
	finalizations map[primitive.ObjectID]models.PendingFinalization
	redemptions   []*models.CouponRedemption
	outbox        []*models.OutboxMessage
	audits        []*models.AuditLog
}

func copyValues[T any](m map[primitive.ObjectID]*T) map[primitive.ObjectID]T {
	out := make(map[primitive.ObjectID]T, len(m))
	for k, v := range m {
		out[k] = *v
	}
	return out
}

func copyPointers[T any](m map[primitive.ObjectID]T) map[primitive.ObjectID]*T {
	out := make(map[primitive.ObjectID]*T, len(m))
	for k, v := range m {
		v := v
		out[k] = &v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		invoices:      copyValues(s.invoices),
		payments:      copyValues(s.payments),
		coupons:       copyValues(s.coupons),
		finalizations: copyValues(s.finalizations),
		redemptions:   append([]*models.CouponRedemption(nil), s.redemptions...),
		outbox:        append([]*models.OutboxMessage(nil), s.outbox...),
		audits:        append([]*models.AuditLog(nil), s.audits...),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = copyPointers(snap.invoices)
	s.payments = copyPointers(snap.payments)
	s.coupons = copyPointers(snap.coupons)
	s.finalizations = copyPointers(snap.finalizations)
	s.redemptions = snap.redemptions
	s.outbox = snap.outbox
	s.audits = snap.audits
}

func (s *memStore) redemptionCount(couponID primitive.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.redemptions {
		if r.CouponID == couponID {
			n++
		}
	}
	return n
}

// outboxCount returns the number of messages published so far.
func (s *memStore) outboxCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outbox)
}

func (s *memStore) succeededPayments(invoiceID primitive.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.payments {
		if p.InvoiceID == invoiceID && p.Status == constants.PaymentStatusSucceeded.String() {
			n++
		}
	}
	return n
}

var (
	_ repository.InvoiceRepository      = memInvoices{}
	_ repository.PaymentRepository      = memPayments{}
	_ repository.CouponRepository       = memCoupons{}
	_ repository.RedemptionRepository   = memRedemptions{}
	_ repository.FinalizationRepository = memFinalizations{}
	_ repository.OutboxRepository       = memOutbox{}
	_ db.TransactionManager             = memTransactions{}
	_ repository.AuditLogRepository     = memAudit{}
)

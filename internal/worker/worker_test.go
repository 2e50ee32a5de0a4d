package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"petcare_settlement/internal/conf"
	"petcare_settlement/internal/logic"
	"petcare_settlement/internal/models"
	"petcare_settlement/internal/mq"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- mocks ---

type mockOutboxRepository struct{ mock.Mock }

func (m *mockOutboxRepository) Create(ctx context.Context, msg *models.OutboxMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockOutboxRepository) ClaimAndFetchEvents(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	args := m.Called(ctx, limit)
	if v := args.Get(0); v != nil {
		return v.([]*models.OutboxMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOutboxRepository) MarkAsProcessed(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockOutboxRepository) IncrementRetry(ctx context.Context, id primitive.ObjectID, msg string, maxRetries int) error {
	return m.Called(ctx, id, msg, maxRetries).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, msg mq.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockPublisher) Close() {}

type mockFinalizationRepository struct{ mock.Mock }

func (m *mockFinalizationRepository) Create(ctx context.Context, r *models.PendingFinalization) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockFinalizationRepository) GetByPaymentID(ctx context.Context, id primitive.ObjectID) (*models.PendingFinalization, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.PendingFinalization), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFinalizationRepository) SetIntentID(ctx context.Context, id primitive.ObjectID, intentID string) error {
	return m.Called(ctx, id, intentID).Error(0)
}

func (m *mockFinalizationRepository) MarkCompleted(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockFinalizationRepository) MarkAbandoned(ctx context.Context, id primitive.ObjectID, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *mockFinalizationRepository) RecordAttempt(ctx context.Context, id primitive.ObjectID, msg string) error {
	return m.Called(ctx, id, msg).Error(0)
}

func (m *mockFinalizationRepository) FindStale(ctx context.Context, olderThan time.Time, limit int) ([]*models.PendingFinalization, error) {
	args := m.Called(ctx, olderThan, limit)
	if v := args.Get(0); v != nil {
		return v.([]*models.PendingFinalization), args.Error(1)
	}
	return nil, args.Error(1)
}

// mockSettlement only implements what the replayer calls.
type mockSettlement struct {
	logic.SettlementLogic
	mock.Mock
}

func (m *mockSettlement) ReplayFinalization(ctx context.Context, r *models.PendingFinalization) error {
	return m.Called(ctx, r).Error(0)
}

type mockCoupons struct {
	logic.CouponLogic
	mock.Mock
}

func (m *mockCoupons) ExpireCoupons(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func workerConfig() *conf.WorkerConfig {
	return &conf.WorkerConfig{
		Outbox:   conf.OutboxWorkerConfig{IntervalSeconds: 1, BatchSize: 10, MaxRetries: 5},
		Replayer: conf.FinalizationReplayConfig{IntervalSeconds: 1, GraceSeconds: 60, BatchSize: 5, MaxAttempts: 3},
	}
}

// --- tests ---

func TestOutboxProcessor_ProcessEvents(t *testing.T) {
	ctx := context.Background()
	noWait := func() backoff.BackOff { return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, publishAttempts-1) }

	t.Run("PublishesAndMarks", func(t *testing.T) {
		repo, pub := new(mockOutboxRepository), new(mockPublisher)
		p := NewOutboxProcessor(repo, pub, zap.NewNop(), workerConfig())
		p.newBackOff = noWait

		msg := &models.OutboxMessage{
			ID:            primitive.NewObjectID(),
			Topic:         "settlement.payment_events",
			EventType:     "payment.succeed",
			Payload:       `{"action":"succeed"}`,
			CorrelationID: "pay_1",
			CreatedAt:     time.Now(),
		}
		repo.On("ClaimAndFetchEvents", ctx, 10).Return([]*models.OutboxMessage{msg}, nil).Once()
		pub.On("Publish", ctx, mq.Message{
			ID:            msg.ID.Hex(),
			Topic:         msg.Topic,
			Type:          "payment.succeed",
			Body:          []byte(msg.Payload),
			CorrelationID: "pay_1",
			CreatedAt:     msg.CreatedAt,
		}).Return(nil).Once()
		repo.On("MarkAsProcessed", ctx, msg.ID).Return(nil).Once()

		p.processEvents(ctx)
		repo.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("RetriesThenHandsBack", func(t *testing.T) {
		repo, pub := new(mockOutboxRepository), new(mockPublisher)
		p := NewOutboxProcessor(repo, pub, zap.NewNop(), workerConfig())
		p.newBackOff = noWait

		msg := &models.OutboxMessage{ID: primitive.NewObjectID(), Topic: "t", Payload: "{}"}
		repo.On("ClaimAndFetchEvents", ctx, 10).Return([]*models.OutboxMessage{msg}, nil).Once()
		pub.On("Publish", ctx, mock.MatchedBy(func(m mq.Message) bool { return m.Topic == "t" })).
			Return(errors.New("channel closed")).Times(publishAttempts)
		repo.On("IncrementRetry", ctx, msg.ID, "channel closed", 5).Return(nil).Once()

		p.processEvents(ctx)
		repo.AssertExpectations(t)
		pub.AssertExpectations(t)
		repo.AssertNotCalled(t, "MarkAsProcessed", mock.Anything, mock.Anything)
	})

	t.Run("ClaimFails", func(t *testing.T) {
		repo, pub := new(mockOutboxRepository), new(mockPublisher)
		p := NewOutboxProcessor(repo, pub, zap.NewNop(), workerConfig())

		repo.On("ClaimAndFetchEvents", ctx, 10).Return(nil, errors.New("no primary")).Once()
		p.processEvents(ctx)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}

func TestFinalizationReplayer_ReplayBatch(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	fresh := &models.PendingFinalization{PaymentID: primitive.NewObjectID(), Attempts: 1}
	exhausted := &models.PendingFinalization{PaymentID: primitive.NewObjectID(), Attempts: 3, LastError: "gateway timeout"}
	failing := &models.PendingFinalization{PaymentID: primitive.NewObjectID()}

	repo, settlement := new(mockFinalizationRepository), new(mockSettlement)
	r := NewFinalizationReplayer(repo, settlement, zap.NewNop(), workerConfig())
	r.now = func() time.Time { return now }

	repo.On("FindStale", ctx, now.Add(-time.Minute), 5).
		Return([]*models.PendingFinalization{fresh, exhausted, failing}, nil).Once()
	settlement.On("ReplayFinalization", ctx, fresh).Return(nil).Once()
	settlement.On("ReplayFinalization", ctx, failing).Return(errors.New("gateway down")).Once()
	repo.On("MarkAbandoned", ctx, exhausted.PaymentID, mock.MatchedBy(func(reason string) bool {
		return strings.Contains(reason, "gateway timeout")
	})).Return(nil).Once()

	r.replayBatch(ctx)

	repo.AssertExpectations(t)
	settlement.AssertExpectations(t)
	settlement.AssertNotCalled(t, "ReplayFinalization", ctx, exhausted)
}

func TestCouponExpirer_Start(t *testing.T) {
	coupons := new(mockCoupons)
	w := NewCouponExpirer(CouponExpiryInterval(10*time.Millisecond), coupons, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	ticked := make(chan struct{}, 1)
	coupons.On("ExpireCoupons", mock.Anything).Return(int64(0), nil).Run(func(mock.Arguments) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	})

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("expirer never ran")
	}
	cancel()
	<-done
}

func TestRunTickRecoversPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		runTick(context.Background(), zap.NewNop(), func(context.Context) { panic("boom") })
	})
}

type stopOnCancel struct{ stopped chan struct{} }

func (w stopOnCancel) Start(ctx context.Context) {
	<-ctx.Done()
	close(w.stopped)
}

func TestRunAll(t *testing.T) {
	a, b := stopOnCancel{make(chan struct{})}, stopOnCancel{make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		RunAll(ctx, a, b)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunAll did not return after cancel")
	}
	_, openA := <-a.stopped
	_, openB := <-b.stopped
	assert.False(t, openA)
	assert.False(t, openB)
}

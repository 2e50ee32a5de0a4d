package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"petcare_settlement/internal/conf"
	"petcare_settlement/internal/gateway"
	"petcare_settlement/internal/helper"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

// Gateway is the Stripe PaymentIntents adapter.
type Gateway struct {
	api           *client.API
	webhookSecret string
	logger        *zap.Logger
}

// NewGateway builds a Stripe client with a bounded HTTP timeout and network retries disabled.
func NewGateway(cfg *conf.StripeConfig, logger *zap.Logger) *Gateway {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
	})
	api := &client.API{}
	api.Init(cfg.SecretKey, backends)

	return &Gateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger.Named("StripeGateway"),
	}
}

func (g *Gateway) CreateIntent(ctx context.Context, p *gateway.CreateIntentParams) (*gateway.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(helper.ToMinorUnits(p.Amount)),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		g.logger.Warn("CreateIntent failed", zap.Error(err), zap.String("idempotency_key", p.IdempotencyKey))
		return nil, toGatewayError(err)
	}
	return toIntent(pi), nil
}

func (g *Gateway) GetIntent(ctx context.Context, intentID string) (*gateway.Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, toGatewayError(err)
	}
	return toIntent(pi), nil
}

func (g *Gateway) CancelIntent(ctx context.Context, intentID string) (*gateway.Intent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Cancel(intentID, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Code == stripe.ErrorCodePaymentIntentUnexpectedState {
			// Already terminal; report where it ended up.
			return g.GetIntent(ctx, intentID)
		}
		return nil, toGatewayError(err)
	}
	return toIntent(pi), nil
}

func (g *Gateway) Refund(ctx context.Context, intentID, idempotencyKey string) (*gateway.Refund, error) {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(intentID)}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	r, err := g.api.Refunds.New(params)
	if err != nil {
		g.logger.Warn("Refund failed", zap.Error(err), zap.String("intent_id", intentID))
		return nil, toGatewayError(err)
	}
	return &gateway.Refund{ID: r.ID, Status: string(r.Status)}, nil
}

func (g *Gateway) ParseWebhook(payload []byte, signature string) (*gateway.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrInvalidSignature, err)
	}

	out := &gateway.Event{ID: event.ID, Type: gateway.EventIgnored}
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		out.Type = gateway.EventIntentSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed, stripe.EventTypePaymentIntentCanceled:
		out.Type = gateway.EventIntentFailed
	default:
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent from event %s: %w", event.ID, err)
	}
	out.IntentID = pi.ID
	return out, nil
}

func toIntent(pi *stripe.PaymentIntent) *gateway.Intent {
	intent := &gateway.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       mapStatus(pi.Status),
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
	}
	if pi.LastPaymentError != nil {
		intent.FailureMessage = pi.LastPaymentError.Msg
	}
	return intent
}

// mapStatus folds Stripe's intent states into the four the settlement service acts on.
// requires_payment_method after an attempt means the card was declined; the customer may
// still retry on the same intent, so it stays processing until it is cancelled or expires.
func mapStatus(s stripe.PaymentIntentStatus) gateway.IntentStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return gateway.IntentStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return gateway.IntentStatusCanceled
	default:
		return gateway.IntentStatusProcessing
	}
}

func toGatewayError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return &gateway.Error{
			Code:       string(se.Code),
			Message:    se.Msg,
			StatusCode: se.HTTPStatusCode,
			Declined:   se.Type == stripe.ErrorTypeCard || se.Type == stripe.ErrorTypeInvalidRequest,
			Err:        err,
		}
	}
	return &gateway.Error{Message: err.Error(), Err: err}
}

var _ gateway.Gateway = (*Gateway)(nil)

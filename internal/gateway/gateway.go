package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// IntentStatus is the gateway-neutral view of a payment intent.
type IntentStatus string

const (
	IntentStatusProcessing IntentStatus = "processing"
	IntentStatusSucceeded  IntentStatus = "succeeded"
	IntentStatusFailed     IntentStatus = "failed"
	IntentStatusCanceled   IntentStatus = "canceled"
)

// IsTerminal reports whether the intent can no longer change.
func (s IntentStatus) IsTerminal() bool {
	return s == IntentStatusSucceeded || s == IntentStatusFailed || s == IntentStatusCanceled
}

type CreateIntentParams struct {
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	Metadata       map[string]string
}

type Intent struct {
	ID             string
	ClientSecret   string
	Status         IntentStatus
	AmountMinor    int64
	Currency       string
	FailureMessage string
}

type Refund struct {
	ID     string
	Status string
}

type EventType string

const (
	EventIntentSucceeded EventType = "intent.succeeded"
	EventIntentFailed    EventType = "intent.failed"
	EventIgnored         EventType = "ignored"
)

// Event is a verified webhook notification.
type Event struct {
	ID       string
	Type     EventType
	IntentID string
}

// Gateway is the card processor the settlement service talks to. Implementations must not
// retry internally; callers own retries and idempotency keys.
type Gateway interface {
	CreateIntent(ctx context.Context, params *CreateIntentParams) (*Intent, error)
	GetIntent(ctx context.Context, intentID string) (*Intent, error)
	// CancelIntent cancels an open intent. When the intent already reached a terminal state it
	// returns that intent without error.
	CancelIntent(ctx context.Context, intentID string) (*Intent, error)
	Refund(ctx context.Context, intentID, idempotencyKey string) (*Refund, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Error carries a processor failure. Declined is set when the processor refused the request,
// as opposed to a transport or availability problem.
type Error struct {
	Code       string
	Message    string
	StatusCode int
	Declined   bool
	Err        error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("gateway error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

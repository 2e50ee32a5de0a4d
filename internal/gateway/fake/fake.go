// Package fake is an in-memory gateway for tests and local development.
package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"petcare_settlement/internal/gateway"
	"petcare_settlement/internal/helper"

	"github.com/google/uuid"
)

type Gateway struct {
	mu       sync.Mutex
	intents  map[string]*gateway.Intent
	byKey    map[string]string
	refunds  map[string]*gateway.Refund
	failNext error

	// CreateCalls counts CreateIntent calls that reached the gateway, including replays.
	CreateCalls int
}

func New() *Gateway {
	return &Gateway{
		intents: make(map[string]*gateway.Intent),
		byKey:   make(map[string]string),
		refunds: make(map[string]*gateway.Refund),
	}
}

// FailNext makes the next gateway call return err.
func (g *Gateway) FailNext(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failNext = err
}

// SetStatus moves an intent to status, as the customer's card flow would.
func (g *Gateway) SetStatus(intentID string, status gateway.IntentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if in, ok := g.intents[intentID]; ok {
		in.Status = status
	}
}

// Refunded reports whether a refund was issued under idempotencyKey.
func (g *Gateway) Refunded(idempotencyKey string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.refunds[idempotencyKey]
	return ok
}

func (g *Gateway) takeFailure() error {
	err := g.failNext
	g.failNext = nil
	return err
}

func (g *Gateway) CreateIntent(_ context.Context, p *gateway.CreateIntentParams) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.CreateCalls++
	if err := g.takeFailure(); err != nil {
		return nil, err
	}
	if id, ok := g.byKey[p.IdempotencyKey]; ok && p.IdempotencyKey != "" {
		cp := *g.intents[id]
		return &cp, nil
	}

	id := "pi_" + uuid.NewString()
	in := &gateway.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       gateway.IntentStatusProcessing,
		AmountMinor:  helper.ToMinorUnits(p.Amount),
		Currency:     p.Currency,
	}
	g.intents[id] = in
	if p.IdempotencyKey != "" {
		g.byKey[p.IdempotencyKey] = id
	}
	cp := *in
	return &cp, nil
}

func (g *Gateway) GetIntent(_ context.Context, intentID string) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.takeFailure(); err != nil {
		return nil, err
	}
	in, ok := g.intents[intentID]
	if !ok {
		return nil, &gateway.Error{Code: "resource_missing", Message: "no such payment intent", StatusCode: 404, Declined: true}
	}
	cp := *in
	return &cp, nil
}

func (g *Gateway) CancelIntent(_ context.Context, intentID string) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.takeFailure(); err != nil {
		return nil, err
	}
	in, ok := g.intents[intentID]
	if !ok {
		return nil, &gateway.Error{Code: "resource_missing", Message: "no such payment intent", StatusCode: 404, Declined: true}
	}
	if !in.Status.IsTerminal() {
		in.Status = gateway.IntentStatusCanceled
	}
	cp := *in
	return &cp, nil
}

func (g *Gateway) Refund(_ context.Context, intentID, idempotencyKey string) (*gateway.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.takeFailure(); err != nil {
		return nil, err
	}
	if r, ok := g.refunds[idempotencyKey]; ok && idempotencyKey != "" {
		return r, nil
	}
	in, ok := g.intents[intentID]
	if !ok || in.Status != gateway.IntentStatusSucceeded {
		return nil, &gateway.Error{Code: "charge_not_refundable", Message: "intent has not succeeded", StatusCode: 400, Declined: true}
	}
	r := &gateway.Refund{ID: "re_" + uuid.NewString(), Status: "succeeded"}
	g.refunds[idempotencyKey] = r
	return r, nil
}

// Event is the webhook body the fake gateway accepts. The signature must equal "fake".
type Event struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	IntentID string `json:"intent_id"`
}

func (g *Gateway) ParseWebhook(payload []byte, signature string) (*gateway.Event, error) {
	if signature != "fake" {
		return nil, gateway.ErrInvalidSignature
	}
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("failed to decode fake event: %w", err)
	}
	return &gateway.Event{ID: e.ID, Type: gateway.EventType(e.Type), IntentID: e.IntentID}, nil
}

var _ gateway.Gateway = (*Gateway)(nil)

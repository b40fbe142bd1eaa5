// Package events publishes progress lifecycle events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Event types emitted on successful progress mutations.
const (
	TypeProgressUpdated  = "progress.updated"
	TypeLevelAdvanced    = "progress.level_advanced"
	TypeDiagnosticPassed = "progress.diagnostic_passed"
	TypeProgressReset    = "progress.reset"
)

// Event is the JSON payload delivered to subscribers.
type Event struct {
	Type         string    `json:"type"`
	UserID       string    `json:"user_id"`
	At           time.Time `json:"at"`
	CurrentLevel int       `json:"current_level,omitempty"`
	HintStage    int       `json:"hint_stage,omitempty"`
	Attempts     int       `json:"attempts,omitempty"`
	Passed       bool      `json:"passed,omitempty"`
}

// Broker is the outbound half of a message broker.
type Broker interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Publisher emits progress events best-effort. A nil Publisher drops events,
// so callers never need to branch on whether eventing is configured.
type Publisher struct {
	broker  Broker
	channel string
	log     *zap.Logger
}

// NewPublisher constructs a Publisher for the given broker and channel.
func NewPublisher(broker Broker, channel string, log *zap.Logger) *Publisher {
	return &Publisher{broker: broker, channel: channel, log: log}
}

// Emit publishes the event. Failures are logged and swallowed: eventing is
// observability, it must never fail the mutation that triggered it.
func (p *Publisher) Emit(ctx context.Context, evt Event) {
	if p == nil || p.broker == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		p.log.Warn("marshal progress event", zap.Error(err))
		return
	}
	attrs := map[string]string{"type": evt.Type, "user_id": evt.UserID}
	if _, err := p.broker.Publish(ctx, p.channel, data, attrs); err != nil {
		p.log.Warn("publish progress event",
			zap.String("type", evt.Type),
			zap.Error(err),
		)
	}
}

// Close shuts down the underlying broker connection.
func (p *Publisher) Close() error {
	if p == nil || p.broker == nil {
		return nil
	}
	return p.broker.Close()
}

package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	EvaluationTokenized Type = "evaluation.tokenized"
	LoanApproved        Type = "loan.approved"
	LoanRepaid          Type = "loan.repaid"
	LoanDefaulted       Type = "loan.defaulted"
	CollateralReleased  Type = "collateral.released"
)

// Event is what the core emits to the notification layer. Delivery is
// at-least-once; consumers de-duplicate by ID.
type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func New(t Type, payload map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Sink receives domain events. Publish failures must not fail the business
// operation that emitted the event; callers log and move on.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// NopSink drops everything; used in tests and as a safe default.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) error { return nil }

package gateway

import (
	"context"
	"encoding/json"
	"time"

	"netgate/internal/event"
	"netgate/internal/validator"
)

// Decision is the audit record produced for every processed event. It is
// created once, written to the configured sinks, and never mutated
// afterward.
type Decision struct {
	ID                 string             `json:"id"`
	EventKind          string             `json:"event_kind"`
	Model              string             `json:"model"`
	DeviceID           int64              `json:"device_id,omitempty"`
	Device             string             `json:"device"`
	ValidationRequired bool               `json:"validation_required"`
	Outcome            *validator.Outcome `json:"outcome,omitempty"`
	Forwarded          bool               `json:"forwarded"`
	Delivered          bool               `json:"delivered"`
	Reason             string             `json:"reason"`
	CreatedAt          time.Time          `json:"created_at"`
}

// Result buckets decisions for metrics and the webhook acknowledgment.
func (d *Decision) Result() string {
	switch {
	case d.Forwarded:
		return "forwarded"
	case !d.ValidationRequired && d.Outcome == nil && !d.Forwarded:
		return "ignored"
	default:
		return "suppressed"
	}
}

// Sink receives finished decisions. Implementations must not mutate them.
type Sink interface {
	Record(ctx context.Context, decision Decision) error
}

// DecisionStore is a Sink that can also serve recent decisions back to the
// operations API.
type DecisionStore interface {
	Sink
	Recent(ctx context.Context, limit int) ([]Decision, error)
}

// SessionSource hands out the shared validator session and discards it when
// the remote service stops honoring it. Invalidate takes the session the
// caller was rejected with so that a session already replaced by another
// event is left alone.
type SessionSource interface {
	Acquire(ctx context.Context) (*validator.Session, error)
	Invalidate(stale *validator.Session)
}

// DeviceValidator runs a single validation attempt.
type DeviceValidator interface {
	Validate(ctx context.Context, session *validator.Session, creds event.CredentialView) (validator.Outcome, error)
}

// Forwarder delivers a cleared event payload downstream.
type Forwarder interface {
	Forward(ctx context.Context, raw json.RawMessage) error
}

// Package audit persists and publishes gateway decisions. Every sink here
// implements gateway.Sink; the composite fans a decision out to all of them
// and never lets a sink failure travel back into event processing.
package audit

import (
	"context"

	"netgate/internal/gateway"
	"netgate/internal/logger"
	"netgate/pkg/metrics"
)

// LogSink writes each decision to the structured log. It is always part of
// the composite so an operator can reconstruct gate behavior from logs alone.
type LogSink struct {
	log logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Record(ctx context.Context, decision gateway.Decision) error {
	s.log.InfowCtx(ctx, "Decision recorded",
		"decision_id", decision.ID,
		"event_kind", decision.EventKind,
		"model", decision.Model,
		"device", decision.Device,
		"result", decision.Result(),
		"reason", decision.Reason,
	)
	return nil
}

type namedSink struct {
	name string
	sink gateway.Sink
}

// Composite delivers a decision to every registered sink. Failures are
// counted and logged per sink but swallowed: decision persistence is best
// effort and must never alter the gate's answer to the inventory system.
type Composite struct {
	sinks []namedSink
	log   logger.Logger
}

func NewComposite(log logger.Logger) *Composite {
	return &Composite{log: log}
}

func (c *Composite) Add(name string, sink gateway.Sink) {
	if sink == nil {
		return
	}
	c.sinks = append(c.sinks, namedSink{name: name, sink: sink})
}

func (c *Composite) Record(ctx context.Context, decision gateway.Decision) error {
	for _, s := range c.sinks {
		if err := s.sink.Record(ctx, decision); err != nil {
			metrics.DecisionSinkErrorsTotal.WithLabelValues(s.name).Inc()
			c.log.ErrorwCtx(ctx, "Decision sink write failed",
				"sink", s.name,
				"decision_id", decision.ID,
				"error", err,
			)
			continue
		}
		metrics.DecisionsPublishedTotal.WithLabelValues(s.name).Inc()
	}
	return nil
}

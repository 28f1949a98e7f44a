package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"netgate/internal/constants"
	"netgate/internal/event"
	"netgate/internal/logger"
	"netgate/internal/validator"
	"netgate/pkg/circuitbreaker"
	"netgate/pkg/errors"
	"netgate/pkg/logging"
	"netgate/pkg/metrics"
	"netgate/pkg/tracing"
)

// Service sequences classification, session acquisition, validation and the
// forwarding decision for each inventory change event. Events are processed
// independently; the only state shared between them is the cached validator
// session owned by the SessionSource.
type Service struct {
	classifier *event.Classifier
	sessions   SessionSource
	validator  DeviceValidator
	forwarder  Forwarder
	sink       Sink
	breaker    *circuitbreaker.Wrapper
	log        logger.Logger
}

func NewService(
	classifier *event.Classifier,
	sessions SessionSource,
	deviceValidator DeviceValidator,
	forwarder Forwarder,
	sink Sink,
	breaker *circuitbreaker.Wrapper,
	log logger.Logger,
) *Service {
	return &Service{
		classifier: classifier,
		sessions:   sessions,
		validator:  deviceValidator,
		forwarder:  forwarder,
		sink:       sink,
		breaker:    breaker,
		log:        log,
	}
}

// Process runs one event through the gate and returns its decision. Exactly
// one decision is emitted per event; every failure mode ends in a recorded
// suppression, never a propagated fault.
func (s *Service) Process(ctx context.Context, ev *event.ChangeEvent) Decision {
	ctx, span := tracing.GetTracer("validation-gateway").Start(ctx, "gateway.process")
	defer span.End()

	ctx = logging.WithDevice(ctx, ev.DeviceRef())
	start := time.Now()

	decision := Decision{
		ID:        uuid.New().String(),
		EventKind: ev.Kind.String(),
		Model:     ev.Model,
		DeviceID:  ev.Data.ID,
		Device:    ev.DeviceRef(),
		CreatedAt: start,
	}

	s.decide(ctx, ev, &decision)
	s.finish(ctx, &decision, start)
	return decision
}

func (s *Service) decide(ctx context.Context, ev *event.ChangeEvent, decision *Decision) {
	if ev.Kind == event.KindUnknown {
		decision.Reason = "unknown event kind, not processed"
		return
	}

	if !s.classifier.IsDevice(ev) {
		decision.Reason = fmt.Sprintf("model %q not handled", ev.Model)
		return
	}

	if !s.classifier.Required(ev) {
		// Updates, deletions and creations with validation disabled
		// go straight downstream.
		decision.Reason = "validation not required"
		s.forward(ctx, ev, decision)
		return
	}

	decision.ValidationRequired = true

	creds, err := s.classifier.Credentials(ctx, ev)
	if err != nil {
		// Local input error: the validator is never called and the
		// event is suppressed without retry.
		decision.Reason = err.Error()
		s.log.WarnwCtx(ctx, "Suppressing event, cannot build validation request",
			"error", err,
		)
		return
	}

	outcome, err := s.validate(ctx, creds)
	if err != nil {
		if ctx.Err() != nil {
			decision.Reason = fmt.Sprintf("canceled before validation completed: %v", ctx.Err())
			return
		}
		decision.Reason = err.Error()
		s.log.ErrorwCtx(ctx, "Suppressing event, validation failed",
			"error", err,
		)
		return
	}

	decision.Outcome = &outcome

	if !outcome.Succeeded {
		decision.Reason = fmt.Sprintf("validator returned %d: %s", outcome.StatusCode, outcome.Message)
		s.log.WarnwCtx(ctx, "Device validation failed, suppressing event",
			"status_code", outcome.StatusCode,
			"message", outcome.Message,
		)
		return
	}

	decision.Reason = "validation succeeded"
	s.forward(ctx, ev, decision)
}

// validate runs the acquire-then-validate sequence. An authentication
// rejection invalidates the cached session and the sequence is retried
// exactly once with a forced-fresh session; a second rejection is terminal.
// Any other failed outcome is terminal as well: re-probing a device already
// deemed invalid yields nothing and amplifies load on the remote service.
func (s *Service) validate(ctx context.Context, creds event.CredentialView) (validator.Outcome, error) {
	outcome, session, err := s.validateOnce(ctx, creds)
	if err != nil {
		return validator.Outcome{}, err
	}

	if !outcome.AuthRejected() {
		return outcome, nil
	}

	s.log.InfowCtx(ctx, "Validator rejected session, refreshing and retrying once")
	s.sessions.Invalidate(session)

	outcome, _, err = s.validateOnce(ctx, creds)
	if err != nil {
		return validator.Outcome{}, err
	}

	if outcome.AuthRejected() {
		return validator.Outcome{}, errors.ErrAuthentication.
			WithDetail("message", "validator rejected a freshly acquired session")
	}

	return outcome, nil
}

func (s *Service) validateOnce(ctx context.Context, creds event.CredentialView) (validator.Outcome, *validator.Session, error) {
	session, err := s.sessions.Acquire(ctx)
	if err != nil {
		return validator.Outcome{}, nil, err
	}

	start := time.Now()
	outcome, err := s.callValidator(ctx, session, creds)
	metrics.ObserveValidationDuration(time.Since(start), validationStatus(outcome, err))
	metrics.ValidationAttemptsTotal.WithLabelValues(validationStatus(outcome, err)).Inc()

	return outcome, session, err
}

func (s *Service) callValidator(ctx context.Context, session *validator.Session, creds event.CredentialView) (validator.Outcome, error) {
	if s.breaker == nil {
		return s.validator.Validate(ctx, session, creds)
	}

	result, err := s.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		outcome, err := s.validator.Validate(ctx, session, creds)
		if err != nil {
			return nil, err
		}
		if outcome.Unreachable() {
			// Feed transport failures to the breaker; remote
			// verdicts about the device do not count against the
			// validator's health.
			return outcome, errors.ErrTransport.WithDetail("message", outcome.Message)
		}
		return outcome, nil
	})

	if err != nil {
		s.breaker.RecordRequest(false)
		if outcome, ok := result.(validator.Outcome); ok {
			return outcome, nil
		}
		if ctx.Err() != nil {
			return validator.Outcome{}, err
		}
		if s.breaker.IsOpen() {
			return validator.Outcome{
				Succeeded:  false,
				StatusCode: constants.StatusUnreachable,
				Message:    "validator circuit breaker open",
			}, nil
		}
		return validator.Outcome{}, err
	}

	s.breaker.RecordRequest(true)
	return result.(validator.Outcome), nil
}

func (s *Service) forward(ctx context.Context, ev *event.ChangeEvent, decision *Decision) {
	// The gate has cleared the event; a delivery failure past this point
	// is logged but never reverses the decision.
	decision.Forwarded = true

	if err := s.forwarder.Forward(ctx, ev.Raw); err != nil {
		decision.Delivered = false
		decision.Reason = fmt.Sprintf("%s; delivery failed: %v", decision.Reason, err)
		s.log.ErrorwCtx(ctx, "Downstream delivery failed",
			"error", err,
		)
		return
	}

	decision.Delivered = true
}

func (s *Service) finish(ctx context.Context, decision *Decision, start time.Time) {
	result := decision.Result()
	metrics.GatewayEventsTotal.WithLabelValues(decision.EventKind, result).Inc()
	metrics.ObserveGatewayDuration(time.Since(start), result)

	s.log.InfowCtx(ctx, "Gateway decision",
		"decision_id", decision.ID,
		"event_kind", decision.EventKind,
		"validation_required", decision.ValidationRequired,
		"forwarded", decision.Forwarded,
		"delivered", decision.Delivered,
		"reason", decision.Reason,
	)

	if s.sink == nil {
		return
	}
	if err := s.sink.Record(ctx, *decision); err != nil {
		s.log.ErrorwCtx(ctx, "Failed to record gateway decision",
			"decision_id", decision.ID,
			"error", err,
		)
	}
}

func validationStatus(outcome validator.Outcome, err error) string {
	switch {
	case err != nil:
		return "error"
	case outcome.Succeeded:
		return "success"
	case outcome.AuthRejected():
		return "auth_rejected"
	case outcome.Unreachable():
		return "unreachable"
	default:
		return "rejected"
	}
}

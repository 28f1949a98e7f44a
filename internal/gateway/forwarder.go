package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"netgate/internal/config"
	"netgate/internal/constants"
	"netgate/internal/logger"
	"netgate/pkg/errors"
	"netgate/pkg/metrics"
	"netgate/pkg/retry"
)

// HTTPForwarder relays accepted events to the downstream config generator.
// The payload is the original envelope, byte for byte; the gateway never
// rewrites what the inventory system sent.
type HTTPForwarder struct {
	url    string
	client *http.Client
	policy retry.Policy
	log    logger.Logger
}

func NewHTTPForwarder(cfg config.DownstreamConfig, log logger.Logger) *HTTPForwarder {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = constants.DefaultForwardTimeout
	}

	policy := retry.DefaultPolicy()
	if cfg.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.InitialInterval > 0 {
		policy.InitialInterval = cfg.Retry.InitialInterval
	}
	if cfg.Retry.MaxInterval > 0 {
		policy.MaxInterval = cfg.Retry.MaxInterval
	}
	if cfg.Retry.Multiplier > 1 {
		policy.Multiplier = cfg.Retry.Multiplier
	}

	return &HTTPForwarder{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
		policy: policy,
		log:    log,
	}
}

func (f *HTTPForwarder) Forward(ctx context.Context, raw json.RawMessage) error {
	err := retry.RetryWithCallback(ctx, f.policy, func() error {
		return f.post(ctx, raw)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.ForwardRetryTotal.Inc()
		f.log.WarnwCtx(ctx, "Downstream delivery attempt failed, retrying",
			"attempt", attempt,
			"next_delay", nextDelay.String(),
			"error", err,
		)
	})

	if err != nil {
		metrics.ForwardDeliveryTotal.WithLabelValues("failure").Inc()
		return err
	}

	metrics.ForwardDeliveryTotal.WithLabelValues("success").Inc()
	return nil
}

func (f *HTTPForwarder) post(ctx context.Context, raw json.RawMessage) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(raw))
	if err != nil {
		return retry.NewFatalError(errors.ErrDelivery.WithCause(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.NewFatalError(ctx.Err())
		}
		return errors.ErrDelivery.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= constants.HTTPStatusOKMin && resp.StatusCode < constants.HTTPStatusOKMax {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		// The downstream rejected the payload itself; repeating the
		// same bytes cannot change its mind.
		return retry.NewFatalError(errors.ErrDelivery.
			WithDetail("status_code", resp.StatusCode).
			WithDetail("message", string(body)))
	}

	return errors.ErrDelivery.
		WithDetail("status_code", resp.StatusCode).
		WithDetail("message", fmt.Sprintf("downstream returned %d: %s", resp.StatusCode, string(body)))
}

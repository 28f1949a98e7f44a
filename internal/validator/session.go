package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"netgate/internal/config"
	"netgate/internal/constants"
	"netgate/internal/logger"
	"netgate/pkg/errors"
	"netgate/pkg/metrics"
)

// Manager owns the single cached validator session. Reads take the fast
// path; a refresh is a critical section, so concurrent authentication
// rejections collapse into one signin call instead of a thundering herd
// against the auth endpoint.
type Manager struct {
	cfg    config.ValidationConfig
	client *http.Client
	log    logger.Logger

	mu         sync.RWMutex
	session    *Session
	generation uint64
}

func NewManager(cfg config.ValidationConfig, log logger.Logger) *Manager {
	timeout := cfg.AuthTimeoutSeconds
	if timeout <= 0 {
		timeout = constants.DefaultAuthTimeout
	}
	return &Manager{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// Acquire returns the cached session, performing a signin only when none
// exists. Callers that race on a cold cache block until the first signin
// completes and then share its result.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	m.mu.RLock()
	session := m.session
	m.mu.RUnlock()
	if session != nil {
		return session, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return m.session, nil
	}

	session, err := m.signin(ctx)
	if err != nil {
		return nil, err
	}

	m.generation++
	session.Generation = m.generation
	m.session = session
	return session, nil
}

// Invalidate discards the cached session the caller was rejected with. When
// another event has already replaced it, the call is a no-op: concurrent
// rejections of the same stale token collapse into a single refresh, and
// the later callers reuse the fresh session instead of signing in again.
func (m *Manager) Invalidate(stale *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return
	}
	if stale != nil && m.session.Generation > stale.Generation {
		return
	}

	m.session = nil
	metrics.SessionInvalidationsTotal.Inc()
}

type signinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (m *Manager) signin(ctx context.Context) (*Session, error) {
	body, err := json.Marshal(signinRequest{
		Username: m.cfg.Username,
		Password: m.cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signin request: %w", err)
	}

	url := m.cfg.BaseURL + m.cfg.AuthEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create signin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	m.log.InfowCtx(ctx, "Authenticating with validator", "url", url)

	resp, err := m.client.Do(req)
	if err != nil {
		metrics.SessionRefreshTotal.WithLabelValues("error").Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.ErrAuthentication.WithCause(err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		metrics.SessionRefreshTotal.WithLabelValues("rejected").Inc()
		return nil, errors.ErrAuthentication.
			WithDetail("status_code", resp.StatusCode).
			WithDetail("message", strings.TrimSpace(string(respBody)))
	}

	token := extractToken(respBody)
	if token == "" {
		metrics.SessionRefreshTotal.WithLabelValues("malformed").Inc()
		return nil, errors.ErrAuthentication.
			WithDetail("status_code", resp.StatusCode).
			WithDetail("message", "signin response carries no token")
	}

	metrics.SessionRefreshTotal.WithLabelValues("success").Inc()
	m.log.InfowCtx(ctx, "Validator authentication successful")

	return &Session{
		Token:      token,
		ObtainedAt: time.Now(),
	}, nil
}

// extractToken tolerates the token field names observed across validator
// versions.
func extractToken(body []byte) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	for _, key := range []string{"token", "access_token", "accessToken"} {
		if value, ok := payload[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

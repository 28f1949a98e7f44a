package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netgate/internal/logger"
)

type fakeStore struct {
	fakeSink
	recent []Decision
	err    error
}

func (f *fakeStore) Recent(ctx context.Context, limit int) ([]Decision, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.recent) {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *serviceFixture, *fakeStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := newFixture(validationConfig())
	store := &fakeStore{}
	handler := NewHandler(f.service, store, nil, logger.NopLogger())

	router := gin.New()
	handler.RegisterRoutes(router)
	return router, f, store
}

func TestWebhookAcknowledgesForwardedEvent(t *testing.T) {
	router, f, _ := newTestRouter(t)

	body := `{"event": "updated", "model": "dcim.device", "data": {"id": 1, "name": "edge-01"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "received", resp["status"])
	assert.Equal(t, "forwarded", resp["result"])
	assert.NotEmpty(t, resp["decision_id"])
	assert.Len(t, f.forwarder.calls, 1)
}

func TestWebhookAcknowledgesSuppressedEvent(t *testing.T) {
	router, f, _ := newTestRouter(t)

	body := `{"event": "created", "model": "dcim.device", "data": {"id": 2, "name": "no-ip-device"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, "suppression still acknowledges receipt")

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "suppressed", resp["result"])
	assert.Empty(t, f.forwarder.calls)
}

func TestWebhookMalformedPayload(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"event":`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INPUT_ERROR", resp["error_code"])
}

func TestRecentDecisions(t *testing.T) {
	router, _, store := newTestRouter(t)
	store.recent = []Decision{{ID: "d1"}, {ID: "d2"}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/decisions", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count     int        `json:"count"`
		Decisions []Decision `json:"decisions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Decisions, 2)
	assert.Equal(t, "d1", resp.Decisions[0].ID)
}

func TestRecentDecisionsLimit(t *testing.T) {
	router, _, store := newTestRouter(t)
	store.recent = []Decision{{ID: "d1"}, {ID: "d2"}, {ID: "d3"}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/decisions?limit=2", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
}

func TestRecentDecisionsInvalidLimit(t *testing.T) {
	router, _, _ := newTestRouter(t)

	for _, limit := range []string{"abc", "-1", "0"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/decisions?limit="+limit, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit %q", limit)
	}
}

func TestHealthzWithoutRegistry(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIndex(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation-gateway", resp["service"])
}

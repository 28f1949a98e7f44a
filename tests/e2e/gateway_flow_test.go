// Package e2e drives the full webhook-to-downstream flow in process: a gin
// router wired exactly as the service wires it, against stub validator and
// downstream HTTP servers.
package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netgate/internal/audit"
	"netgate/internal/config"
	"netgate/internal/event"
	"netgate/internal/gateway"
	"netgate/internal/logger"
	"netgate/internal/validator"
)

type validatorStub struct {
	srv          *httptest.Server
	signins      int32
	validations  int32
	rejectDevice bool
}

func newValidatorStub() *validatorStub {
	stub := &validatorStub{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&stub.signins, 1)
		w.Write([]byte(`{"token": "e2e-token"}`))
	})
	mux.HandleFunc("/device", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&stub.validations, 1)
		if r.Header.Get("Authorization") != "Bearer e2e-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if stub.rejectDevice {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message": "ssh authentication failed"}`))
			return
		}
		w.Write([]byte(`{"message": "validated"}`))
	})
	stub.srv = httptest.NewServer(mux)
	return stub
}

type downstreamStub struct {
	srv      *httptest.Server
	payloads [][]byte
}

func newDownstreamStub() *downstreamStub {
	stub := &downstreamStub{}
	stub.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		stub.payloads = append(stub.payloads, body)
		w.WriteHeader(http.StatusOK)
	}))
	return stub
}

type fixture struct {
	router     *gin.Engine
	validator  *validatorStub
	downstream *downstreamStub
	store      *audit.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	vstub := newValidatorStub()
	t.Cleanup(vstub.srv.Close)
	dstub := newDownstreamStub()
	t.Cleanup(dstub.srv.Close)

	validationCfg := config.ValidationConfig{
		Enabled:               true,
		BaseURL:               vstub.srv.URL,
		AuthEndpoint:          "/api/auth/signin",
		DeviceEndpoint:        "/device",
		Username:              "gateway",
		Password:              "gateway-pass",
		DefaultDeviceUsername: "default-user",
		DefaultDevicePassword: "default-pass",
	}
	downstreamCfg := config.DownstreamConfig{
		URL:            dstub.srv.URL,
		TimeoutSeconds: 5 * time.Second,
		Retry:          config.RetryConfig{MaxAttempts: 1, Multiplier: 2.0},
	}

	log := logger.NopLogger()
	store := audit.NewMemoryStore(100)
	composite := audit.NewComposite(log)
	composite.Add("memory", store)

	service := gateway.NewService(
		event.NewClassifier(validationCfg, log),
		validator.NewManager(validationCfg, log),
		validator.NewClient(validationCfg, log),
		gateway.NewHTTPForwarder(downstreamCfg, log),
		composite,
		nil,
		log,
	)

	router := gin.New()
	gateway.NewHandler(service, store, nil, log).RegisterRoutes(router)

	return &fixture{router: router, validator: vstub, downstream: dstub, store: store}
}

func (f *fixture) post(t *testing.T, body string) map[string]interface{} {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreatedDeviceFlowsThroughGate(t *testing.T) {
	f := newFixture(t)

	body := `{"event": "created", "model": "dcim.device", "data": {"id": 1, "name": "edge-01", "primary_ip4": {"address": "10.4.160.240/32"}, "custom_fields": {"username": "admin", "password": "secret"}}}`
	resp := f.post(t, body)

	assert.Equal(t, "forwarded", resp["result"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.validator.signins))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.validator.validations))
	require.Len(t, f.downstream.payloads, 1)
	assert.JSONEq(t, body, string(f.downstream.payloads[0]))
}

func TestRejectedDeviceIsSuppressed(t *testing.T) {
	f := newFixture(t)
	f.validator.rejectDevice = true

	body := `{"event": "created", "model": "dcim.device", "data": {"id": 2, "primary_ip4": {"address": "10.0.0.2"}}}`
	resp := f.post(t, body)

	assert.Equal(t, "suppressed", resp["result"])
	assert.Empty(t, f.downstream.payloads)
}

func TestUpdateBypassesValidator(t *testing.T) {
	f := newFixture(t)

	body := `{"event": "updated", "model": "dcim.device", "data": {"id": 3, "name": "edge-03"}}`
	resp := f.post(t, body)

	assert.Equal(t, "forwarded", resp["result"])
	assert.Zero(t, atomic.LoadInt32(&f.validator.signins))
	assert.Zero(t, atomic.LoadInt32(&f.validator.validations))
	require.Len(t, f.downstream.payloads, 1)
}

func TestSessionReusedAcrossEvents(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		body := `{"event": "created", "model": "dcim.device", "data": {"id": 10, "primary_ip4": {"address": "10.0.0.10"}}}`
		f.post(t, body)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&f.validator.signins), "one signin serves all events")
	assert.Equal(t, int32(3), atomic.LoadInt32(&f.validator.validations))
}

func TestDecisionsAPIReflectsProcessing(t *testing.T) {
	f := newFixture(t)

	f.post(t, `{"event": "created", "model": "dcim.device", "data": {"id": 1, "primary_ip4": {"address": "10.0.0.1"}}}`)
	f.post(t, `{"event": "created", "model": "ipam.prefix", "data": {"id": 2}}`)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/decisions", nil)
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count     int                `json:"count"`
		Decisions []gateway.Decision `json:"decisions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)

	assert.Equal(t, "created", resp.Decisions[0].EventKind)
	assert.False(t, resp.Decisions[0].Forwarded, "non-device event is newest and not forwarded")
	assert.True(t, resp.Decisions[1].Forwarded)
}

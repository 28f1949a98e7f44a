package validator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netgate/internal/config"
	"netgate/internal/event"
	"netgate/internal/logger"
)

func clientConfig(baseURL string) config.ValidationConfig {
	return config.ValidationConfig{
		Enabled:        true,
		BaseURL:        baseURL,
		DeviceEndpoint: "/device",
	}
}

func testCreds() event.CredentialView {
	return event.CredentialView{
		IPAddress: "10.4.160.240",
		Username:  "admin",
		Password:  "secret",
	}
}

func TestValidateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/device", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "10.4.160.240", req["ipAddress"])
		assert.Equal(t, "admin", req["username"])
		assert.Contains(t, req, "licenseKey", "field must be present even when empty")

		w.Write([]byte(`{"message": "reachable and credentials accepted"}`))
	}))
	defer srv.Close()

	c := NewClient(clientConfig(srv.URL), logger.NopLogger())
	outcome, err := c.Validate(context.Background(), &Session{Token: "tok"}, testCreds())
	require.NoError(t, err)

	assert.True(t, outcome.Succeeded)
	assert.Equal(t, http.StatusOK, outcome.StatusCode)
	assert.Equal(t, "reachable and credentials accepted", outcome.Message)
}

func TestValidateSuccessEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(clientConfig(srv.URL), logger.NopLogger())
	outcome, err := c.Validate(context.Background(), &Session{Token: "tok"}, testCreds())
	require.NoError(t, err)

	assert.True(t, outcome.Succeeded)
	assert.Equal(t, "device validated successfully", outcome.Message)
}

func TestValidateRejected(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantMessage   string
		wantAuthError bool
	}{
		{
			name:        "device rejected with message",
			status:      http.StatusUnprocessableEntity,
			body:        `{"message": "ssh authentication failed"}`,
			wantMessage: "ssh authentication failed",
		},
		{
			name:        "plain text error body",
			status:      http.StatusInternalServerError,
			body:        "boom",
			wantMessage: "boom",
		},
		{
			name:          "session rejected",
			status:        http.StatusUnauthorized,
			body:          `{"message": "token expired"}`,
			wantMessage:   "token expired",
			wantAuthError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(clientConfig(srv.URL), logger.NopLogger())
			outcome, err := c.Validate(context.Background(), &Session{Token: "tok"}, testCreds())
			require.NoError(t, err)

			assert.False(t, outcome.Succeeded)
			assert.Equal(t, tt.status, outcome.StatusCode)
			assert.Equal(t, tt.wantMessage, outcome.Message)
			assert.Equal(t, tt.wantAuthError, outcome.AuthRejected())
		})
	}
}

func TestValidateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(clientConfig(srv.URL), logger.NopLogger())
	outcome, err := c.Validate(context.Background(), &Session{Token: "tok"}, testCreds())
	require.NoError(t, err, "transport failure is an outcome, not an error")

	assert.False(t, outcome.Succeeded)
	assert.True(t, outcome.Unreachable())
	assert.NotEmpty(t, outcome.Message)
}

func TestValidateCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(clientConfig(srv.URL), logger.NopLogger())
	_, err := c.Validate(ctx, &Session{Token: "tok"}, testCreds())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateNilSession(t *testing.T) {
	c := NewClient(clientConfig("http://localhost"), logger.NopLogger())
	_, err := c.Validate(context.Background(), nil, testCreds())
	require.Error(t, err)
}

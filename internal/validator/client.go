package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"netgate/internal/config"
	"netgate/internal/constants"
	"netgate/internal/event"
	"netgate/internal/logger"
)

// Client issues device credential validation calls against the external
// validator. It performs no retries and classifies every remote-side
// failure into the Outcome; retry policy belongs to the orchestrator.
type Client struct {
	cfg    config.ValidationConfig
	client *http.Client
	log    logger.Logger
}

func NewClient(cfg config.ValidationConfig, log logger.Logger) *Client {
	timeout := cfg.ValidateTimeoutSeconds
	if timeout <= 0 {
		timeout = constants.DefaultValidateTimeout
	}
	return &Client{
		cfg: cfg,
		// Validation is an SSH round trip to a third device on the
		// remote side, so this timeout is deliberately much longer
		// than the auth timeout.
		client: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type validateRequest struct {
	IPAddress string `json:"ipAddress"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	// The remote contract requires the field's presence, not its content.
	LicenseKey string `json:"licenseKey"`
}

type validateResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// Validate runs one validation attempt with the given session. The error
// return is reserved for contract violations and context cancellation;
// everything the remote side says comes back in the Outcome.
func (c *Client) Validate(ctx context.Context, session *Session, creds event.CredentialView) (Outcome, error) {
	if session == nil {
		return Outcome{}, fmt.Errorf("validate called with nil session")
	}

	body, err := json.Marshal(validateRequest{
		IPAddress:  creds.IPAddress,
		Username:   creds.Username,
		Password:   creds.Password,
		LicenseKey: "",
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to marshal validation request: %w", err)
	}

	url := c.cfg.BaseURL + c.cfg.DeviceEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to create validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session.Token)

	c.log.InfowCtx(ctx, "Validating device credentials", "ip_address", creds.IPAddress)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		return Outcome{
			Succeeded:  false,
			StatusCode: constants.StatusUnreachable,
			Message:    err.Error(),
		}, nil
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var parsed validateResponse
	_ = json.Unmarshal(respBody, &parsed)

	if resp.StatusCode >= constants.HTTPStatusOKMin && resp.StatusCode < constants.HTTPStatusOKMax {
		message := parsed.Message
		if message == "" {
			message = "device validated successfully"
		}
		return Outcome{
			Succeeded:  true,
			StatusCode: resp.StatusCode,
			Message:    message,
		}, nil
	}

	message := parsed.Message
	if message == "" {
		message = strings.TrimSpace(string(respBody))
	}

	return Outcome{
		Succeeded:  false,
		StatusCode: resp.StatusCode,
		Message:    message,
	}, nil
}

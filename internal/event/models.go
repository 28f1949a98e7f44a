package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"netgate/pkg/errors"
)

// Kind is the closed set of inventory change kinds. Anything else on the
// wire decodes to KindUnknown and is acknowledged without processing.
type Kind int

const (
	KindUnknown Kind = iota
	KindCreated
	KindUpdated
	KindDeleted
)

func (k Kind) String() string {
	switch k {
	case KindCreated:
		return "created"
	case KindUpdated:
		return "updated"
	case KindDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

func KindFromString(s string) Kind {
	switch strings.ToLower(s) {
	case "created":
		return KindCreated
	case "updated":
		return KindUpdated
	case "deleted":
		return KindDeleted
	default:
		return KindUnknown
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = KindFromString(s)
	return nil
}

// IPRef tolerates both of the inventory system's representations of an IP
// reference: an object carrying an "address" field, or a bare string.
type IPRef struct {
	Address string `json:"address"`
}

func (r *IPRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		r.Address = ""
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		r.Address = s
		return nil
	}

	type ipRef IPRef
	var v ipRef
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	*r = IPRef(v)
	return nil
}

type DeviceData struct {
	ID           int64                  `json:"id"`
	Name         string                 `json:"name"`
	Status       json.RawMessage        `json:"status,omitempty"`
	PrimaryIP4   *IPRef                 `json:"primary_ip4,omitempty"`
	PrimaryIP    *IPRef                 `json:"primary_ip,omitempty"`
	CustomFields map[string]interface{} `json:"custom_fields,omitempty"`
}

// ChangeEvent is one inventory mutation. Raw holds the envelope exactly as
// received; the forwarder sends those bytes, never a re-marshalled copy.
type ChangeEvent struct {
	Kind      Kind
	Model     string
	Timestamp string
	Data      DeviceData
	Raw       json.RawMessage
}

type envelope struct {
	Event     Kind       `json:"event"`
	Model     string     `json:"model"`
	Timestamp string     `json:"timestamp"`
	Data      DeviceData `json:"data"`
}

// Parse decodes an inbound webhook body into a ChangeEvent, retaining the
// original bytes.
func Parse(raw []byte) (*ChangeEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.ErrInput.WithCause(fmt.Errorf("malformed event envelope: %w", err))
	}

	rawCopy := make([]byte, len(raw))
	copy(rawCopy, raw)

	return &ChangeEvent{
		Kind:      env.Event,
		Model:     env.Model,
		Timestamp: env.Timestamp,
		Data:      env.Data,
		Raw:       rawCopy,
	}, nil
}

// DeviceRef identifies the device for logs and audit records.
func (e *ChangeEvent) DeviceRef() string {
	if e.Data.Name != "" {
		return e.Data.Name
	}
	if e.Data.ID != 0 {
		return fmt.Sprintf("device-%d", e.Data.ID)
	}
	return "unknown"
}

// CredentialView is the ephemeral projection handed to the validator. It is
// built per event and discarded after the validation call.
type CredentialView struct {
	IPAddress string
	Username  string
	Password  string
}

// ErrMissingIPAddress marks a device event that cannot be validated because
// the payload carries no usable management IP. A local input error: the
// remote validator is never called and the event is never retried.
var ErrMissingIPAddress = errors.NewError("INPUT_ERROR", "device has no primary IP address", http.StatusBadRequest).AsFatal()

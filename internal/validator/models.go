package validator

import (
	"net/http"
	"time"

	"netgate/internal/constants"
)

// Session is the cached bearer credential for the external validator. A
// single instance is shared by all in-flight events and owned by the
// Manager; it is treated as valid until a validate call is rejected.
// Generation orders sessions so that invalidating an already-replaced
// session does not discard its successor.
type Session struct {
	Token      string
	ObtainedAt time.Time
	Generation uint64
}

// Outcome is the result of one validation attempt. Exactly one of
// {Succeeded with a 2xx status} or {!Succeeded} holds; there is no partial
// state. Remote-side failures are represented here, never as errors.
type Outcome struct {
	Succeeded  bool   `json:"succeeded"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

// AuthRejected reports that the remote service refused the session token,
// which the gateway treats as implicit session expiry.
func (o Outcome) AuthRejected() bool {
	return !o.Succeeded && o.StatusCode == http.StatusUnauthorized
}

// Unreachable reports a transport-level failure rather than a verdict.
func (o Outcome) Unreachable() bool {
	return !o.Succeeded && o.StatusCode == constants.StatusUnreachable
}

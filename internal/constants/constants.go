package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultAuthTimeout     = 10 * time.Second
	DefaultValidateTimeout = 60 * time.Second
	DefaultForwardTimeout  = 30 * time.Second
	HealthCheckTimeout     = 5 * time.Second
)

const (
	DefaultAuthEndpoint   = "/api/auth/signin"
	DefaultDeviceEndpoint = "/device"
)

// StatusUnreachable is the synthetic status recorded when the validator
// cannot be reached at all (timeout, refused connection, DNS failure).
// It never collides with a real status returned by the remote service.
const StatusUnreachable = 599

const (
	DeviceEntityType = "device"
)

const (
	CustomFieldUsername    = "username"
	CustomFieldSSHUsername = "ssh_username"
	CustomFieldPassword    = "password"
	CustomFieldSSHPassword = "ssh_password"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultDecisionLimit = 100
	MaxDecisionLimit     = 1000
	DecisionRingSize     = 100
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

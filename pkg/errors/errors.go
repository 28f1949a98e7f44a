package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Gateway taxonomy. Input and rejection errors are fatal: replaying
	// them against the remote validator yields no new information.
	ErrInput              = NewError("INPUT_ERROR", "invalid event payload", http.StatusBadRequest).AsFatal()
	ErrAuthentication     = NewError("AUTHENTICATION_ERROR", "validator signin rejected", http.StatusUnauthorized)
	ErrValidationRejected = NewError("VALIDATION_REJECTED", "device validation rejected", http.StatusUnprocessableEntity).AsFatal()
	ErrTransport          = NewError("TRANSPORT_ERROR", "validator unreachable", http.StatusBadGateway)
	ErrDelivery           = NewError("DOWNSTREAM_DELIVERY_ERROR", "downstream delivery failed", http.StatusBadGateway).AsRetryable()

	ErrValidation  = NewError("VALIDATION_ERROR", "validation failed", http.StatusBadRequest)
	ErrNotFound    = NewError("NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrRateLimited = NewError("RATE_LIMIT_EXCEEDED", "rate limit exceeded", http.StatusTooManyRequests).AsRetryable()
	ErrInternal    = NewError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

type Error struct {
	Code      string
	Message   string
	Status    int
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	if e.Cause != nil {
		var retryableErr RetryableError
		if errors.As(e.Cause, &retryableErr) {
			return retryableErr.IsRetryable()
		}
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return !fatalErr.IsFatal()
		}
	}
	return true
}

func (e *Error) IsFatal() bool {
	if e.retryable != nil {
		return !*e.retryable
	}

	if e.Cause != nil {
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return fatalErr.IsFatal()
		}
	}

	return false
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	err.Details = details
	return &err
}

func (e *Error) AsRetryable() *Error {
	err := *e
	retryable := true
	err.retryable = &retryable
	return &err
}

func (e *Error) AsFatal() *Error {
	err := *e
	retryable := false
	err.retryable = &retryable
	return &err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

func Is(err error, appErr *Error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == appErr.Code
	}
	return false
}

func IsInput(err error) bool          { return Is(err, ErrInput) }
func IsAuthentication(err error) bool { return Is(err, ErrAuthentication) }
func IsTransport(err error) bool      { return Is(err, ErrTransport) }

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	response := map[string]interface{}{
		"error":      appErr.Message,
		"error_code": appErr.Code,
	}

	if len(appErr.Details) > 0 {
		response["details"] = appErr.Details
	}

	return response
}

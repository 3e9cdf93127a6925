package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	// ErrorValidation marks input the agent cannot work with at all. Missing
	// transfer details inside a conversation are re-prompted instead.
	ErrorValidation ErrorCode = "VALIDATION_ERROR"
	ErrorResolution ErrorCode = "RESOLUTION_ERROR"
	ErrorBackground ErrorCode = "BACKGROUND_ERROR"
	ErrorUpstream   ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal   ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

// errorFields describes err for a log line.
func errorFields(err error) map[string]interface{} {
	fields := map[string]interface{}{"error": err.Error()}
	var uerr *Error
	if errors.As(err, &uerr) {
		fields["code"] = string(uerr.Code)
		fields["reason"] = uerr.Reason
	}
	if status, ok := upstreamStatusCode(err); ok {
		fields["upstream_status"] = status
	}
	return fields
}

package taskapi

import (
	"errors"
	"fmt"
	"time"
)

// Reason categorizes a task-service failure.
type Reason string

const (
	ReasonInvalidToken  Reason = "invalid_token"
	ReasonQuotaExceeded Reason = "quota_exceeded"
	ReasonRemoteError   Reason = "remote_error"
	ReasonNotFound      Reason = "not_found"
)

// Error is a categorized task-service failure. RetryAfter is set on quota
// errors when the wait until the next admittable request is known.
type Error struct {
	Reason     Reason
	Detail     string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.RetryAfter > 0 {
		return fmt.Sprintf("task service %s: %s (retry after %s)", e.Reason, e.Detail, e.RetryAfter)
	}

	return fmt.Sprintf("task service %s: %s", e.Reason, e.Detail)
}

// ReasonFromError returns the failure reason when err is a task-service
// error, or ReasonRemoteError otherwise.
func ReasonFromError(err error) Reason {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Reason
	}

	return ReasonRemoteError
}

package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized means the server rejected our credentials even after a
	// token refresh. Callers end the session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNetwork wraps transport failures: DNS, refused connections, resets,
	// timeouts. The request may or may not have reached the server.
	ErrNetwork = errors.New("network error")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

// Failure classifies an error for retry decisions.
type Failure int

const (
	// FailureTransient may succeed if retried later (network, timeout, 5xx).
	FailureTransient Failure = iota
	// FailurePermanent can never succeed as sent (validation, 4xx).
	FailurePermanent
	// FailureAuth needs a new session before anything else can succeed.
	FailureAuth
)

func (f Failure) String() string {
	switch f {
	case FailurePermanent:
		return "permanent"
	case FailureAuth:
		return "auth"
	default:
		return "transient"
	}
}

// Classify decides whether err is worth retrying.
//
// Transport errors and context expiry are transient. A server answer is
// permanent when its status is a 4xx other than 401, 408 and 429, or when
// its message carries a "validation" or "bad request" signature; anything
// else (5xx, throttling) is transient.
func Classify(err error) Failure {
	switch {
	case err == nil:
		return FailureTransient
	case errors.Is(err, ErrUnauthorized):
		return FailureAuth
	case errors.Is(err, ErrNetwork),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return FailureTransient
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusUnauthorized:
			return FailureAuth
		case apiErr.Status == http.StatusRequestTimeout,
			apiErr.Status == http.StatusTooManyRequests:
			return FailureTransient
		case apiErr.Status >= 400 && apiErr.Status < 500:
			return FailurePermanent
		}
	}

	if hasRejectionSignature(err.Error()) {
		return FailurePermanent
	}
	return FailureTransient
}

// IsPermanent is shorthand for Classify(err) == FailurePermanent.
func IsPermanent(err error) bool { return Classify(err) == FailurePermanent }

func hasRejectionSignature(msg string) bool {
	low := strings.ToLower(msg)
	return strings.Contains(low, "validation") || strings.Contains(low, "bad request")
}

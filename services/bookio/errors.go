package bookio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is returned for any failed call to the widget API.
type ProviderError struct {
	Endpoint string
	Status   int // 0 when the request never got a response
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("bookio %s: status %d: %s", e.Endpoint, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("bookio %s: %s: %v", e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("bookio %s: %s", e.Endpoint, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Temporary is true for transport failures, timeouts, 429 and 5xx responses.
// A 4xx means the request itself was rejected and repeating it will not help.
func (e *ProviderError) Temporary() bool {
	if e.Status == 0 {
		return true
	}
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// IsTemporary reports whether err is a transient provider failure. Errors that
// are not ProviderErrors are treated as permanent, except context expiry.
func IsTemporary(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Temporary()
	}
	return false
}

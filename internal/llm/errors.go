package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrUnavailable marks the capability as unreachable. It is the one capability
// failure that ends a whole extraction run.
var ErrUnavailable = errors.New("extraction capability unavailable")

// RetryableError wraps an error to indicate it can be retried.
type RetryableError struct {
	Err        error
	StatusCode int
}

func (e *RetryableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("retryable (status %d): %v", e.StatusCode, e.Err)
	}
	return "retryable: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Retryable wraps err as a RetryableError.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable checks if an error should be retried.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Unavailable wraps a transport failure so it is both retryable and
// recognised as ErrUnavailable once retries run out.
func Unavailable(err error) error {
	return &RetryableError{Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
}

// TransportError classifies a request that got no response. Timeouts and
// resets stay retryable failures of that one request; refused connections,
// unreachable hosts and failed name lookups mean the capability cannot be
// reached and wrap ErrUnavailable.
func TransportError(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return Retryable(err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return Unavailable(err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return Unavailable(err)
	}
	return Retryable(err)
}

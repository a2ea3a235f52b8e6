package gls

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Fault is a SOAP-level fault returned by the service. Client-class faults
// (authentication, validation) are terminal; server-class faults are retried.
type Fault struct {
	Code    string
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.Message)
}

// HTTPError is a non-200 HTTP response without a decodable SOAP fault.
type HTTPError struct {
	Operation string
	Status    int
	Body      string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: server returned %d: %s", e.Operation, e.Status, e.Body)
}

// ClientError wraps the last fault of an operation after its retry budget is
// exhausted, or a terminal fault that was not worth retrying.
type ClientError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *ClientError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s failed after %d attempts: %v", e.Operation, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

// retriable classifies a fault as transient (worth retrying) or terminal.
// Timeouts, network errors, 5xx statuses and server-class SOAP faults are
// transient; 4xx statuses and client-class SOAP faults (authentication,
// validation) are terminal.
func retriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status >= 500
	}

	var fault *Fault
	if errors.As(err, &fault) {
		return !strings.Contains(strings.ToLower(fault.Code), "client")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	return false
}

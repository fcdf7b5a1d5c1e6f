package router

import (
	"errors"
	"fmt"
	"net/url"
)

// Kind is the category of a router API failure. It is used for logging
// and metrics only; callers above this package see flat text (see Message).
type Kind int

const (
	// KindTransport indicates the request never completed (connection
	// refused, timeout, DNS, malformed request URL).
	KindTransport Kind = iota
	// KindStatus indicates the router answered with a non-2xx status.
	KindStatus
	// KindDecode indicates the response body did not have the expected shape.
	KindDecode
)

// String returns the lower-case label used in logs and metrics
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RouterError describes a failed router API call.
type RouterError struct {
	Kind       Kind   // Category of failure
	Op         string // Operation: "login", "wan_status", "change_wan_status"
	StatusCode int    // HTTP status code (KindStatus only)
	Status     string // HTTP status line text (KindStatus only)
	Err        error  // Underlying cause (KindTransport, KindDecode)
}

// Error returns the cause's description. Op is deliberately left out so the
// text matches what the router or the network actually reported.
func (e *RouterError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("HTTP status %s", e.Status)
	case KindDecode:
		return fmt.Sprintf("error decoding response body: %v", e.Err)
	default:
		return fmt.Sprintf("error sending request: %v", e.Err)
	}
}

// Unwrap returns the underlying error for error chain inspection
func (e *RouterError) Unwrap() error {
	return e.Err
}

func newTransportError(op string, err error) *RouterError {
	// *url.Error embeds the request URL, which carries the session token.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return &RouterError{Kind: KindTransport, Op: op, Err: err}
}

func newStatusError(op string, code int, status string) *RouterError {
	if status == "" {
		status = fmt.Sprintf("%d", code)
	}
	return &RouterError{Kind: KindStatus, Op: op, StatusCode: code, Status: status}
}

func newDecodeError(op string, err error) *RouterError {
	return &RouterError{Kind: KindDecode, Op: op, Err: err}
}

// KindOf returns the kind of a *RouterError anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var rerr *RouterError
	if errors.As(err, &rerr) {
		return rerr.Kind, true
	}
	return 0, false
}

// IsTransportError reports whether err is a transport failure
func IsTransportError(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindTransport
}

// IsStatusError reports whether err is a non-success HTTP status
func IsStatusError(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindStatus
}

// IsDecodeError reports whether err is a malformed response body
func IsDecodeError(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindDecode
}

// Message flattens any error into the human-readable text reported as a job
// result or page error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// ErrorKind classifies a failed model call
type ErrorKind int

const (
	// KindTimeout means the call exceeded its deadline
	KindTimeout ErrorKind = iota + 1
	// KindRateLimit means the endpoint answered HTTP 429
	KindRateLimit
	// KindAuth means the endpoint answered HTTP 401
	KindAuth
	// KindAPI covers every other HTTP error and undecodable answers
	KindAPI
	// KindConnection means no response was received
	KindConnection
)

// Reason returns the human-readable reason for the kind
func (k ErrorKind) Reason() string {
	switch k {
	case KindTimeout:
		return "timeout calling model"
	case KindRateLimit:
		return "rate limit exceeded"
	case KindAuth:
		return "authentication failure"
	case KindAPI:
		return "API error"
	case KindConnection:
		return "connection failure"
	default:
		return "unknown error"
	}
}

func (k ErrorKind) String() string {
	return k.Reason()
}

// ClientError is returned by every provider when a model call fails
type ClientError struct {
	Provider string
	Kind     ErrorKind
	Status   int    // HTTP status, 0 when no response was received
	Body     string // response body for KindAPI
	Err      error
}

func (e *ClientError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind.Reason())
	switch {
	case e.Kind == KindAPI && e.Status > 0:
		msg += fmt.Sprintf(": %d - %s", e.Status, e.Body)
	case e.Status > 0:
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	case e.Err != nil:
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// Reason returns the human-readable failure reason
func (e *ClientError) Reason() string {
	return e.Kind.Reason()
}

// transportError classifies a failure that produced no HTTP response
func transportError(provider string, err error) *ClientError {
	kind := KindConnection
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &ClientError{Provider: provider, Kind: kind, Err: err}
}

// statusError classifies a non-2xx HTTP answer
func statusError(provider string, status int, body string, err error) *ClientError {
	kind := KindAPI
	switch status {
	case http.StatusTooManyRequests:
		kind = KindRateLimit
	case http.StatusUnauthorized:
		kind = KindAuth
	}
	return &ClientError{Provider: provider, Kind: kind, Status: status, Body: body, Err: err}
}

// isNetworkFailure reports whether err came from the transport rather than
// from decoding an answer
func isNetworkFailure(err error) bool {
	var urlErr *url.Error
	var netErr net.Error
	return errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// sdkError classifies an SDK failure that carried no HTTP status
func sdkError(provider string, err error) *ClientError {
	if isNetworkFailure(err) {
		return transportError(provider, err)
	}
	// the server answered but the body could not be decoded
	return &ClientError{Provider: provider, Kind: KindAPI, Err: err}
}

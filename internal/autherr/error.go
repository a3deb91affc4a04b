// Package autherr defines the error taxonomy shared by the API client and
// the session manager. Every transport or HTTP failure is normalized into an
// *Error before it crosses the API-client boundary; nothing above that layer
// ever sees a raw transport error.
package autherr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Kind classifies an authentication failure.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindRateLimit    Kind = "rate_limit"
	KindServer       Kind = "server_error"
	KindTimeout      Kind = "timeout"
	KindValidation   Kind = "validation"
	KindTokenExpired Kind = "token_expired"
	KindTokenInvalid Kind = "token_invalid"
	KindUnknown      Kind = "unknown"
)

// Error is the normalized authentication error.
//
// Recoverable reports whether the failure can be resolved without
// structural consequences (retry, corrected input, waiting out a rate
// limit). RetryAfter is non-zero only for rate-limit responses that carried
// a Retry-After header. Op names the operation that produced the error
// ("login", "verify", "refresh", "logout", "initialize").
type Error struct {
	Kind        Kind
	Message     string
	Op          string
	Timestamp   time.Time
	Recoverable bool
	RetryAfter  time.Duration

	// Fields carries field-level messages for validation failures,
	// keyed by input field name. Nil otherwise.
	Fields map[string]string
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an *Error with the default recoverability for its kind.
func New(op string, kind Kind, message string) *Error {
	return &Error{
		Kind:        kind,
		Message:     message,
		Op:          op,
		Timestamp:   time.Now().UTC(),
		Recoverable: defaultRecoverable(kind),
	}
}

// defaultRecoverable encodes the policy column of the taxonomy: transient
// transport and input problems are recoverable, structural credential
// problems are not. A 401 on login is recoverable (the user can re-enter
// credentials); callers that hit a terminal 401 on refresh override this
// via Terminal.
func defaultRecoverable(kind Kind) bool {
	switch kind {
	case KindNetwork, KindTimeout, KindServer, KindRateLimit, KindValidation, KindUnauthorized, KindTokenExpired:
		return true
	default:
		return false
	}
}

// Clone returns a deep copy, or nil for nil.
func (e *Error) Clone() *Error {
	if e == nil {
		return nil
	}
	c := *e
	if e.Fields != nil {
		c.Fields = make(map[string]string, len(e.Fields))
		for k, v := range e.Fields {
			c.Fields[k] = v
		}
	}
	return &c
}

// Terminal marks e as non-recoverable and returns it. Used when a refresh
// token itself is rejected: no amount of retrying will help.
func (e *Error) Terminal() *Error {
	e.Recoverable = false
	return e
}

// Transient reports whether the failure says nothing about the validity of
// the stored credentials. Tokens must never be cleared over a transient
// failure.
func (e *Error) Transient() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindServer, KindRateLimit:
		return true
	}
	return false
}

// CredentialRejected reports whether the server rejected the presented
// credential itself, which is the trigger for the refresh path.
func (e *Error) CredentialRejected() bool {
	switch e.Kind {
	case KindUnauthorized, KindTokenExpired, KindTokenInvalid:
		return true
	}
	return false
}

// FromTransport classifies an error returned by the HTTP transport itself
// (no response was received).
func FromTransport(op string, err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return New(op, KindTimeout, "request deadline exceeded")
	case errors.Is(err, context.Canceled):
		return New(op, KindNetwork, "request canceled")
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return New(op, KindTimeout, "request timed out")
	}
	return New(op, KindNetwork, err.Error())
}

// As unwraps err into an *Error, or wraps it as KindUnknown if it is not
// one. The op is only used for the unknown case.
func As(op string, err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(op, KindUnknown, err.Error())
}

package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors represent business logic failures.
// Typed errors below match one of these through errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAuthRequired indicates no client credentials are configured.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the identity provider rejected the exchange.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrCatalogUnavailable indicates the catalogue query failed.
	ErrCatalogUnavailable = errors.New("catalogue unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrSessionClosed indicates the overlay session has been torn down.
	ErrSessionClosed = errors.New("session closed")

	// ErrSuperseded indicates a newer date selection replaced this one.
	ErrSuperseded = errors.New("selection superseded")
)

// ErrorKind classifies failures reported to a shell.
type ErrorKind int

// Error kinds.
const (
	KindUnknown ErrorKind = iota
	KindInvalidArgument
	KindAuthentication
	KindCatalog
	KindNoData
)

// String returns the string representation.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindAuthentication:
		return "authentication"
	case KindCatalog:
		return "catalog"
	case KindNoData:
		return "no_data"
	default:
		return "unknown"
	}
}

// InvalidArgumentError reports bad caller input. It is never retried.
type InvalidArgumentError struct {
	Arg    string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Arg, e.Reason)
}

// Is matches ErrInvalidInput.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidInput
}

// AuthenticationError reports a failed client-credentials exchange.
// Status is zero when no HTTP response was received.
type AuthenticationError struct {
	Status  int
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("authentication failed: status %d: %s", e.Status, msg)
	}
	return "authentication failed: " + msg
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is matches ErrAuthInvalid.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthInvalid
}

// CatalogError reports a failed or malformed catalogue response.
// Status is zero for transport failures.
type CatalogError struct {
	Status  int
	Message string
	Err     error
}

func (e *CatalogError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("catalogue request failed: status %d: %s", e.Status, msg)
	}
	return "catalogue request failed: " + msg
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// Is matches ErrCatalogUnavailable, and ErrRateLimited for 429 responses.
func (e *CatalogError) Is(target error) bool {
	if target == ErrRateLimited {
		return e.Status == http.StatusTooManyRequests
	}
	return target == ErrCatalogUnavailable
}

// Retryable reports whether a single retry may succeed: server errors and
// transport failures. 4xx responses are final.
func (e *CatalogError) Retryable() bool {
	return e.Status == 0 || e.Status >= http.StatusInternalServerError
}

// KindOf classifies err for shell reporting.
func KindOf(err error) ErrorKind {
	var (
		invalid *InvalidArgumentError
		auth    *AuthenticationError
		catalog *CatalogError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &invalid), errors.Is(err, ErrInvalidInput):
		return KindInvalidArgument
	case errors.As(err, &auth), errors.Is(err, ErrAuthRequired):
		return KindAuthentication
	case errors.As(err, &catalog):
		return KindCatalog
	default:
		return KindUnknown
	}
}

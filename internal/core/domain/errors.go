package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed call to the medication backend.
type ErrorKind string

const (
	KindUnauthorized ErrorKind = "unauthorized"
	KindNetwork      ErrorKind = "network_error"
	KindServer       ErrorKind = "server_error"
	KindValidation   ErrorKind = "validation_error"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNetwork      = errors.New("backend unreachable")
	ErrServer       = errors.New("backend error")
	ErrValidation   = errors.New("request rejected")

	ErrIncompleteCredentials = errors.New("credentials require both token and user")
	ErrNoPendingTwoFactor    = errors.New("no two-factor login pending")
	ErrNotAuthenticated      = errors.New("not authenticated")
)

var kindSentinels = map[ErrorKind]error{
	KindUnauthorized: ErrUnauthorized,
	KindNetwork:      ErrNetwork,
	KindServer:       ErrServer,
	KindValidation:   ErrValidation,
}

// APIError is a classified failure of an HTTP call to the backend.
type APIError struct {
	Kind   ErrorKind
	Status int
	// Detail is the server-supplied "detail" message, if any.
	Detail string
	Err    error
}

func (e *APIError) Error() string {
	msg := string(e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrUnauthorized) and friends match on Kind.
func (e *APIError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf returns the ErrorKind carried by err, defaulting to KindNetwork for
// errors that never reached the server.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindNetwork
}

// DetailOf returns the server-supplied detail message carried by err, if any.
func DetailOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

// This code is in Public Domain. Take all the code you want, I'll just write more.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when the backend answers 404
var ErrNotFound = errors.New("api: not found")

// ValidationError is returned when the backend answers 422.
// Message is the first reported field error, if any.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return "api: validation failed"
	}
	return "api: validation failed: " + e.Message
}

// StatusError is returned for any other non-success status
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

// ConnectivityError means the request never reached the backend or
// the response couldn't be understood
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return "api: connectivity: " + e.Err.Error()
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// Outcome labels
const (
	OutcomeOK           = "ok"
	OutcomeNotFound     = "not_found"
	OutcomeValidation   = "validation"
	OutcomeServerError  = "server_error"
	OutcomeConnectivity = "connectivity"
)

// Outcome classifies err into one of the outcome labels
func Outcome(err error) string {
	var verr *ValidationError
	var serr *StatusError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.As(err, &verr):
		return OutcomeValidation
	case errors.As(err, &serr):
		return OutcomeServerError
	default:
		return OutcomeConnectivity
	}
}

// Message returns the server supplied message carried by err, or fallback
func Message(err error, fallback string) string {
	var verr *ValidationError
	var serr *StatusError
	msg := ""
	if errors.As(err, &verr) {
		msg = verr.Message
	} else if errors.As(err, &serr) {
		msg = serr.Message
	}
	if msg == "" {
		return fallback
	}
	return msg
}

// fieldError is one entry of a FastAPI style validation error list
type fieldError struct {
	Msg string `json:"msg"`
}

// errorBody is {"detail": "..."} or {"detail": [{"msg": "..."}, ...]}
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// detailMessage extracts a human readable message from an error body.
// Returns "" if there's nothing usable.
func detailMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return s
	}
	var fields []fieldError
	if err := json.Unmarshal(eb.Detail, &fields); err == nil && len(fields) > 0 {
		return fields[0].Msg
	}
	return ""
}

package mex

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse is matched by every *MalformedResponseError.
	ErrMalformedResponse = errors.New("mex: malformed response")
	// ErrUnexpectedShape is matched by every *UnexpectedShapeError.
	ErrUnexpectedShape = errors.New("mex: unexpected response structure")
	// ErrRemoteProtocol is matched by every *RemoteProtocolError.
	ErrRemoteProtocol = errors.New("mex: server error")
)

// RemoteProtocolError is returned when the server reports structured errors
// in the response envelope. Callers can use errors.As to get at the code:
//
//	var remoteErr *mex.RemoteProtocolError
//	if errors.As(err, &remoteErr) && remoteErr.Code == 404 { ... }
type RemoteProtocolError struct {
	// Message is every error message joined with ", ".
	Message string
	// Code is the first error's extensions.error_code, or 400.
	Code int
	// Detail is the first error as sent by the server.
	Detail ServerError
	// Errors holds all reported errors in order.
	Errors []ServerError
}

func (e *RemoteProtocolError) Error() string {
	return fmt.Sprintf("mex: server error: %s (code: %d)", e.Message, e.Code)
}

func (e *RemoteProtocolError) Is(target error) bool {
	return target == ErrRemoteProtocol
}

// UnexpectedShapeError is returned when the server reported no errors but
// the requested result path is absent from data.
type UnexpectedShapeError struct {
	Path ResultPath
	// Action is a human readable rendering of Path used in messages only.
	Action string
}

func (e *UnexpectedShapeError) Error() string {
	if e.Action == "" {
		return ErrUnexpectedShape.Error()
	}
	return fmt.Sprintf("mex: failed to %s, unexpected response structure", e.Action)
}

func (e *UnexpectedShapeError) Is(target error) bool {
	return target == ErrUnexpectedShape
}

// MalformedResponseError is returned when the response carries no result
// node, or its content is not a valid JSON envelope.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mex: malformed response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("mex: malformed response: %s", e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

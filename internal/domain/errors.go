package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrParse        = errors.New("response not in a recognized shape")
)

// RequestError pairs an error kind with a message safe to return to the
// caller. Internal detail stays in logs.
type RequestError struct {
	Kind    error
	Message string
}

func (e *RequestError) Error() string { return e.Message }
func (e *RequestError) Unwrap() error { return e.Kind }

func NotFound(msg string) error   { return &RequestError{Kind: ErrNotFound, Message: msg} }
func Forbidden(msg string) error  { return &RequestError{Kind: ErrForbidden, Message: msg} }
func Invalid(msg string) error    { return &RequestError{Kind: ErrValidation, Message: msg} }

// UpstreamError marks a failed round trip to the chat-completion endpoint.
type UpstreamError struct {
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream request failed: %v", e.Err)
	}
	return fmt.Sprintf("upstream request failed: status %d", e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

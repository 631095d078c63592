package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSubmissionInFlight  = errors.New("booking submission already in progress")
	ErrPaymentNotConfirmed = errors.New("payment is not confirmed")
	ErrSessionNotFound     = errors.New("booking session not found")
	ErrPaymentInProgress   = errors.New("a payment is already in progress")
	ErrPaymentInsufficient = errors.New("payment does not cover the booking")
	ErrShuttingDown        = errors.New("service is shutting down")
)

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	switch {
	case e.Msg != "" && e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Field != "":
		return fmt.Sprintf("%s is required", e.Field)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// NetworkError is a failed outbound request: transport error or an
// unexpected response from a collaborator.
type NetworkError struct {
	Op  string
	Err error
}

func (e NetworkError) Error() string {
	if e.Err == nil {
		return e.Op + ": network error"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e NetworkError) Unwrap() error { return e.Err }

// GatewayError is a payment initiation the gateway refused.
type GatewayError struct {
	Reason     string
	StatusCode int
}

func (e GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("payment gateway rejected request (status %d): %s", e.StatusCode, e.Reason)
	}
	return "payment gateway rejected request: " + e.Reason
}

type ConfirmationTimeout struct {
	AttemptID string
}

func (e ConfirmationTimeout) Error() string {
	return "payment timed out"
}

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsNetwork(err error) bool {
	var target NetworkError
	return errors.As(err, &target)
}

func IsGateway(err error) bool {
	var target GatewayError
	return errors.As(err, &target)
}

func IsConfirmationTimeout(err error) bool {
	var target ConfirmationTimeout
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

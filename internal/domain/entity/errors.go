package entity

import (
	"errors"
	"fmt"
)

// ErrorKind classifies orchestration failures.
type ErrorKind string

const (
	KindNotConnected          ErrorKind = "NotConnected"
	KindNotRegistered         ErrorKind = "NotRegistered"
	KindNetworkUnresolved     ErrorKind = "NetworkUnresolved"
	KindInsufficientAllowance ErrorKind = "InsufficientAllowance"
	KindInsufficientBalance   ErrorKind = "InsufficientBalance"
	KindActivationNotReady    ErrorKind = "ActivationNotReady"
	KindSideCapacityExceeded  ErrorKind = "SideCapacityExceeded"
	KindDuplicateMember       ErrorKind = "DuplicateMember"
	KindInvalidAddress        ErrorKind = "InvalidAddress"
	KindRemoteCallFailed      ErrorKind = "RemoteCallFailed"
	KindPartialSyncDegraded   ErrorKind = "PartialSyncDegraded"
	KindOperationInFlight     ErrorKind = "OperationInFlight"
)

// OrchestrationError is a classified failure. For KindRemoteCallFailed the
// message is the remote endpoint's message, unmodified.
type OrchestrationError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *OrchestrationError) Error() string {
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *OrchestrationError) Unwrap() error { return e.Cause }

// Is matches any OrchestrationError of the same kind, so the Err* values
// below work as sentinels with errors.Is.
func (e *OrchestrationError) Is(target error) bool {
	t, ok := target.(*OrchestrationError)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotConnected          = &OrchestrationError{Kind: KindNotConnected}
	ErrNotRegistered         = &OrchestrationError{Kind: KindNotRegistered}
	ErrNetworkUnresolved     = &OrchestrationError{Kind: KindNetworkUnresolved}
	ErrInsufficientAllowance = &OrchestrationError{Kind: KindInsufficientAllowance}
	ErrInsufficientBalance   = &OrchestrationError{Kind: KindInsufficientBalance}
	ErrActivationNotReady    = &OrchestrationError{Kind: KindActivationNotReady}
	ErrSideCapacityExceeded  = &OrchestrationError{Kind: KindSideCapacityExceeded}
	ErrDuplicateMember       = &OrchestrationError{Kind: KindDuplicateMember}
	ErrInvalidAddress        = &OrchestrationError{Kind: KindInvalidAddress}
	ErrRemoteCallFailed      = &OrchestrationError{Kind: KindRemoteCallFailed}
	ErrPartialSyncDegraded   = &OrchestrationError{Kind: KindPartialSyncDegraded}
	ErrOperationInFlight     = &OrchestrationError{Kind: KindOperationInFlight}
)

// NewError builds a classified error with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) error {
	return &OrchestrationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// RemoteError classifies err as a remote-call failure keeping its message as is.
// Errors that are already classified pass through untouched.
func RemoteError(err error) error {
	if err == nil {
		return nil
	}
	var oe *OrchestrationError
	if errors.As(err, &oe) {
		return err
	}
	return &OrchestrationError{Kind: KindRemoteCallFailed, Cause: err}
}

// KindOf returns the kind of a classified error, or KindRemoteCallFailed for
// anything else that is non-nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var oe *OrchestrationError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindRemoteCallFailed
}

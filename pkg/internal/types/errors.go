package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to the user.
type ErrorKind string

const (
	KindConnectivity   ErrorKind = "ConnectivityError"
	KindEmptyBuffer    ErrorKind = "EmptyBufferError"
	KindPersistence    ErrorKind = "PersistenceError"
	KindTransport      ErrorKind = "TransportError"
	KindValidation     ErrorKind = "ValidationError"
	KindClassification ErrorKind = "ClassificationError"
	// KindInternal covers recovered panics outside the classifier.
	KindInternal       ErrorKind = "InternalError"
)

// Sentinels matched through errors.Is against a *ProtocolError of the same kind.
var (
	ErrConnectivity   = errors.New("device not connected")
	ErrEmptyBuffer    = errors.New("acquisition buffer empty")
	ErrPersistence    = errors.New("persistence failed")
	ErrTransport      = errors.New("transport failure")
	ErrValidation     = errors.New("validation failed")
	ErrClassification = errors.New("classification failed")
	ErrInternal       = errors.New("internal error")
)

var kindSentinels = map[ErrorKind]error{
	KindConnectivity:   ErrConnectivity,
	KindEmptyBuffer:    ErrEmptyBuffer,
	KindPersistence:    ErrPersistence,
	KindTransport:      ErrTransport,
	KindValidation:     ErrValidation,
	KindClassification: ErrClassification,
	KindInternal:       ErrInternal,
}

// ProtocolError carries the error kind and the failing operation.
type ProtocolError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError builds a *ProtocolError. A nil err is replaced by the kind's sentinel.
func NewError(kind ErrorKind, op string, err error) *ProtocolError {
	if err == nil {
		err = kindSentinels[kind]
	}
	return &ProtocolError{Kind: kind, Op: op, Err: err}
}

func (e *ProtocolError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *ProtocolError) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the kind of the first *ProtocolError in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

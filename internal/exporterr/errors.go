// Package exporterr defines the failure taxonomy of an export run.
package exporterr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why an export stopped.
type Kind string

const (
	KindDecode        Kind = "decode"
	KindEncode        Kind = "encode"
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindTimeout       Kind = "timeout"
	KindCancelled     Kind = "cancelled"
)

var (
	ErrDecode        = errors.New("decode error")
	ErrEncode        = errors.New("encode error")
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrTimeout       = errors.New("timeout")
	ErrCancelled     = errors.New("export cancelled")
)

// Error carries the phase at failure alongside the classified cause.
type Error struct {
	Kind    Kind
	Phase   string
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 4)
	parts = append(parts, string(e.Kind))
	if e.Phase != "" {
		parts = append(parts, e.Phase)
	}
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	detail := strings.Join(parts, ": ")
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", detail, e.Err)
	}
	return detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind, so callers can write
// errors.Is(err, exporterr.ErrValidation) without unwrapping manually.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrEncode:
		return e.Kind == KindEncode
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrCancelled:
		return e.Kind == KindCancelled
	}
	return false
}

// New builds a classified error.
func New(kind Kind, phase, op, message string, err error) *Error {
	return &Error{Kind: kind, Phase: phase, Op: op, Message: message, Err: err}
}

func Decode(phase, op string, err error) *Error {
	return New(KindDecode, phase, op, "", err)
}

// Encode classifies an encoder that failed after it was configured.
func Encode(phase, op string, err error) *Error {
	return New(KindEncode, phase, op, "", err)
}

func Configuration(phase, op, message string, err error) *Error {
	return New(KindConfiguration, phase, op, message, err)
}

func Validation(phase, op, message string, err error) *Error {
	return New(KindValidation, phase, op, message, err)
}

func Timeout(phase, op string, err error) *Error {
	return New(KindTimeout, phase, op, "", err)
}

// Cancelled wraps the context cause so errors.Is(err, context.Canceled) keeps working.
func Cancelled(phase string, cause error) *Error {
	if cause == nil {
		cause = context.Canceled
	}
	return New(KindCancelled, phase, "", "", cause)
}

// KindOf reports the kind of the first *Error in the chain.
// Context errors that were never classified count as cancellation.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled, true
	}
	return "", false
}

// IsCancelled reports whether err represents a cancelled run rather than a failure.
func IsCancelled(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindCancelled
}

// PhaseOf returns the phase recorded on the error, if any.
func PhaseOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Phase
	}
	return ""
}

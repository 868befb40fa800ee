package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain failure.
type ErrorKind int

// Error kinds.
const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindInsufficientStock
	KindState
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindInsufficientStock:
		return "insufficient stock"
	case KindState:
		return "invalid state"
	default:
		return "internal"
	}
}

// Error is a typed domain failure with a human-readable message.
type Error struct {
	Kind    ErrorKind
	Message string
	// Available is the current stock for KindInsufficientStock.
	Available int
}

func (e *Error) Error() string { return e.Message }

// Validationf returns a KindValidation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf returns a KindNotFound error.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflictf returns a KindConflict error.
func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Statef returns a KindState error.
func Statef(format string, args ...any) error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock returns the error for a withdrawal exceeding the balance.
func InsufficientStock(bloodGroup string, requested, available int) error {
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("Insufficient stock for %s: requested %d unit(s). Only %d unit(s) available", bloodGroup, requested, available),
		Available: available,
	}
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

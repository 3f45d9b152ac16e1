// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Kind classifies errors crossing the repository boundary. Handlers map
// kinds to HTTP status codes in one place.
type Kind string

const (
	KindNotFound      Kind = "NotFound"
	KindDuplicate     Kind = "Duplicate"
	KindPersistence   Kind = "Persistence"
	KindSecurity      Kind = "Security"
	KindEvaluation    Kind = "Evaluation"
	KindQuotaExceeded Kind = "QuotaExceeded"
	KindCustom        Kind = "Custom"
)

// Error carries a Kind alongside the message and optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// E creates a kinded error with a formatted message.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapErr attaches a kind and message to an underlying error.
func WrapErr(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from an error chain, defaulting to Custom.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindCustom
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// translate maps a raw gorm error into a kinded error.
func translate(err error, format string, args ...any) *Error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return WrapErr(KindNotFound, err, format, args...)
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "UNIQUE constraint"):
		return WrapErr(KindDuplicate, err, format, args...)
	default:
		return WrapErr(KindPersistence, err, format, args...)
	}
}

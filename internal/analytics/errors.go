// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package analytics

import (
	"errors"
	"fmt"
	"net/http"
)

// NotImplementedCode is the machine-readable code for provider capability gaps.
const NotImplementedCode = "not_implemented"

// NotImplementedError signals that a provider intentionally does not support a method.
type NotImplementedError struct {
	Code    string
	Status  int
	Message string
}

func (e *NotImplementedError) Error() string {
	return e.Message
}

// NewNotImplementedError builds the 501 error for a provider method.
func NewNotImplementedError(format string, args ...any) *NotImplementedError {
	return &NotImplementedError{
		Code:    NotImplementedCode,
		Status:  http.StatusNotImplemented,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsNotImplemented unwraps err into a *NotImplementedError if it carries one.
func AsNotImplemented(err error) (*NotImplementedError, bool) {
	var nie *NotImplementedError
	if errors.As(err, &nie) {
		return nie, true
	}
	return nil, false
}

// Availability is the result of a sub-query against an optional schema object.
// Unavailable means the table or column does not exist, which is distinct from
// an available result that happens to be empty.
type Availability[T any] struct {
	Value     T
	Available bool
}

// Available wraps a successfully fetched value.
func Available[T any](v T) Availability[T] {
	return Availability[T]{Value: v, Available: true}
}

// Unavailable marks a missing schema object.
func Unavailable[T any]() Availability[T] {
	return Availability[T]{}
}

// Get returns the value and whether the source existed.
func (a Availability[T]) Get() (T, bool) {
	return a.Value, a.Available
}

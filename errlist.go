// errlist.go: Error-list container for batch operations
//
// Bulk registration, binding, and table loading touch many values in one
// pass; aborting on the first bad value would hide the rest. ErrorList
// collects every failure so callers can report them together.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package proteus

import (
	"strings"

	"github.com/agilira/go-errors"
)

// ErrorList accumulates errors across a multi-value operation.
//
// The zero value is ready to use. ErrorList is not safe for concurrent
// mutation; collect per goroutine and merge.
type ErrorList struct {
	errs []error
}

// Add appends err to the list. A nil err is ignored, so call sites can
// add unconditionally.
func (el *ErrorList) Add(err error) {
	if err != nil {
		el.errs = append(el.errs, err)
	}
}

// AddValue appends err annotated with the offending key and value.
func (el *ErrorList) AddValue(key string, value any, err error) {
	if err == nil {
		return
	}
	el.errs = append(el.errs, errors.Wrap(err, ErrCodeBindFailed, "failed for key '"+key+"'").
		WithContext("key", key).
		WithContext("value", value))
}

// HasErrors reports whether any error was collected.
func (el *ErrorList) HasErrors() bool { return len(el.errs) > 0 }

// Len returns the number of collected errors.
func (el *ErrorList) Len() int { return len(el.errs) }

// First returns the first collected error, or nil.
func (el *ErrorList) First() error {
	if len(el.errs) == 0 {
		return nil
	}
	return el.errs[0]
}

// Errors returns the collected errors in insertion order.
func (el *ErrorList) Errors() []error { return el.errs }

// Err returns the list as a single error, or nil when empty. With exactly
// one collected error, that error is returned unwrapped.
func (el *ErrorList) Err() error {
	switch len(el.errs) {
	case 0:
		return nil
	case 1:
		return el.errs[0]
	default:
		return el
	}
}

// Error implements the error interface with a joined summary.
func (el *ErrorList) Error() string {
	if len(el.errs) == 0 {
		return "no errors"
	}
	parts := make([]string, len(el.errs))
	for i, err := range el.errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (el *ErrorList) Unwrap() []error { return el.errs }

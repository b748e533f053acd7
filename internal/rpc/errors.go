package rpc

import (
	"errors"
	"fmt"
)

// ErrRemote is wrapped by every failure the backend reported itself, as
// opposed to transport or decoding failures.
var ErrRemote = errors.New("backend rejected call")

// DecodeError reports a required field missing from a backend response.
// Missing data is never replaced by a default.
type DecodeError struct {
	Op    string
	Field string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s response: missing required field %q", e.Op, e.Field)
}

// fields collects the first missing required field while a DTO is converted.
type fields struct {
	op  string
	err error
}

func (f *fields) missing(path string) {
	if f.err == nil {
		f.err = &DecodeError{Op: f.op, Field: path}
	}
}

func (f *fields) str(path string, v *string) string {
	if v == nil {
		f.missing(path)
		return ""
	}
	return *v
}

func (f *fields) num(path string, v *int) int {
	if v == nil {
		f.missing(path)
		return 0
	}
	return *v
}

func (f *fields) flag(path string, v *bool) bool {
	if v == nil {
		f.missing(path)
		return false
	}
	return *v
}

func optional[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func ptr[T any](v T) *T {
	return &v
}

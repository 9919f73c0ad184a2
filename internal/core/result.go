package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Result holds either a value read from the OS or the reason it could not
// be read. Reports are built from Results so that one failing source only
// marks its own field or section as unavailable.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok wraps a successfully read value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail records why a value is unavailable.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = ErrInternal("unavailable without reason")
	}
	return Result[T]{Err: err}
}

// From builds a Result from the usual (value, error) pair.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

// Available reports whether the value was read.
func (r Result[T]) Available() bool {
	return r.Err == nil
}

// Get returns the value and whether it is available.
func (r Result[T]) Get() (T, bool) {
	return r.Value, r.Err == nil
}

// Or returns the value, or fallback when unavailable.
func (r Result[T]) Or(fallback T) T {
	if r.Err != nil {
		return fallback
	}
	return r.Value
}

// Reason renders the unavailability marker shown in place of the value.
func (r Result[T]) Reason() string {
	if r.Err == nil {
		return ""
	}
	return UnavailableReason(r.Err)
}

// UnavailableReason renders err as an inline report marker.
func UnavailableReason(err error) string {
	switch GetCategory(err) {
	case ErrCatAccessDenied:
		return "access denied"
	case ErrCatUnsupported:
		return "unavailable: not supported on this platform"
	}
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return "unavailable: " + domErr.Message
	}
	return "unavailable: " + err.Error()
}

type unavailableField struct {
	Unavailable string `json:"unavailable" yaml:"unavailable"`
}

// MarshalJSON emits the value, or {"unavailable": reason}.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(unavailableField{Unavailable: r.Reason()})
	}
	return json.Marshal(r.Value)
}

// MarshalYAML mirrors MarshalJSON for yaml.v3.
func (r Result[T]) MarshalYAML() (interface{}, error) {
	if r.Err != nil {
		return unavailableField{Unavailable: r.Reason()}, nil
	}
	return r.Value, nil
}

// String renders the value with %v or the unavailability marker.
func (r Result[T]) String() string {
	if r.Err != nil {
		return r.Reason()
	}
	return fmt.Sprintf("%v", r.Value)
}

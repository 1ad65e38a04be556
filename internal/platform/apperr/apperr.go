// Package apperr defines the error taxonomy shared by every handler and
// service, and renders it as the JSON error body returned to clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies an error by what the caller can do about it.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindConflict
	KindRateLimited
	KindStorage
	KindExternalService
	KindConfiguration
)

// Code is the machine-readable identifier sent to clients. The set is closed.
type Code string

const (
	CodeInternal              Code = "internal_error"
	CodeValidation            Code = "validation_failed"
	CodeUnauthorized          Code = "unauthorized"
	CodeNotFound              Code = "not_found"
	CodeConflict              Code = "conflict"
	CodeRateLimited           Code = "rate_limited"
	CodeStorage               Code = "storage_error"
	CodeExternalService       Code = "external_service_error"
	CodeCalendarNotConfigured Code = "calendar_not_configured"
)

var kindCodes = map[Kind]Code{
	KindInternal:        CodeInternal,
	KindValidation:      CodeValidation,
	KindUnauthorized:    CodeUnauthorized,
	KindNotFound:        CodeNotFound,
	KindConflict:        CodeConflict,
	KindRateLimited:     CodeRateLimited,
	KindStorage:         CodeStorage,
	KindExternalService: CodeExternalService,
	KindConfiguration:   CodeCalendarNotConfigured,
}

var kindStatus = map[Kind]int{
	KindInternal:        http.StatusInternalServerError,
	KindValidation:      http.StatusUnprocessableEntity,
	KindUnauthorized:    http.StatusUnauthorized,
	KindNotFound:        http.StatusNotFound,
	KindConflict:        http.StatusConflict,
	KindRateLimited:     http.StatusTooManyRequests,
	KindStorage:         http.StatusInternalServerError,
	KindExternalService: http.StatusBadGateway,
	KindConfiguration:   http.StatusConflict,
}

func (k Kind) Code() Code {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return CodeInternal
}

func (k Kind) Status() int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Generic reports whether the kind hides its cause from the caller. Generic
// failures get the "something went wrong" treatment and count toward the
// escalation of consecutive failures.
func (k Kind) Generic() bool {
	switch k {
	case KindInternal, KindStorage, KindExternalService:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k.Code()) }

// Error is the application error carried from services to the HTTP layer.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind.Code()))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for f := range e.Fields {
			names = append(names, f)
		}
		sort.Strings(names)
		fmt.Fprintf(&b, " [%s]", strings.Join(names, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports field-scoped input problems. fields must not be empty.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "some fields are invalid", Fields: fields}
}

// Field is a shorthand for a validation error on a single field.
func Field(name, message string) *Error {
	return Validation(map[string]string{name: message})
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func RateLimited() *Error {
	return &Error{Kind: KindRateLimited, Message: "too many requests, try again later"}
}

// Storage wraps a relational store failure. op names the attempted operation
// for the logs; the client only sees the generic message.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: op, Err: err}
}

// External wraps a calendar provider failure.
func External(op string, err error) *Error {
	return &Error{Kind: KindExternalService, Message: op, Err: err}
}

// Configuration signals that an onboarding step is missing.
func Configuration(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// FieldsOf returns the field messages carried by a validation error.
func FieldsOf(err error) map[string]string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}

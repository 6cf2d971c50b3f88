// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

// Package api exposes the authentication pipeline over HTTP: the fixed
// error taxonomy, the response envelope, the request context builder, and
// the user endpoints.
package api

import "net/http"

// Kind classifies a request failure. Every kind maps to a fixed numeric
// error code and HTTP status; the mapping is part of the wire contract and
// never changes per endpoint.
type Kind int

// The fixed failure taxonomy. All terminal for the current request; nothing
// in the pipeline retries.
const (
	KindNone        Kind = iota // success
	KindUnexpected              // internal fault
	KindUnknown                 // unclassified caller fault
	KindAPI                     // bad, unknown or inactive game credentials
	KindSignature               // HMAC mismatch
	KindPermission              // authenticated but not allowed
	KindIncomplete              // missing required fields
	KindArgument                // malformed or incorrect arguments
	KindToken                   // missing or invalid bearer token
	KindMethod                  // unsupported method or route
	KindValidation              // argument validation failure
	KindUnavailable             // backing store unreachable
)

// kindEntry fixes the wire code and HTTP status for a kind.
type kindEntry struct {
	name string
	code int
	http int
}

var kindTable = map[Kind]kindEntry{
	KindNone:        {"none", 0, http.StatusOK},
	KindUnexpected:  {"unexpected", 1, http.StatusInternalServerError},
	KindUnknown:     {"unknown", 2, http.StatusMethodNotAllowed},
	KindAPI:         {"api", 3, http.StatusForbidden},
	KindSignature:   {"signature", 4, http.StatusUnauthorized},
	KindPermission:  {"permission", 5, http.StatusForbidden},
	KindIncomplete:  {"incomplete", 6, http.StatusBadRequest},
	KindArgument:    {"argument", 7, http.StatusBadRequest},
	KindToken:       {"token", 8, http.StatusUnauthorized},
	KindMethod:      {"method", 9, http.StatusMethodNotAllowed},
	KindValidation:  {"validation", 10, http.StatusBadRequest},
	KindUnavailable: {"unavailable", 11, http.StatusServiceUnavailable},
}

// String returns the kind's taxonomy name.
func (k Kind) String() string {
	if e, ok := kindTable[k]; ok {
		return e.name
	}
	return "unexpected"
}

// Code returns the numeric error code sent in the response envelope.
func (k Kind) Code() int {
	if e, ok := kindTable[k]; ok {
		return e.code
	}
	return kindTable[KindUnexpected].code
}

// HTTPStatus returns the HTTP status for the kind.
func (k Kind) HTTPStatus() int {
	if e, ok := kindTable[k]; ok {
		return e.http
	}
	return kindTable[KindUnexpected].http
}

// Error is a structured request rejection: a taxonomy kind plus a client
// safe message. Internal causes are carried for logging but never exposed.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

// NewError creates an Error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates an Error carrying an internal cause for logging.
func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the internal cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.cause
}

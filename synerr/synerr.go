// Package synerr defines the stable error taxonomy returned by the
// store, schema, acl, users, data, and root packages.
package synerr

import (
	"errors"
	"fmt"
)

// Kind is a stable wire name for a class of failure. Callers should
// compare with errors.Is against the sentinel Err* values, or inspect
// Kind via errors.As on *Error.
type Kind string

const (
	UnknownNamespace    Kind = "UnknownNamespace"
	UnknownCollection   Kind = "UnknownCollection"
	SchemaConflict      Kind = "SchemaConflict"
	InvalidSchema       Kind = "InvalidSchema"
	ValidationError     Kind = "ValidationError"
	DanglingReference   Kind = "DanglingReference"
	UniqueViolation     Kind = "UniqueViolation"
	ParentCycle         Kind = "ParentCycle"
	ImmutableField      Kind = "ImmutableField"
	NotFound            Kind = "NotFound"
	PermissionDenied    Kind = "PermissionDenied"
	PolicyDepthExceeded Kind = "PolicyDepthExceeded"
	StorageUnavailable  Kind = "StorageUnavailable"
	Internal            Kind = "Internal"
)

// Sentinels usable with errors.Is without unwrapping into *Error.
var (
	ErrUnknownNamespace    = errors.New("unknown namespace")
	ErrUnknownCollection   = errors.New("unknown collection")
	ErrSchemaConflict      = errors.New("schema conflict")
	ErrInvalidSchema       = errors.New("invalid schema")
	ErrValidation          = errors.New("validation error")
	ErrDanglingReference   = errors.New("dangling reference")
	ErrUniqueViolation     = errors.New("unique violation")
	ErrParentCycle         = errors.New("parent cycle")
	ErrImmutableField      = errors.New("immutable field")
	ErrNotFound            = errors.New("not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrPolicyDepthExceeded = errors.New("policy depth exceeded")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrInternal            = errors.New("internal invariant broken")
)

var sentinels = map[Kind]error{
	UnknownNamespace:    ErrUnknownNamespace,
	UnknownCollection:   ErrUnknownCollection,
	SchemaConflict:      ErrSchemaConflict,
	InvalidSchema:       ErrInvalidSchema,
	ValidationError:     ErrValidation,
	DanglingReference:   ErrDanglingReference,
	UniqueViolation:     ErrUniqueViolation,
	ParentCycle:         ErrParentCycle,
	ImmutableField:      ErrImmutableField,
	NotFound:            ErrNotFound,
	PermissionDenied:    ErrPermissionDenied,
	PolicyDepthExceeded: ErrPolicyDepthExceeded,
	StorageUnavailable:  ErrStorageUnavailable,
	Internal:            ErrInternal,
}

// Error carries a Kind plus enough context (operation, JSON pointer,
// wrapped cause) for a caller to act on or log the failure.
type Error struct {
	Kind    Kind
	Op      string // e.g. "store.Insert", "schema.Register"
	Pointer string // JSON pointer for ValidationError; empty otherwise
	Reason  string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	s := string(e.Kind)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Pointer != "" {
		s += fmt.Sprintf(" at %s", e.Pointer)
	}
	if e.Reason != "" {
		s += ": " + e.Reason
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return sentinels[e.Kind]
}

// Is lets errors.Is(err, synerr.ErrNotFound) match an *Error of kind
// NotFound even when Err is nil.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// New builds an *Error of the given kind.
func New(op string, kind Kind, reason string) *Error {
	return &Error{Op: op, Kind: kind, Reason: reason}
}

// Wrap builds an *Error of the given kind around a cause.
func Wrap(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Validation builds a ValidationError carrying a JSON pointer.
func Validation(op, pointer, reason string) *Error {
	return &Error{Op: op, Kind: ValidationError, Pointer: pointer, Reason: reason}
}

// KindOf extracts the Kind of err, or Internal if err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

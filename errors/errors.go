// Package errors provides the error taxonomy for chainstate. It includes all of the stdlib's
// functions and types so callers do not need to import both packages.
//
// Errors fall into four groups:
//
//   - Schema errors (ErrDeclarationNotFound, ErrNotRegistered, ErrArityMismatch, ErrUnresolvedType,
//     ErrSchemaConflict): the client's static knowledge does not cover the data. Never retried.
//   - Shape errors (ErrFieldMissing, ErrTypeMismatch): the payload does not match the declaration.
//     Never retried, the node would return the same payload.
//   - Absence errors (ErrResourceNotFound, ErrEntryNotFound): expected conditions callers branch on.
//   - Transport errors (ErrNodeUnavailable): retryable at the caller's discretion.
package errors

import (
	stdctx "context"

	"github.com/gostdlib/base/context"
	"github.com/gostdlib/base/errors"
)

//go:generate go tool github.com/johnsiilver/stringer -type=Category -linecomment

// Category represents the category of the error.
type Category uint32

func (c Category) Category() string {
	return c.String()
}

const (
	// CatUnknown represents an unknown category. This should not be used.
	CatUnknown Category = Category(0) // Unknown
	// CatUser represents an error that is caused by bad user input, such as an unknown type string.
	CatUser Category = Category(1) // User
	// CatInternal represents an internal error, such as a gap in the static schema.
	CatInternal Category = Category(2) // Internal
	// CatRemote represents an error caused by the remote node or the data it returned.
	CatRemote Category = Category(3) // Remote
)

//go:generate go tool github.com/johnsiilver/stringer -type=Type -linecomment

// Type represents the type of the error.
type Type uint16

func (t Type) Type() string {
	return t.String()
}

const (
	// TypeUnknown represents an unknown type.
	TypeUnknown Type = Type(0) // Unknown
	// TypeBug represents a bug in the calling code. An example would be a switch statement that
	// doesn't cover all cases.
	TypeBug Type = Type(1) // Bug
	// TypeParameter represents an error with a parameter that didn't pass validation.
	TypeParameter Type = Type(2) // Parameter
	// TypeConn represents an error with a connection.
	TypeConn Type = Type(3) // Conn
	// TypeTimeout represents a timeout error or cancelation.
	TypeTimeout Type = Type(4) // TimeoutOrCancel
	// TypeFS represents an error with the file system.
	TypeFS Type = Type(5) // FS

	// TypeSchema represents a gap or conflict in the static declarations or decoders.
	TypeSchema Type = Type(1000) // Schema
	// TypeShape represents a raw payload that does not match its declaration.
	TypeShape Type = Type(1001) // Shape
	// TypeAbsence represents a resource or table entry that does not exist.
	TypeAbsence Type = Type(1002) // Absence
	// TypeTransport represents a node that could not be reached or answered with a server error.
	TypeTransport Type = Type(1003) // Transport
)

// Schema errors.
var (
	// ErrDeclarationNotFound indicates no struct declaration is registered for an identity.
	ErrDeclarationNotFound = New("declaration not found")
	// ErrNotRegistered indicates no decoder is registered for a canonical name.
	ErrNotRegistered = New("decoder not registered")
	// ErrArityMismatch indicates a type parameter index or argument count that does not line up.
	ErrArityMismatch = New("type argument arity mismatch")
	// ErrUnresolvedType indicates a type tag still holds a generic parameter reference.
	ErrUnresolvedType = New("unresolved type parameter")
	// ErrSchemaConflict indicates two incompatible registrations for the same name.
	ErrSchemaConflict = New("schema conflict")
)

// Shape errors.
var (
	// ErrFieldMissing indicates a raw object lacks a declared field.
	ErrFieldMissing = New("field missing")
	// ErrTypeMismatch indicates a raw value whose JSON shape does not match its type.
	ErrTypeMismatch = New("type mismatch")
)

// Absence errors.
var (
	// ErrResourceNotFound indicates the address holds no resource of the requested type.
	ErrResourceNotFound = New("resource not found")
	// ErrEntryNotFound indicates a table has no entry for the requested key.
	ErrEntryNotFound = New("table entry not found")
)

// Transport errors.
var (
	// ErrNodeUnavailable indicates the node could not answer. Callers may retry.
	ErrNodeUnavailable = New("node unavailable")
)

// IsSchema reports if err is a schema error.
func IsSchema(err error) bool {
	return Is(err, ErrDeclarationNotFound) || Is(err, ErrNotRegistered) || Is(err, ErrArityMismatch) ||
		Is(err, ErrUnresolvedType) || Is(err, ErrSchemaConflict)
}

// IsShape reports if err is a shape error.
func IsShape(err error) bool {
	return Is(err, ErrFieldMissing) || Is(err, ErrTypeMismatch)
}

// IsAbsence reports if err is an expected absence of a resource or table entry.
func IsAbsence(err error) bool {
	return Is(err, ErrResourceNotFound) || Is(err, ErrEntryNotFound)
}

// IsRetryable reports if err is a transport error the caller may retry.
func IsRetryable(err error) bool {
	return Is(err, ErrNodeUnavailable)
}

// Classify returns the Category and Type for err based on the sentinel it wraps.
func Classify(err error) (Category, Type) {
	switch {
	case err == nil:
		return CatUnknown, TypeUnknown
	case IsSchema(err):
		return CatInternal, TypeSchema
	case IsShape(err):
		return CatRemote, TypeShape
	case IsAbsence(err):
		return CatUser, TypeAbsence
	case IsRetryable(err):
		return CatRemote, TypeTransport
	case Is(err, stdctx.Canceled), Is(err, stdctx.DeadlineExceeded):
		return CatUser, TypeTimeout
	}
	return CatInternal, TypeUnknown
}

// LogAttrer is an interface that can be implemented by an error to return a list of attributes
// used in logging.
type LogAttrer = errors.LogAttrer

// Error is the error type for this package. Error implements github.com/gostdlib/base/errors.E .
type Error = errors.Error

// EOption is an optional argument for E().
type EOption = errors.EOption

// WithSuppressTraceErr will prevent the trace as being recorded with an error status.
// The trace will still receive the error message. This is useful for absence errors that callers
// are expected to branch on.
func WithSuppressTraceErr() EOption {
	return errors.WithSuppressTraceErr()
}

// WithCallNum is used if you need to set the runtime.CallNum() in order to get the correct filename and line.
// This can happen if you create a call wrapper around E(), because you would then need to look up one more stack frame
// for every wrapper. This defaults to 1 which sets to the frame of the caller of E().
func WithCallNum(i int) EOption {
	return errors.WithCallNum(i)
}

// WithStackTrace will add a stack trace to the error. This is not recommended for general use as
// it can cause performance issues when errors are created frequently.
func WithStackTrace() EOption {
	return errors.WithStackTrace()
}

// E creates a new Error with the given parameters.
func E(ctx context.Context, c errors.Category, t errors.Type, msg error, options ...errors.EOption) Error {
	// This makes sure we do the correct call number since we are a wrapper. Now, if they set the
	// call number, this will not override it.
	opts := make([]errors.EOption, 0, len(options)+1)
	opts = append(opts, WithCallNum(2))
	opts = append(opts, options...)

	return errors.E(ctx, c, t, msg, opts...)
}

// Wrap classifies err with Classify and wraps it with E. A nil err returns nil. Absence errors
// do not mark the trace as failed.
func Wrap(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var already Error
	if As(err, &already) {
		return err
	}
	c, t := Classify(err)
	opts := []errors.EOption{WithCallNum(2)}
	if t == TypeAbsence {
		opts = append(opts, errors.WithSuppressTraceErr())
	}
	return errors.E(ctx, c, t, err, opts...)
}

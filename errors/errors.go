// Package errors provides error handling for OpenCrust.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//   - Network portability for distributed systems
//   - Sentry integration
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Add hints for users
//	return errors.WithHint(err, "try increasing the timeout")
//
//	// Check errors
//	if errors.Is(err, sql.ErrNoRows) {
//	    // handle not found
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint          = crdb.WithHint
	WithHintf         = crdb.WithHintf
	WithDetail        = crdb.WithDetail
	WithDetailf       = crdb.WithDetailf
	WithSafeDetails   = crdb.WithSafeDetails
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapOnce = crdb.UnwrapOnce
	UnwrapAll = crdb.UnwrapAll
	GetAllHints = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
	FlattenHints = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Advanced features
var (
	Handled            = crdb.Handled
	HandledWithMessage = crdb.HandledWithMessage
	WithDomain         = crdb.WithDomain
	GetDomain          = crdb.GetDomain
	WithContextTags    = crdb.WithContextTags
	EncodeError        = crdb.EncodeError
	DecodeError        = crdb.DecodeError
	GetReportableStackTrace = crdb.GetReportableStackTrace
)

// GetStack is an alias for GetReportableStackTrace for convenience.
var GetStack = crdb.GetReportableStackTrace

// Assertions and panics
var (
	AssertionFailedf  = crdb.AssertionFailedf
	NewAssertionErrorWithWrappedErrf = crdb.NewAssertionErrorWithWrappedErrf
)

// Kind classifies an error into one of the taxonomy buckets used at
// request boundaries (WebSocket frame, HTTP handler, tool call) to decide
// how to translate it into a structured reply.
type Kind string

const (
	KindConfig        Kind = "config"
	KindChannel       Kind = "channel"
	KindAgent         Kind = "agent"
	KindDatabase      Kind = "database"
	KindPlugin        Kind = "plugin"
	KindSecurity      Kind = "security"
	KindMedia         Kind = "media"
	KindGateway       Kind = "gateway"
	KindSkill         Kind = "skill"
	KindMCP           Kind = "mcp"
	KindIO            Kind = "io"
	KindSerialization Kind = "serialization"
	KindNotFound      Kind = "not_found"
	KindUnauthorized  Kind = "unauthorized"
	KindOther         Kind = "other"
)

// WithKind tags err with a taxonomy Kind, stored as a cockroachdb/errors
// domain so it survives wrapping and can be recovered with GetKind.
func WithKind(err error, kind Kind) error {
	if err == nil {
		return nil
	}
	return crdb.WithDomain(err, crdb.Domain(kind))
}

// GetKind recovers the Kind attached by WithKind, or KindOther if none
// was ever attached.
func GetKind(err error) Kind {
	domain := crdb.GetDomain(err)
	if domain == crdb.NoDomain || domain == "" {
		return KindOther
	}
	return Kind(domain)
}

// NewKind creates an error already tagged with a Kind — the common case at a
// boundary where the error both originates and needs classifying.
func NewKind(kind Kind, msg string) error {
	return WithKind(crdb.New(msg), kind)
}

// WrapKind wraps err with a message and tags the result with a Kind.
func WrapKind(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return WithKind(crdb.Wrap(err, msg), kind)
}

// Common sentinel errors can be defined like:
//   var ErrNotFound = errors.New("not found")
//   var ErrClosed = errors.New("closed")

// Package jserr defines the typed error taxonomy every agent-facing
// operation in this module resolves or rejects with. Errors here are plain
// Go values wrapped with fmt.Errorf's %w, not exceptions: the engine/transfer
// boundary never panics except for the fatal, binding-mismatch case (see
// Fatal).
package jserr

import (
	"errors"
	"fmt"
)

// Kind identifies which branch of the error taxonomy a Error belongs to.
type Kind string

const (
	// KindCompile means source failed to parse or compile.
	KindCompile Kind = "compile_error"
	// KindLink means a module link callback returned nothing or raised.
	KindLink Kind = "link_error"
	// KindRuntime means JS threw during script or module execution.
	KindRuntime Kind = "runtime_error"
	// KindType means a transfer could not map a value to the requested type.
	KindType Kind = "type_error"
	// KindRange means a numeric or string coercion would lose information.
	KindRange Kind = "range_error"
	// KindLogic means host misuse; callers should treat this as a programmer error.
	KindLogic Kind = "logic_error"
)

// pendingEngineErrorKind is never surfaced to the host: it signals, inside
// the error-plumbing internals only, that the engine already has a pending
// exception that must be drained via a catch scope before anything else.
const pendingEngineErrorKind Kind = "pending_engine_error"

// Error is the typed error value every taxonomy kind is projected into.
type Error struct {
	Kind    Kind
	Message string
	// Stack is the rendered call stack, populated for KindRuntime errors
	// raised from JS execution.
	Stack string
	cause error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, so errors.Is/errors.As traverse
// through to a host-supplied or engine-native cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// New constructs a taxonomy error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs a taxonomy error carrying cause as its Unwrap target.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Compile builds a KindCompile error from an engine diagnostic.
func Compile(message string, cause error) *Error {
	return Wrap(KindCompile, message, cause)
}

// Link builds a KindLink error. hostErr is the error the host-supplied link
// callback raised; per spec.md §9's resolved Open Question, the evaluation
// result rejects with this error as Unwrap(), and any partial linkage state
// held by the caller must be discarded rather than cached.
func Link(specifier string, hostErr error) *Error {
	return Wrap(KindLink, fmt.Sprintf("link %q", specifier), hostErr)
}

// Runtime builds a KindRuntime error with a rendered stack.
func Runtime(message, stack string, cause error) *Error {
	return &Error{Kind: KindRuntime, Message: message, Stack: stack, cause: cause}
}

// Type builds a KindType error, raised by a strict or throwing acceptor that
// has no overload for the visited tag.
func Type(message string) *Error {
	return New(KindType, message)
}

// Range builds a KindRange error, raised when a numeric or string coercion
// would lose information on round-trip.
func Range(message string) *Error {
	return New(KindRange, message)
}

// Logic builds a KindLogic error for host misuse (e.g. a remote handle
// dereferenced from the wrong agent).
func Logic(message string) *Error {
	return New(KindLogic, message)
}

// pendingEngineError signals the engine already has an exception on its
// stack; callers inside this package catch and re-project it, they never
// let it escape as-is.
func pendingEngineError(message string) *Error {
	return New(pendingEngineErrorKind, message)
}

// IsPending reports whether err is the internal pending-engine-error signal.
// Exported only for the system/module package's catch-scope implementation.
func IsPending(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == pendingEngineErrorKind
	}
	return false
}

// NewPending is the system/module package's constructor for the internal
// pending-exception signal; it must never reach a host caller un-projected.
func NewPending(message string) *Error {
	return pendingEngineError(message)
}

// Fatal reports an unrecognized status code from a low-level engine binding.
// The foreground runner does not recover panics, so a Fatal panic inside a
// task ends the process. RecoverTask is a helper a caller can apply in its
// own deferred recover to convert such a panic into a KindLogic error
// instead.
type Fatal struct {
	Message string
}

func (f *Fatal) Error() string {
	return "fatal: " + f.Message
}

// RecoverTask recovers a panic raised inside a foreground task body and
// converts it to a KindLogic error, logging is left to the caller. Returns
// nil if no panic occurred.
func RecoverTask(recovered any) error {
	if recovered == nil {
		return nil
	}
	if f, ok := recovered.(*Fatal); ok {
		return Wrap(KindLogic, "unrecoverable binding mismatch", f)
	}
	if err, ok := recovered.(error); ok {
		return Wrap(KindLogic, "task panicked", err)
	}
	return New(KindLogic, fmt.Sprintf("task panicked: %v", recovered))
}

// As is a thin convenience wrapper over errors.As for *Error targets.
func As(err error, kind Kind) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == kind {
		return e, true
	}
	return nil, false
}

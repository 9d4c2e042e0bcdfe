// Package errs provides centralized error definitions for the Stagehand
// codebase. It defines the error taxonomy used by target resolution and
// teardown: missing external dependencies, ambiguous or unknown targets,
// and per-resource teardown failures.
//
// Resolution-phase errors (DependencyMissingError, AmbiguousTargetError,
// NotFoundError) are fatal and must be raised before any side effect.
// Execution-phase failures are recorded per resource and never escalate;
// see the teardown package's Result accumulator.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Sentinel errors for classification with errors.Is.
var (
	// ErrDependencyMissing indicates a required external tool is absent.
	ErrDependencyMissing = New("required dependency missing")
	// ErrAmbiguousTarget indicates a name resolved to more than one candidate.
	ErrAmbiguousTarget = New("ambiguous target")
	// ErrNotFound indicates a named session or project does not exist.
	ErrNotFound = New("not found")
	// ErrDeclined indicates the user declined a confirmation prompt.
	// It is not a failure: commands translate it to a zero exit status.
	ErrDeclined = New("declined by user")
)

// DependencyMissingError reports external tools that must be installed
// before a command can run. It aborts the command before any side effect.
type DependencyMissingError struct {
	Missing []string
}

// NewDependencyMissingError creates a DependencyMissingError for the
// given missing tool names.
func NewDependencyMissingError(missing ...string) *DependencyMissingError {
	return &DependencyMissingError{Missing: missing}
}

// Error returns the formatted error message.
func (e *DependencyMissingError) Error() string {
	return fmt.Sprintf("missing required dependencies: %s", strings.Join(e.Missing, ", "))
}

// Is reports whether this error matches the target error.
func (e *DependencyMissingError) Is(target error) bool {
	return target == ErrDependencyMissing
}

// AmbiguousTargetError reports a name that matched multiple candidates
// with no tie-break. Candidates are carried so callers can present them
// for disambiguation.
type AmbiguousTargetError struct {
	Kind       string // "session" or "project"
	Name       string // the name the caller supplied, empty if none
	Candidates []string
}

// NewAmbiguousTargetError creates an AmbiguousTargetError.
func NewAmbiguousTargetError(kind, name string, candidates []string) *AmbiguousTargetError {
	return &AmbiguousTargetError{Kind: kind, Name: name, Candidates: candidates}
}

// Error returns the formatted error message.
func (e *AmbiguousTargetError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("multiple %ss found, none specified: %s",
			e.Kind, strings.Join(e.Candidates, ", "))
	}
	return fmt.Sprintf("multiple %ss match %q: %s",
		e.Kind, e.Name, strings.Join(e.Candidates, ", "))
}

// Is reports whether this error matches the target error.
func (e *AmbiguousTargetError) Is(target error) bool {
	return target == ErrAmbiguousTarget
}

// NotFoundError reports a named resource that does not exist. Available
// alternatives are carried for display.
type NotFoundError struct {
	Kind      string
	Name      string
	Available []string
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(kind, name string, available []string) *NotFoundError {
	return &NotFoundError{Kind: kind, Name: name, Available: available}
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("no %s found", e.Kind)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Is reports whether this error matches the target error.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

package checker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoLogFiles is returned when a run found no matching log file at all,
// as opposed to every file failing.
var ErrNoLogFiles = errors.New("no log file was found")

// ResolutionError means a checklist or one of its modules could not be
// loaded. It aborts the whole run before any file is processed.
type ResolutionError struct {
	Cause     error
	Checklist string
	Missing   []string
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString("checklist resolution failed")
	if e.Checklist != "" {
		fmt.Fprintf(&b, " [%s]", e.Checklist)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing modules %s", strings.Join(e.Missing, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// NewResolutionError creates a resolution error for the named checklist.
func NewResolutionError(checklist string, cause error) *ResolutionError {
	return &ResolutionError{Checklist: checklist, Cause: cause}
}

// WithMissing records the module identifiers that had no implementation.
func (e *ResolutionError) WithMissing(ids ...string) *ResolutionError {
	e.Missing = append(e.Missing, ids...)
	return e
}

// TypeMismatchError means a file is unreadable or is not a log of the
// checklist's element type.
type TypeMismatchError struct {
	Cause       error
	Path        string
	ElementType string
}

func (e *TypeMismatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("type mismatch or unreadable: %s (element type %s): %v", e.Path, e.ElementType, e.Cause)
	}
	return fmt.Sprintf("type mismatch or unreadable: %s (element type %s)", e.Path, e.ElementType)
}

func (e *TypeMismatchError) Unwrap() error {
	return e.Cause
}

// ModuleExecutionError means a module crashed or timed out during Run. It is
// carried in the module's ERROR result and never stops sibling modules.
type ModuleExecutionError struct {
	Cause    error
	ModuleID string
}

func (e *ModuleExecutionError) Error() string {
	return fmt.Sprintf("module %s aborted: %v", e.ModuleID, e.Cause)
}

func (e *ModuleExecutionError) Unwrap() error {
	return e.Cause
}

// IdentityMissingError means no module published an element identity, so no
// report can be filed for the log.
type IdentityMissingError struct {
	Path string
}

func (e *IdentityMissingError) Error() string {
	return fmt.Sprintf("no identity info found in %s", e.Path)
}

// WriteError means the report could not be written.
type WriteError struct {
	Cause error
	Path  string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write report %s: %v", e.Path, e.Cause)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}

// IsFatal reports whether err must terminate the whole batch. Only
// resolution failures are fatal; everything else is isolated to a file or
// module.
func IsFatal(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}

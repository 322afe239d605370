// Package errors provides the structured error type (PagefoldError) used for
// kind-based classification across the configuration, content and pipeline
// layers. Nothing in pagefold retries a failed operation, so the type carries
// no retry semantics: every fatal error aborts the run it occurs in.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorKind classifies a PagefoldError for reporting and exit handling.
type ErrorKind string

const (
	// KindConfig covers malformed or self-contradictory site/navigation
	// declarations, duplicate sibling labels and dangling link targets.
	KindConfig ErrorKind = "config"
	// KindContent covers documents with missing required frontmatter or
	// unparseable markup.
	KindContent ErrorKind = "content"
	// KindPipeline covers install/build/deploy stage failures, including
	// hosting API rejections.
	KindPipeline ErrorKind = "pipeline"
	// KindInternal is the fallback for unclassified errors.
	KindInternal ErrorKind = "internal"
)

// ErrorSeverity indicates how critical an error is.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityWarning ErrorSeverity = "warning" // Reported, execution continues
)

// PagefoldError is a structured error with kind, severity and context fields.
type PagefoldError struct {
	Kind     ErrorKind     `json:"kind"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Fields   ContextFields `json:"fields,omitempty"`
}

// ContextFields carries structured context for PagefoldError.
type ContextFields map[string]any

// Error implements the error interface.
func (e *PagefoldError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling.
func (e *PagefoldError) Unwrap() error {
	return e.Cause
}

// WithField adds a context field to the error.
func (e *PagefoldError) WithField(key string, value any) *PagefoldError {
	if e.Fields == nil {
		e.Fields = make(ContextFields)
	}
	e.Fields[key] = value
	return e
}

// New creates a new PagefoldError.
func New(kind ErrorKind, severity ErrorSeverity, message string) *PagefoldError {
	return &PagefoldError{
		Kind:     kind,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new PagefoldError that wraps an existing error.
func Wrap(err error, kind ErrorKind, severity ErrorSeverity, message string) *PagefoldError {
	return &PagefoldError{
		Kind:     kind,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// Config creates a fatal configuration error.
func Config(message string) *PagefoldError {
	return New(KindConfig, SeverityFatal, message)
}

// WrapConfig wraps an error as a fatal configuration error.
func WrapConfig(err error, message string) *PagefoldError {
	return Wrap(err, KindConfig, SeverityFatal, message)
}

// Content creates a fatal content error for the given source file.
func Content(file, message string) *PagefoldError {
	return New(KindContent, SeverityFatal, message).WithField("file", file)
}

// WrapContent wraps an error as a fatal content error for the given source file.
func WrapContent(err error, file, message string) *PagefoldError {
	return Wrap(err, KindContent, SeverityFatal, message).WithField("file", file)
}

// Pipeline creates a fatal pipeline error attributed to a stage.
func Pipeline(stage, message string) *PagefoldError {
	return New(KindPipeline, SeverityFatal, message).WithField("stage", stage)
}

// WrapPipeline wraps an error as a fatal pipeline error attributed to a stage.
func WrapPipeline(err error, stage, message string) *PagefoldError {
	return Wrap(err, KindPipeline, SeverityFatal, message).WithField("stage", stage)
}

// IsKind reports whether err or any error it wraps has the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *PagefoldError
	if stderrors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// KindOf extracts the kind from an error, or KindInternal if err carries
// no PagefoldError.
func KindOf(err error) ErrorKind {
	var pe *PagefoldError
	if stderrors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// IsFatal reports whether err carries a fatal PagefoldError. Unclassified
// errors count as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var pe *PagefoldError
	if stderrors.As(err, &pe) {
		return pe.Severity == SeverityFatal
	}
	return true
}

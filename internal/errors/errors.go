// Package errors provides categorized errors for the miviz pipeline with
// optional telemetry reporting.
//
// Errors are built fluently:
//
//	errors.Newf("segment length %d", n).
//		Component("preprocess").
//		Category(errors.CategoryValidation).
//		Context("length", n).
//		Build()
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// ErrorCategory groups errors for matching, log fields and telemetry levels.
type ErrorCategory string

// CategorizedError is implemented by errors that know their own category.
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryUnknownID     ErrorCategory = "unknown-id"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryProcessing    ErrorCategory = "processing"
	CategoryState         ErrorCategory = "state"
	CategoryCancellation  ErrorCategory = "cancellation"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryGeneric       ErrorCategory = "generic"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// Sentinel errors shared by the pipeline packages. Enhanced errors built on
// top of them keep the sentinel reachable through errors.Is.
var (
	ErrInvalidInput  = stderrors.New("invalid input")
	ErrUnknownMethod = stderrors.New("unknown identifier")
	ErrNotFound      = stderrors.New("not found")
	ErrStaleResult   = stderrors.New("stale result")
)

// sentinelCategories is consulted in order when no category is given.
var sentinelCategories = []struct {
	err      error
	category ErrorCategory
}{
	{ErrInvalidInput, CategoryValidation},
	{ErrUnknownMethod, CategoryUnknownID},
	{ErrNotFound, CategoryNotFound},
	{ErrStaleResult, CategoryState},
	{context.Canceled, CategoryCancellation},
	{context.DeadlineExceeded, CategoryCancellation},
}

// hasActiveReporting is set while an enabled telemetry reporter is
// installed; Build skips stack inspection otherwise.
var hasActiveReporting atomic.Bool

// EnhancedError wraps an error with a component, a category and context.
// The context map is not modified after Build.
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time

	component string
	reported  atomic.Bool
}

func (ee *EnhancedError) Error() string {
	if ee.Err == nil {
		return string(ee.Category)
	}
	return ee.Err.Error()
}

func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches another EnhancedError by category, and anything else through
// the wrapped chain.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// ErrorCategory lets an enhanced error satisfy CategorizedError when wrapped.
func (ee *EnhancedError) ErrorCategory() ErrorCategory {
	return ee.Category
}

func (ee *EnhancedError) GetComponent() string {
	return ee.component
}

func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetContext returns a copy of the error context.
func (ee *EnhancedError) GetContext() map[string]any {
	return maps.Clone(ee.Context)
}

func (ee *EnhancedError) GetTimestamp() time.Time {
	return ee.Timestamp
}

// MarkReported records that telemetry has seen the error. It returns false
// if the error was already reported.
func (ee *EnhancedError) MarkReported() bool {
	return ee.reported.CompareAndSwap(false, true)
}

func (ee *EnhancedError) IsReported() bool {
	return ee.reported.Load()
}

// ErrorBuilder provides a fluent interface for creating enhanced errors.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts an enhanced error wrapping err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts an enhanced error from a format string. %w is honored.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component names the package or subsystem that failed.
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds a key/value pair to the error context.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Timing records the operation name and how long it ran before failing.
func (eb *ErrorBuilder) Timing(operation string, duration time.Duration) *ErrorBuilder {
	return eb.Context("operation", operation).Context("duration_ms", duration.Milliseconds())
}

// Build creates the EnhancedError and hands it to the telemetry reporter,
// if one is enabled.
func (eb *ErrorBuilder) Build() *EnhancedError {
	category := eb.category
	if eb.err == nil {
		if category == "" {
			category = CategoryGeneric
		}
		eb.err = stderrors.New(string(category))
	}
	if category == "" {
		category = detectCategory(eb.err)
	}

	reporting := hasActiveReporting.Load()

	component := eb.component
	if component == "" {
		component = ComponentUnknown
		if reporting {
			component = detectComponent()
		}
	}

	ee := &EnhancedError{
		Err:       eb.err,
		Category:  category,
		Context:   eb.context,
		Timestamp: time.Now(),
		component: component,
	}

	if reporting {
		reportToTelemetry(ee)
	}
	return ee
}

// componentPackages maps package path fragments to component names for
// errors built without an explicit component. More specific fragments
// come first.
var componentPackages = []struct {
	fragment  string
	component string
}{
	{"internal/dsp/synth", "synth"},
	{"internal/dsp/preprocess", "preprocess"},
	{"internal/dsp/augment", "augment"},
	{"internal/chart", "chart"},
	{"internal/classify", "classify"},
	{"internal/pipeline", "pipeline"},
	{"internal/catalog", "catalog"},
	{"internal/dataset", "dataset"},
	{"internal/conf", "configuration"},
	{"internal/telemetry", "telemetry"},
	{"internal/eeg", "eeg"},
	{"internal/app", "app"},
	{"miviz/cmd", "cli"},
}

const selfPackage = "miviz/internal/errors."

// detectComponent walks the caller frames outside this package and returns
// the first one that belongs to a known component.
func detectComponent() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, selfPackage) {
			for _, c := range componentPackages {
				if strings.Contains(frame.Function, c.fragment) {
					return c.component
				}
			}
		}
		if !more {
			return ComponentUnknown
		}
	}
}

// detectCategory derives a category from the wrapped error chain.
func detectCategory(err error) ErrorCategory {
	var catErr CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr.ErrorCategory()
	}

	for _, s := range sentinelCategories {
		if stderrors.Is(err, s.err) {
			return s.category
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "invalid") || strings.Contains(msg, "mismatch") {
		return CategoryValidation
	}
	return CategoryGeneric
}

// InvalidInput creates a validation error wrapping ErrInvalidInput.
func InvalidInput(component, format string, args ...any) *EnhancedError {
	return New(fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))).
		Component(component).
		Category(CategoryValidation).
		Build()
}

// UnknownID creates an error for an identifier outside a fixed enumeration.
func UnknownID(component, kind, id string) *EnhancedError {
	return New(fmt.Errorf("%w: %s %q", ErrUnknownMethod, kind, id)).
		Component(component).
		Category(CategoryUnknownID).
		Context(kind, id).
		Build()
}

// NotFound creates an error for a well-formed identifier with no match.
func NotFound(component, kind, id string) *EnhancedError {
	return New(fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)).
		Component(component).
		Category(CategoryNotFound).
		Context(kind, id).
		Build()
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsCategory reports whether err wraps an EnhancedError of the category.
func IsCategory(err error, category ErrorCategory) bool {
	var enhancedErr *EnhancedError
	return As(err, &enhancedErr) && enhancedErr.Category == category
}

// IsNotFound reports whether err wraps a not-found EnhancedError.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}
